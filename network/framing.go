////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package network

// framing.go contains the length prefixed framing of broadcast payloads.
// Ciphertext lengths are deterministic for a fixed chunk count, so a length
// prefix is all a stream transport would need to split payloads apart.

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// prefixLen is the size of the big endian length prefix
const prefixLen = 4

// Frame prefixes the payload with its length
func Frame(payload []byte) []byte {
	frame := make([]byte, prefixLen+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[prefixLen:], payload)
	return frame
}

// Unframe returns a copy of the payload held by a single frame
func Unframe(frame []byte) ([]byte, error) {
	payload, rest, err := ReadFrame(frame)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Errorf("%d trailing bytes after frame", len(rest))
	}
	return payload, nil
}

// ReadFrame splits the first frame off a stream of frames. The returned
// payload is a copy; rest aliases the input.
func ReadFrame(stream []byte) (payload, rest []byte, err error) {
	if len(stream) < prefixLen {
		return nil, nil, errors.Errorf("frame of %d bytes is shorter than "+
			"its length prefix", len(stream))
	}

	size := binary.BigEndian.Uint32(stream)
	if uint64(len(stream)-prefixLen) < uint64(size) {
		return nil, nil, errors.Errorf("frame declares %d bytes but holds %d",
			size, len(stream)-prefixLen)
	}

	end := prefixLen + int(size)
	payload = make([]byte, size)
	copy(payload, stream[prefixLen:end])
	return payload, stream[end:], nil
}
