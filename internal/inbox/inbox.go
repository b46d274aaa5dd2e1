////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package inbox

// inbox.go contains the Inbox, the FIFO of opaque messages a participant
// receives from its neighbours

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrShortInbox is returned when fewer messages are queued than requested
var ErrShortInbox = errors.New("inbox holds fewer messages than expected")

// Inbox is an append only, front consumed queue of messages. It is safe for
// concurrent use; appends are applied in the order their locks are acquired.
type Inbox struct {
	messages [][]byte
	sync.Mutex
}

// New creates an empty Inbox
func New() *Inbox {
	return &Inbox{}
}

// Push appends a message to the back of the inbox
func (ib *Inbox) Push(message []byte) {
	ib.Lock()
	ib.messages = append(ib.messages, message)
	ib.Unlock()
}

// PopN removes and returns the n messages at the front of the inbox. It
// removes nothing if fewer than n are queued.
func (ib *Inbox) PopN(n int) ([][]byte, error) {
	ib.Lock()
	defer ib.Unlock()

	if n < 0 || len(ib.messages) < n {
		return nil, errors.WithMessagef(ErrShortInbox, "requested %d, "+
			"holding %d", n, len(ib.messages))
	}

	popped := make([][]byte, n)
	copy(popped, ib.messages[:n])

	// release references to popped messages
	for i := 0; i < n; i++ {
		ib.messages[i] = nil
	}
	ib.messages = ib.messages[n:]

	return popped, nil
}

// Drain removes and returns every queued message
func (ib *Inbox) Drain() [][]byte {
	ib.Lock()
	defer ib.Unlock()

	drained := ib.messages
	ib.messages = nil
	return drained
}

// Len returns the number of queued messages
func (ib *Inbox) Len() int {
	ib.Lock()
	defer ib.Unlock()
	return len(ib.messages)
}
