////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package cryptops holds the cryptographic operations used by the protocol
// participants: the chunked RSA-OAEP stream cipher, the derangement sampler,
// key pair generation and roster digests.
package cryptops

// chunk.go contains the ChunkedCipher, which extends RSA-OAEP to messages
// longer than a single block

import (
	"crypto"
	gorsa "crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"io"

	"github.com/pkg/errors"
	"gitlab.com/xx_network/crypto/signature/rsa"
)

// ErrPaddingInvalid is returned when a ciphertext does not decrypt under the
// given key. Participants use it to detect messages that were not encrypted
// to them, so it must stay distinguishable from every other failure.
var ErrPaddingInvalid = errors.New("ciphertext padding is invalid for this key")

// DefaultHashOutputBytes is the output size of SHA-1, the default OAEP hash
const DefaultHashOutputBytes = 20

// HashFromOutputSize returns the OAEP hash function with the given output
// size in bytes
func HashFromOutputSize(hashOutputBytes int) (crypto.Hash, error) {
	switch hashOutputBytes {
	case crypto.SHA1.Size():
		return crypto.SHA1, nil
	case crypto.SHA256.Size():
		return crypto.SHA256, nil
	case crypto.SHA512.Size():
		return crypto.SHA512, nil
	default:
		return 0, errors.Errorf("no supported padding hash has an output "+
			"of %d bytes", hashOutputBytes)
	}
}

// ChunkedCipher encrypts arbitrary length plaintexts under RSA-OAEP by
// splitting them into chunks of at most MaxPlaintextBytes. Every chunk becomes
// exactly one ModulusBytes sized ciphertext block.
type ChunkedCipher struct {
	hash              crypto.Hash
	modulusBytes      int
	maxPlaintextBytes int
}

// NewChunkedCipher builds a cipher for keys with the given modulus size. It
// fails if the padding overhead of the hash leaves no room for plaintext.
func NewChunkedCipher(modulusBits int, hash crypto.Hash) (*ChunkedCipher, error) {
	if modulusBits <= 0 || modulusBits%8 != 0 {
		return nil, errors.Errorf("modulus size must be a positive "+
			"multiple of 8 bits, received %d", modulusBits)
	}

	if !hash.Available() {
		return nil, errors.Errorf("padding hash %v is not available", hash)
	}

	modulusBytes := modulusBits / 8
	maxPlaintextBytes := modulusBytes - 2 - 2*hash.Size()
	if maxPlaintextBytes < 1 {
		return nil, errors.Errorf("a %d bit modulus cannot hold any "+
			"plaintext when padded with %v", modulusBits, hash)
	}

	return &ChunkedCipher{
		hash:              hash,
		modulusBytes:      modulusBytes,
		maxPlaintextBytes: maxPlaintextBytes,
	}, nil
}

// MaxPlaintextBytes is the largest chunk a single block can carry
func (c *ChunkedCipher) MaxPlaintextBytes() int {
	return c.maxPlaintextBytes
}

// ModulusBytes is the size of one ciphertext block
func (c *ChunkedCipher) ModulusBytes() int {
	return c.modulusBytes
}

// Hash returns the padding hash
func (c *ChunkedCipher) Hash() crypto.Hash {
	return c.hash
}

// CiphertextSize returns the length of the ciphertext EncryptStream produces
// for a plaintext of the given length
func (c *ChunkedCipher) CiphertextSize(plaintextLen int) int {
	return c.numChunks(plaintextLen) * c.modulusBytes
}

// an empty plaintext still occupies one chunk so that it round trips
func (c *ChunkedCipher) numChunks(plaintextLen int) int {
	if plaintextLen == 0 {
		return 1
	}
	return (plaintextLen + c.maxPlaintextBytes - 1) / c.maxPlaintextBytes
}

// EncryptStream encrypts every chunk of the plaintext independently and
// concatenates the resulting blocks in order
func (c *ChunkedCipher) EncryptStream(rng io.Reader, pub *rsa.PublicKey,
	plaintext []byte) ([]byte, error) {
	if pub == nil {
		return nil, errors.New("cannot encrypt to a nil public key")
	}

	if size := pub.PublicKey.Size(); size != c.modulusBytes {
		return nil, errors.Errorf("public key modulus is %d bytes, "+
			"cipher expects %d", size, c.modulusBytes)
	}

	numChunks := c.numChunks(len(plaintext))
	ciphertext := make([]byte, 0, numChunks*c.modulusBytes)

	for i := 0; i < numChunks; i++ {
		begin := i * c.maxPlaintextBytes
		end := begin + c.maxPlaintextBytes
		if end > len(plaintext) {
			end = len(plaintext)
		}

		block, err := gorsa.EncryptOAEP(c.hash.New(), rng, &pub.PublicKey,
			plaintext[begin:end], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encrypt chunk %d of %d",
				i+1, numChunks)
		}
		ciphertext = append(ciphertext, block...)
	}

	return ciphertext, nil
}

// DecryptStream splits the ciphertext into blocks and decrypts each one. Any
// block failing its padding check, or a ciphertext that cannot be split into
// whole blocks, returns ErrPaddingInvalid.
func (c *ChunkedCipher) DecryptStream(priv *rsa.PrivateKey,
	ciphertext []byte) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("cannot decrypt with a nil private key")
	}

	if len(ciphertext) == 0 || len(ciphertext)%c.modulusBytes != 0 {
		return nil, errors.WithMessagef(ErrPaddingInvalid, "ciphertext of "+
			"%d bytes is not a whole number of %d byte blocks",
			len(ciphertext), c.modulusBytes)
	}

	if size := priv.PrivateKey.Size(); size != c.modulusBytes {
		return nil, errors.WithMessagef(ErrPaddingInvalid, "private key "+
			"modulus is %d bytes, cipher expects %d", size, c.modulusBytes)
	}

	numBlocks := len(ciphertext) / c.modulusBytes
	plaintext := make([]byte, 0, numBlocks*c.maxPlaintextBytes)

	for i := 0; i < numBlocks; i++ {
		block := ciphertext[i*c.modulusBytes : (i+1)*c.modulusBytes]
		chunk, err := gorsa.DecryptOAEP(c.hash.New(), nil, &priv.PrivateKey,
			block, nil)
		if err != nil {
			return nil, errors.WithMessagef(ErrPaddingInvalid,
				"block %d of %d", i+1, numBlocks)
		}
		plaintext = append(plaintext, chunk...)
	}

	return plaintext, nil
}
