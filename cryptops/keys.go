////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cryptops

// keys.go contains key pair generation and the PEM encoding used to pass
// public keys between participants

import (
	"io"

	"github.com/pkg/errors"
	"gitlab.com/xx_network/crypto/signature/rsa"
)

// DefaultModulusBits is the default RSA modulus size
const DefaultModulusBits = 2048

// GenerateKeyPair creates an RSA key pair with the given modulus size
func GenerateKeyPair(rng io.Reader, modulusBits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rng, modulusBits)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to generate a %d bit key pair",
			modulusBits)
	}
	return key, nil
}

// ExportPublicKey encodes the public key as PEM
func ExportPublicKey(pub *rsa.PublicKey) []byte {
	return rsa.CreatePublicKeyPem(pub)
}

// ImportPublicKey decodes a PEM public key and checks its modulus size
func ImportPublicKey(pem []byte, modulusBits int) (*rsa.PublicKey, error) {
	pub, err := rsa.LoadPublicKeyFromPem(pem)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode public key")
	}

	if pub.PublicKey.N == nil || pub.PublicKey.N.BitLen() != modulusBits {
		return nil, errors.Errorf("public key is not a %d bit key",
			modulusBits)
	}

	return pub, nil
}
