////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package conf

import (
	"github.com/pkg/errors"
	"gitlab.com/elixxir/secretsanta/coordinator"
	"gitlab.com/elixxir/secretsanta/cryptops"
)

// Protocol contains the cryptographic constants of a run
type Protocol struct {
	ModulusBits            int  `yaml:"modulusBits"`
	HashOutputBytes        int  `yaml:"hashOutputBytes"`
	MaxIteratedEncryptions int  `yaml:"maxIteratedEncryptions"`
	DerangementAttempts    int  `yaml:"derangementAttempts"`
	Parallel               bool `yaml:"parallel"`
}

// CoordinatorParams converts the protocol section for the coordinator
func (p Protocol) CoordinatorParams() coordinator.Params {
	return coordinator.Params{
		ModulusBits:            p.ModulusBits,
		HashOutputBytes:        p.HashOutputBytes,
		MaxIteratedEncryptions: p.MaxIteratedEncryptions,
		DerangementAttempts:    p.DerangementAttempts,
		Parallel:               p.Parallel,
	}
}

func (p Protocol) validate() error {
	hash, err := cryptops.HashFromOutputSize(p.HashOutputBytes)
	if err != nil {
		return errors.WithMessage(err, "protocol.hashOutputBytes")
	}

	if _, err = cryptops.NewChunkedCipher(p.ModulusBits, hash); err != nil {
		return errors.WithMessage(err, "protocol.modulusBits")
	}

	if p.MaxIteratedEncryptions < 1 {
		return errors.Errorf("protocol.maxIteratedEncryptions must be at "+
			"least 1, received %d", p.MaxIteratedEncryptions)
	}

	if p.DerangementAttempts < 1 {
		return errors.Errorf("protocol.derangementAttempts must be at "+
			"least 1, received %d", p.DerangementAttempts)
	}

	return nil
}
