////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package conf

import (
	"net"

	"github.com/pkg/errors"
)

// Database contains the run ledger connection params
type Database struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Address  string `yaml:"address"`
}

// HostPort splits the address. An empty address yields empty parts, which
// selects the in-memory ledger.
func (d Database) HostPort() (string, string, error) {
	if d.Address == "" {
		return "", "", nil
	}

	host, port, err := net.SplitHostPort(d.Address)
	if err != nil {
		return "", "", errors.Errorf("invalid database.address %q: %+v",
			d.Address, err)
	}
	return host, port, nil
}
