////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package conf builds the typed run configuration from a viper object
package conf

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gitlab.com/elixxir/secretsanta/coordinator"
)

// DefaultParticipants are registered when the configuration names nobody
var DefaultParticipants = []string{"Nayeon", "Jeongyeon", "Momo", "Sana",
	"Jihyo", "Mina", "Dahyun", "Chaeyoung", "Tzuyu"}

// Params is the run configuration. It should be constructed using a viper
// object.
type Params struct {
	Protocol     Protocol `yaml:"protocol"`
	Participants []string `yaml:"participants"`
	Runs         int      `yaml:"runs"`
	LogPath      string   `yaml:"logPath"`
	Verbose      bool     `yaml:"verbose"`
	DevMode      bool     `yaml:"devMode"`
	Database     Database `yaml:"database"`
}

// NewParams gets elements of the viper object and returns the validated
// params, or an error describing the first invalid value
func NewParams(vip *viper.Viper) (*Params, error) {
	defaults := coordinator.DefaultParams()
	vip.SetDefault("protocol.modulusBits", defaults.ModulusBits)
	vip.SetDefault("protocol.hashOutputBytes", defaults.HashOutputBytes)
	vip.SetDefault("protocol.maxIteratedEncryptions",
		defaults.MaxIteratedEncryptions)
	vip.SetDefault("protocol.derangementAttempts",
		defaults.DerangementAttempts)
	vip.SetDefault("participants", DefaultParticipants)
	vip.SetDefault("runs", 1)
	vip.SetDefault("devMode", true)

	params := Params{}

	params.Protocol.ModulusBits = vip.GetInt("protocol.modulusBits")
	params.Protocol.HashOutputBytes = vip.GetInt("protocol.hashOutputBytes")
	params.Protocol.MaxIteratedEncryptions =
		vip.GetInt("protocol.maxIteratedEncryptions")
	params.Protocol.DerangementAttempts =
		vip.GetInt("protocol.derangementAttempts")
	params.Protocol.Parallel = vip.GetBool("protocol.parallel")

	params.Participants = vip.GetStringSlice("participants")
	params.Runs = vip.GetInt("runs")
	params.LogPath = vip.GetString("logPath")
	params.Verbose = vip.GetBool("verbose")
	params.DevMode = vip.GetBool("devMode")

	params.Database.Name = vip.GetString("database.name")
	params.Database.Username = vip.GetString("database.username")
	params.Database.Password = vip.GetString("database.password")
	params.Database.Address = vip.GetString("database.address")

	if err := params.validate(); err != nil {
		return nil, err
	}

	return &params, nil
}

func (p *Params) validate() error {
	if p.Runs < 1 {
		return errors.Errorf("runs must be at least 1, received %d", p.Runs)
	}

	if len(p.Participants) < 2 {
		return errors.Errorf("at least 2 participants are required, "+
			"received %d", len(p.Participants))
	}

	seen := make(map[string]struct{}, len(p.Participants))
	for _, name := range p.Participants {
		if name == "" {
			return errors.New("participant names cannot be empty")
		}
		if _, ok := seen[name]; ok {
			return errors.Errorf("participant %s is listed twice", name)
		}
		seen[name] = struct{}{}
	}

	if _, _, err := p.Database.HostPort(); err != nil {
		return err
	}

	return p.Protocol.validate()
}
