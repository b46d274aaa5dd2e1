////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package conf

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
	"gitlab.com/elixxir/secretsanta/coordinator"
)

var ExpectedProtocol = Protocol{
	ModulusBits:            1024,
	HashOutputBytes:        32,
	MaxIteratedEncryptions: 2,
	DerangementAttempts:    500,
	Parallel:               true,
}

var ExpectedParams = Params{
	Protocol:     ExpectedProtocol,
	Participants: []string{"Nayeon", "Momo", "Tzuyu"},
	Runs:         4,
	LogPath:      "/tmp/secretsanta.log",
	Verbose:      true,
	DevMode:      false,
	Database:     ExpectedDatabase,
}

func TestNewParams_ReturnsParamsWhenGivenValidViper(t *testing.T) {
	vip := viper.New()
	vip.SetConfigFile("params.yaml")

	if err := vip.ReadInConfig(); err != nil {
		t.Fatalf("Failed to read in params.yaml into viper: %+v", err)
	}

	params, err := NewParams(vip)
	if err != nil {
		t.Fatalf("Failed in unmarshaling from viper object: %+v", err)
	}

	if !reflect.DeepEqual(ExpectedParams, *params) {
		t.Errorf("Params value does not match expected value"+
			"\n\texpected: %+v\n\treceived: %+v", ExpectedParams, *params)
	}
}

func TestNewParams_Defaults(t *testing.T) {
	params, err := NewParams(viper.New())
	if err != nil {
		t.Fatalf("Failed to build default params: %+v", err)
	}

	defaults := coordinator.DefaultParams()
	if !reflect.DeepEqual(defaults, params.Protocol.CoordinatorParams()) {
		t.Errorf("Default protocol does not match the coordinator"+
			"\n\texpected: %+v\n\treceived: %+v", defaults,
			params.Protocol.CoordinatorParams())
	}

	if !reflect.DeepEqual(DefaultParticipants, params.Participants) {
		t.Errorf("Wrong default participants\n\texpected: %v\n\treceived: %v",
			DefaultParticipants, params.Participants)
	}

	if params.Runs != 1 || !params.DevMode {
		t.Errorf("Wrong defaults: runs=%d devMode=%v", params.Runs,
			params.DevMode)
	}
}

func TestNewParams_Invalid(t *testing.T) {
	invalid := []map[string]interface{}{
		{"runs": 0},
		{"participants": []string{"Mina"}},
		{"participants": []string{"Mina", "Mina"}},
		{"participants": []string{"Mina", ""}},
		{"protocol.modulusBits": 1020},
		{"protocol.modulusBits": 1028},
		{"protocol.hashOutputBytes": 16},
		{"protocol.hashOutputBytes": 64, "protocol.modulusBits": 1024},
		{"protocol.maxIteratedEncryptions": 0},
		{"protocol.derangementAttempts": -1},
		{"database.address": "no-port"},
	}

	for i, values := range invalid {
		vip := viper.New()
		for k, v := range values {
			vip.Set(k, v)
		}
		if params, err := NewParams(vip); err == nil {
			t.Errorf("Invalid config %d accepted: %+v", i, params)
		}
	}
}

func TestProtocol_CoordinatorParams(t *testing.T) {
	expected := coordinator.Params{
		ModulusBits:            1024,
		HashOutputBytes:        32,
		MaxIteratedEncryptions: 2,
		DerangementAttempts:    500,
		Parallel:               true,
	}
	if received := ExpectedProtocol.CoordinatorParams(); received != expected {
		t.Errorf("Wrong coordinator params\n\texpected: %+v\n\treceived: %+v",
			expected, received)
	}
}
