////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"bytes"
	"os"
	"strings"
	"syscall"
	"testing"

	"gitlab.com/elixxir/secretsanta/cmd/conf"
)

func newTestParams(runs int) *conf.Params {
	return &conf.Params{
		Protocol: conf.Protocol{
			ModulusBits:            1024,
			HashOutputBytes:        20,
			MaxIteratedEncryptions: 3,
			DerangementAttempts:    10000,
		},
		Participants: []string{"Sana", "Mina", "Momo"},
		Runs:         runs,
		DevMode:      true,
	}
}

func TestRunSecretSanta_Reveal(t *testing.T) {
	out := &bytes.Buffer{}
	err := RunSecretSanta(newTestParams(2), true, out, make(chan os.Signal, 1))
	if err != nil {
		t.Fatalf("RunSecretSanta failed: %+v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// one summary and three pairs per run
	if len(lines) != 8 {
		t.Fatalf("Wrong output length\n\texpected: %d\n\treceived: %d\n%s", 8,
			len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "Run 0: 3 participants") ||
		!strings.HasPrefix(lines[4], "Run 1: 3 participants") {
		t.Errorf("Missing run summaries:\n%s", out.String())
	}
	for i, line := range lines {
		if i%4 == 0 {
			continue
		}
		fields := strings.Split(line, " paired with ")
		if len(fields) != 2 || fields[0] == fields[1] || fields[1] == "" {
			t.Errorf("Invalid pair line: %q", line)
		}
	}
}

func TestRunSecretSanta_Hidden(t *testing.T) {
	out := &bytes.Buffer{}
	err := RunSecretSanta(newTestParams(1), false, out, make(chan os.Signal, 1))
	if err != nil {
		t.Fatalf("RunSecretSanta failed: %+v", err)
	}
	if strings.Contains(out.String(), "paired with") {
		t.Errorf("Assignments printed without reveal:\n%s", out.String())
	}
}

func TestRunSecretSanta_Stop(t *testing.T) {
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	out := &bytes.Buffer{}
	if err := RunSecretSanta(newTestParams(5), false, out, stop); err != nil {
		t.Fatalf("RunSecretSanta failed: %+v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Runs performed after a stop signal:\n%s", out.String())
	}
}

func TestRunSecretSanta_NoDatabaseOutsideDevMode(t *testing.T) {
	params := newTestParams(1)
	params.DevMode = false
	err := RunSecretSanta(params, false, &bytes.Buffer{}, make(chan os.Signal, 1))
	if err == nil {
		t.Errorf("Ran outside of dev mode without a database")
	}
}
