////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

// santa.go wires the configuration into a coordinator and performs the runs

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/secretsanta/cmd/conf"
	"gitlab.com/elixxir/secretsanta/coordinator"
	"gitlab.com/elixxir/secretsanta/participant"
	"gitlab.com/elixxir/secretsanta/storage"
)

// RunSecretSanta registers the configured participants and performs the
// configured number of runs. A signal on stop ends the loop between runs.
func RunSecretSanta(params *conf.Params, reveal bool, out io.Writer,
	stop chan os.Signal) error {
	host, port, err := params.Database.HostPort()
	if err != nil {
		return err
	}

	ledger, err := storage.NewStorage(params.Database.Username,
		params.Database.Password, params.Database.Name, host, port,
		params.DevMode)
	if err != nil {
		return errors.WithMessage(err, "failed to open run ledger")
	}

	c, err := coordinator.New(params.Protocol.CoordinatorParams(), ledger)
	if err != nil {
		return err
	}

	for _, name := range params.Participants {
		if _, err = c.Register(participant.Identity(name)); err != nil {
			return err
		}
	}

	if err = c.InitializeNetwork(); err != nil {
		return err
	}

	for i := 0; i < params.Runs; i++ {
		select {
		case sig := <-stop:
			jww.WARN.Printf("Received %s, stopping after %d of %d runs", sig,
				i, params.Runs)
			return nil
		default:
		}

		result, err := c.RunProtocol()
		if err != nil {
			return err
		}

		rm, err := c.LastMetrics()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %d: %d participants paired in %s\n", rm.RunID,
			rm.NumParticipants, rm.Duration())

		if reveal {
			printPairs(out, params.Participants, result)
		}
	}

	return nil
}

// printPairs writes "recipient paired with giver" in registration order
func printPairs(out io.Writer, names []string, result coordinator.Result) {
	for _, name := range names {
		recipient := participant.Identity(name)
		fmt.Fprintf(out, "%s paired with %s\n", recipient, result[recipient])
	}
}
