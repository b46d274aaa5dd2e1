////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package coordinator drives a protocol run. It registers participants,
// connects them in a full mesh, and invokes each global round on every
// participant with a barrier between rounds. It samples the derangement
// and collects every participant's unlocked assignment. It never sees which
// participant a roster entry belongs to.
package coordinator

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/cznic/mathutil"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/crypto/fastRNG"
	"gitlab.com/elixxir/secretsanta/cryptops"
	"gitlab.com/elixxir/secretsanta/internal/measure"
	"gitlab.com/elixxir/secretsanta/internal/phase"
	"gitlab.com/elixxir/secretsanta/network"
	"gitlab.com/elixxir/secretsanta/participant"
	"gitlab.com/elixxir/secretsanta/storage"
	"gitlab.com/xx_network/crypto/csprng"
	"gitlab.com/xx_network/primitives/id"
)

// Params holds the tunable constants of a run
type Params struct {
	ModulusBits            int
	HashOutputBytes        int
	MaxIteratedEncryptions int
	DerangementAttempts    int
	Parallel               bool
}

// DefaultParams returns the production constants
func DefaultParams() Params {
	return Params{
		ModulusBits:            cryptops.DefaultModulusBits,
		HashOutputBytes:        cryptops.DefaultHashOutputBytes,
		MaxIteratedEncryptions: participant.DefaultMaxIteratedEncryptions,
		DerangementAttempts:    cryptops.DefaultDerangementAttempts,
	}
}

// Result maps every recipient to the participant who drew them
type Result map[participant.Identity]participant.Identity

// Coordinator owns the participants and the network of one group
type Coordinator struct {
	params       Params
	cipher       *cryptops.ChunkedCipher
	sampler      *cryptops.DerangementSampler
	rngStreamGen *fastRNG.StreamGenerator
	ledger       *storage.Storage

	participants []*participant.Participant
	identities   map[participant.Identity]struct{}
	net          *network.Network

	nextRun     id.Round
	lastMetrics measure.RunMetrics

	mux sync.Mutex
}

// New builds a coordinator. Runs are recorded in the ledger.
func New(params Params, ledger *storage.Storage) (*Coordinator, error) {
	hash, err := cryptops.HashFromOutputSize(params.HashOutputBytes)
	if err != nil {
		return nil, err
	}

	cipher, err := cryptops.NewChunkedCipher(params.ModulusBits, hash)
	if err != nil {
		return nil, err
	}

	if params.MaxIteratedEncryptions < 1 {
		return nil, errors.Errorf("at least one onion layer is required, "+
			"received %d", params.MaxIteratedEncryptions)
	}

	if params.DerangementAttempts < 1 {
		return nil, errors.Errorf("at least one derangement attempt is "+
			"required, received %d", params.DerangementAttempts)
	}

	if ledger == nil {
		ledger = storage.NewMapStorage()
	}

	nextRun, err := ledger.NextRunID()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read run ledger")
	}

	return &Coordinator{
		params:       params,
		cipher:       cipher,
		sampler:      cryptops.NewDerangementSampler(params.DerangementAttempts),
		rngStreamGen: fastRNG.NewStreamGenerator(8, 8, csprng.NewSystemRNG),
		ledger:       ledger,
		identities:   make(map[participant.Identity]struct{}),
		nextRun:      nextRun,
	}, nil
}

// Register creates a participant with a fresh long-term key pair. Identities
// must be unique and registration closes once the network is initialized.
func (c *Coordinator) Register(identity participant.Identity) (
	*participant.Participant, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.net != nil {
		return nil, errors.Errorf("cannot register %s after the network "+
			"is initialized", identity)
	}

	if _, ok := c.identities[identity]; ok {
		return nil, errors.Errorf("%s is already registered", identity)
	}

	p, err := participant.New(uint32(len(c.participants)), identity,
		participant.Params{
			ModulusBits:            c.params.ModulusBits,
			MaxIteratedEncryptions: c.params.MaxIteratedEncryptions,
		}, c.cipher, c.rngStreamGen)
	if err != nil {
		return nil, err
	}

	c.participants = append(c.participants, p)
	c.identities[identity] = struct{}{}
	jww.INFO.Printf("Registered %s as participant %d", identity,
		p.GetIndex())
	return p, nil
}

// InitializeNetwork connects every registered participant to every other
func (c *Coordinator) InitializeNetwork() error {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.net != nil {
		return errors.New("network is already initialized")
	}

	if len(c.participants) < 2 {
		return errors.WithMessagef(cryptops.ErrInvalidSize,
			"%d participants registered", len(c.participants))
	}

	nodes := make([]network.Node, len(c.participants))
	for i, p := range c.participants {
		nodes[i] = p
	}

	net := network.New()
	if err := net.ConnectAll(nodes); err != nil {
		return err
	}
	for _, p := range c.participants {
		p.Connect(net)
	}
	c.net = net

	jww.INFO.Printf("Network initialized with %d participants",
		len(c.participants))
	return nil
}

// SetInterceptor installs a hook on every delivery of the network
func (c *Coordinator) SetInterceptor(i network.Interceptor) error {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.net == nil {
		return errors.New("network is not initialized")
	}
	c.net.SetInterceptor(i)
	return nil
}

// Participants returns the registered participants in index order
func (c *Coordinator) Participants() []*participant.Participant {
	c.mux.Lock()
	defer c.mux.Unlock()

	ps := make([]*participant.Participant, len(c.participants))
	copy(ps, c.participants)
	return ps
}

// LastMetrics returns a copy of the metrics of the most recent run
func (c *Coordinator) LastMetrics() (measure.RunMetrics, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.lastMetrics.Snapshot()
}

// RunProtocol executes one complete run and returns every participant's
// giver. On failure every participant is moved to the Error phase and no
// partial result is returned.
func (c *Coordinator) RunProtocol() (Result, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.net == nil {
		return nil, errors.New("network is not initialized")
	}

	n := len(c.participants)
	runID := c.nextRun
	c.nextRun++

	record, err := c.ledger.StartRun(runID, n, c.params.Parallel)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to record run %d", runID)
	}

	for _, p := range c.participants {
		p.Reset()
	}

	rm := measure.NewRunMetrics(runID, n, c.params.Parallel)
	result, digest, err := c.run(&rm)
	rm.ResourceMetric = measure.SampleResources()
	rm.End()
	c.lastMetrics = rm

	if err != nil {
		for _, p := range c.participants {
			p.Fail()
		}
		jww.ERROR.Printf("Run %d failed: %v", runID, err)
		if lerr := c.ledger.FailRun(record, err); lerr != nil {
			jww.ERROR.Printf("Failed to record failure of run %d: %v",
				runID, lerr)
		}
		return nil, errors.WithMessagef(err, "run %d", runID)
	}

	if err = c.ledger.CompleteRun(record, digest); err != nil {
		return nil, errors.WithMessagef(err, "failed to record run %d",
			runID)
	}

	jww.INFO.Printf("%s", rm.String())
	return result, nil
}

// run performs the rounds of one protocol run
func (c *Coordinator) run(rm *measure.RunMetrics) (Result, []byte, error) {
	n := len(c.participants)

	err := c.step(rm, "PublishEphemeralKey", phase.EphemeralKeyPublished,
		func(p *participant.Participant) error {
			return p.PublishEphemeralKey()
		})
	if err != nil {
		return nil, nil, err
	}

	err = c.step(rm, "PublishEncryptedPublicKey", phase.EncryptedKeyCirculated,
		func(p *participant.Participant) error {
			return p.PublishEncryptedPublicKey(n)
		})
	if err != nil {
		return nil, nil, err
	}

	layers := mathutil.Min(n, c.params.MaxIteratedEncryptions)
	for round := 1; round <= layers; round++ {
		err = c.step(rm, fmt.Sprintf("DecryptAttempt %d", round),
			phase.EncryptedKeyCirculated,
			func(p *participant.Participant) error {
				return p.DecryptAttempt(n)
			})
		if err != nil {
			return nil, nil, err
		}
	}

	err = c.step(rm, "SaveRoster", phase.RosterSaved,
		func(p *participant.Participant) error {
			return p.SaveRoster(n)
		})
	if err != nil {
		return nil, nil, err
	}

	digest, err := c.checkRosters()
	if err != nil {
		return nil, nil, err
	}

	d, err := c.sampler.Sample(n)
	if err != nil {
		return nil, nil, err
	}

	err = c.step(rm, "RevealAssignment", phase.AssignmentRevealed,
		func(p *participant.Participant) error {
			return p.RevealAssignment(d)
		})
	if err != nil {
		return nil, nil, err
	}

	givers := make([]participant.Identity, n)
	err = c.step(rm, "TryUnlockAssignment", phase.AssignmentRevealed,
		func(p *participant.Participant) error {
			giver, err := p.TryUnlockAssignment()
			givers[p.GetIndex()] = giver
			return err
		})
	if err != nil {
		return nil, nil, err
	}

	verify := &measure.Metrics{}
	verify.Measure(measure.TagStart)
	result, err := c.collect(givers)
	if err != nil {
		return nil, nil, err
	}
	verify.Measure(measure.TagVerified)
	rm.AddStep("Verify", verify)

	return result, digest, nil
}

// step runs op on every participant and waits for all of them to finish
func (c *Coordinator) step(rm *measure.RunMetrics, name string,
	tag phase.Type, op func(p *participant.Participant) error) error {
	metrics := &measure.Metrics{}
	c.net.SetPhase(tag)
	c.net.SetMetrics(metrics)
	metrics.Measure(measure.TagStart)

	err := c.forEach(op)

	metrics.Measure(measure.TagBarrier)
	c.net.SetMetrics(nil)
	for _, pt := range c.participants {
		metrics.AddAbsorbed(pt.TakeAbsorbed())
	}
	rm.AddStep(name, metrics)

	return errors.WithMessagef(err, "step %s", name)
}

// forEach invokes op on every participant, concurrently in parallel mode.
// The first error in index order is returned.
func (c *Coordinator) forEach(op func(p *participant.Participant) error) error {
	if !c.params.Parallel {
		for _, p := range c.participants {
			if err := op(p); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(c.participants))
	wg := sync.WaitGroup{}
	for i, p := range c.participants {
		wg.Add(1)
		go func(i int, p *participant.Participant) {
			defer wg.Done()
			errs[i] = op(p)
		}(i, p)
	}
	wg.Wait()

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		} else {
			jww.ERROR.Printf("Participant %d also failed: %v", i, err)
		}
	}
	return first
}

// checkRosters verifies that every participant saved the same roster
func (c *Coordinator) checkRosters() ([]byte, error) {
	expected := c.participants[0].RosterDigest()
	for _, p := range c.participants[1:] {
		if !bytes.Equal(expected, p.RosterDigest()) {
			return nil, errors.WithMessagef(participant.ErrProtocolDesync,
				"%s saved a different roster than %s", p.GetIdentity(),
				c.participants[0].GetIdentity())
		}
	}
	return expected, nil
}

// collect builds the result and checks that it is a derangement of the
// registered identities
func (c *Coordinator) collect(givers []participant.Identity) (Result, error) {
	result := make(Result, len(givers))
	gave := make(map[participant.Identity]struct{}, len(givers))
	for i, giver := range givers {
		recipient := c.participants[i].GetIdentity()
		if _, ok := c.identities[giver]; !ok {
			return nil, errors.WithMessagef(participant.ErrProtocolDesync,
				"%s unlocked an unknown giver", recipient)
		}
		if giver == recipient {
			return nil, errors.WithMessagef(participant.ErrProtocolDesync,
				"%s drew itself", recipient)
		}
		if _, ok := gave[giver]; ok {
			return nil, errors.WithMessagef(participant.ErrProtocolDesync,
				"%s gives more than once", giver)
		}
		gave[giver] = struct{}{}
		result[recipient] = giver
	}
	return result, nil
}
