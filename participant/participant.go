////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package participant implements one protocol node. A participant owns a
// long-term key pair, an anonymizing key pair for the current run, and an
// ordered inbox fed by the network. Its operations are invoked once per
// global round by the coordinator and consume exactly the messages the
// previous round left at the front of the inbox.
//
// Messages are never addressed. A participant learns which messages are meant
// for it by trial decryption: a ciphertext failing its padding check under
// the participant's key was meant for somebody else and is discarded.
package participant

import (
	"sync/atomic"

	"github.com/cznic/mathutil"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/crypto/fastRNG"
	"gitlab.com/elixxir/secretsanta/cryptops"
	"gitlab.com/elixxir/secretsanta/internal/inbox"
	"gitlab.com/elixxir/secretsanta/internal/phase"
	"gitlab.com/elixxir/secretsanta/internal/state"
	"gitlab.com/xx_network/crypto/signature/rsa"
)

// ErrProtocolDesync is returned when a participant's inbox or phase does not
// match what the current round expects. It is fatal for the run.
var ErrProtocolDesync = errors.New("protocol desynchronized")

// DefaultMaxIteratedEncryptions is the number of onion layers wrapped around
// each long-term key. It limits the blow-up of the final message size.
const DefaultMaxIteratedEncryptions = 3

// Identity is the display name bound to a participant for a run
type Identity string

// Params configures the key sizes and onion depth of a participant
type Params struct {
	ModulusBits            int
	MaxIteratedEncryptions int
}

// Broadcaster delivers a payload to every neighbour of the sender
type Broadcaster interface {
	Broadcast(sender uint32, payload []byte) error
}

// Participant is a single protocol node
type Participant struct {
	index    uint32
	identity Identity
	params   Params

	cipher       *cryptops.ChunkedCipher
	rngStreamGen *fastRNG.StreamGenerator

	longTerm    *rsa.PrivateKey
	longTermPem []byte

	// assigned once per run by PublishEphemeralKey, cleared by SaveRoster
	ephemeral *rsa.PrivateKey

	inbox   *inbox.Inbox
	net     Broadcaster
	machine state.Machine

	roster   [][]byte
	revealed bool
	giver    Identity

	absorbed *uint64
}

// New creates a participant and generates its long-term key pair
func New(index uint32, identity Identity, params Params,
	cipher *cryptops.ChunkedCipher,
	rngStreamGen *fastRNG.StreamGenerator) (*Participant, error) {
	if identity == "" {
		return nil, errors.New("a participant needs a non empty identity")
	}

	if params.MaxIteratedEncryptions < 1 {
		return nil, errors.Errorf("at least one onion layer is required, "+
			"received %d", params.MaxIteratedEncryptions)
	}

	if cipher.ModulusBytes()*8 != params.ModulusBits {
		return nil, errors.Errorf("cipher handles %d bit keys, participant "+
			"uses %d", cipher.ModulusBytes()*8, params.ModulusBits)
	}

	absorbed := uint64(0)
	p := &Participant{
		index:        index,
		identity:     identity,
		params:       params,
		cipher:       cipher,
		rngStreamGen: rngStreamGen,
		inbox:        inbox.New(),
		machine:      state.NewMachine(string(identity)),
		absorbed:     &absorbed,
	}

	if err := p.generateKeyPair(); err != nil {
		return nil, err
	}

	return p, nil
}

// generateKeyPair creates the long-term key pair
func (p *Participant) generateKeyPair() error {
	stream := p.rngStreamGen.GetStream()
	defer stream.Close()

	key, err := cryptops.GenerateKeyPair(stream, p.params.ModulusBits)
	if err != nil {
		return errors.WithMessagef(err, "[%s] long-term key", p.identity)
	}

	p.longTerm = key
	p.longTermPem = cryptops.ExportPublicKey(key.GetPublic())
	return nil
}

// Connect attaches the participant to the network it broadcasts on
func (p *Participant) Connect(net Broadcaster) {
	p.net = net
}

/*Getters*/

// GetIndex returns the participant's position in the network
func (p *Participant) GetIndex() uint32 {
	return p.index
}

// GetIdentity returns the participant's display name
func (p *Participant) GetIdentity() Identity {
	return p.identity
}

// GetPhase returns the participant's current phase
func (p *Participant) GetPhase() phase.Type {
	return p.machine.Get()
}

// PublicKeyPem returns the PEM of the long-term public key
func (p *Participant) PublicKeyPem() []byte {
	return p.longTermPem
}

// Roster returns a copy of the saved roster
func (p *Participant) Roster() [][]byte {
	roster := make([][]byte, len(p.roster))
	copy(roster, p.roster)
	return roster
}

// RosterDigest returns the BLAKE2b digest of the saved roster
func (p *Participant) RosterDigest() []byte {
	return cryptops.RosterDigest(p.roster)
}

// GetGiver returns the identity unlocked in this run, or an empty identity
// before TryUnlockAssignment has succeeded
func (p *Participant) GetGiver() Identity {
	return p.giver
}

// InboxLen returns the number of queued messages
func (p *Participant) InboxLen() int {
	return p.inbox.Len()
}

// TakeAbsorbed returns the number of discarded trial decryptions since the
// last call and resets the count
func (p *Participant) TakeAbsorbed() uint64 {
	return atomic.SwapUint64(p.absorbed, 0)
}

// Receive appends a payload delivered by the network
func (p *Participant) Receive(payload []byte) {
	p.inbox.Push(payload)
}

/*Lifecycle*/

// Reset returns the participant to Init for a new run. The long-term key pair
// is kept.
func (p *Participant) Reset() {
	p.inbox.Drain()
	p.ephemeral = nil
	p.roster = nil
	p.revealed = false
	p.giver = ""
	atomic.StoreUint64(p.absorbed, 0)
	p.machine.Reset()
}

// Fail moves the participant into the Error phase
func (p *Participant) Fail() {
	if err := p.machine.Update(phase.Error); err != nil {
		jww.ERROR.Printf("[%s] Could not move to %s: %v", p.identity,
			phase.Error, err)
	}
}

// layers is the number of onion layers, and of decryption rounds, for a run
// with n participants
func (p *Participant) layers(n int) int {
	return mathutil.Min(n, p.params.MaxIteratedEncryptions)
}

// desync marks the cause as a protocol desynchronization
func (p *Participant) desync(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrProtocolDesync, "[%s] "+format,
		append([]interface{}{p.identity}, args...)...)
}

func (p *Participant) broadcast(payload []byte) error {
	if p.net == nil {
		return errors.Errorf("[%s] is not connected to a network", p.identity)
	}
	return errors.WithMessagef(p.net.Broadcast(p.index, payload),
		"[%s] broadcast failed", p.identity)
}
