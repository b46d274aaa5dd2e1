////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package participant

// Operations run by the coordinator, one per participant per global round.

import (
	"bytes"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/secretsanta/cryptops"
	"gitlab.com/elixxir/secretsanta/internal/phase"
	"gitlab.com/xx_network/crypto/signature/rsa"
)

// PublishEphemeralKey generates the anonymizing key pair for this run and
// broadcasts its public half.
func (p *Participant) PublishEphemeralKey() error {
	if err := p.machine.Require(phase.Init); err != nil {
		return p.desync("cannot publish ephemeral key: %v", err)
	}

	if p.ephemeral != nil {
		return p.desync("ephemeral key already assigned for this run")
	}

	stream := p.rngStreamGen.GetStream()
	key, err := cryptops.GenerateKeyPair(stream, p.params.ModulusBits)
	stream.Close()
	if err != nil {
		return errors.WithMessagef(err, "[%s] ephemeral key", p.identity)
	}
	p.ephemeral = key

	if err = p.broadcast(cryptops.ExportPublicKey(key.GetPublic())); err != nil {
		return err
	}

	return p.machine.Update(phase.EphemeralKeyPublished)
}

// PublishEncryptedPublicKey collects the other n-1 ephemeral public keys,
// wraps the long-term public key in onion layers under a random selection of
// them, and circulates the result.
func (p *Participant) PublishEncryptedPublicKey(n int) error {
	if n < 2 {
		return errors.WithMessagef(cryptops.ErrInvalidSize,
			"[%s] %d participants", p.identity, n)
	}

	if err := p.machine.Require(phase.EphemeralKeyPublished); err != nil {
		return p.desync("cannot circulate long-term key: %v", err)
	}

	msgs, err := p.inbox.PopN(n - 1)
	if err != nil {
		return p.desync("collecting ephemeral keys: %v", err)
	}

	keys := make([]*rsa.PublicKey, 0, n)
	for i, msg := range msgs {
		pub, err := cryptops.ImportPublicKey(msg, p.params.ModulusBits)
		if err != nil {
			return p.desync("message %d is not an ephemeral key: %v", i, err)
		}
		keys = append(keys, pub)
	}
	keys = append(keys, p.ephemeral.GetPublic())

	order := make([]uint32, len(keys))
	for i := range order {
		order[i] = uint32(i)
	}
	stream := p.rngStreamGen.GetStream()
	if err = cryptops.ShuffleUniform(stream, order); err != nil {
		stream.Close()
		return errors.WithMessagef(err, "[%s] key order", p.identity)
	}

	onion := p.longTermPem
	for _, k := range order[:p.layers(n)] {
		onion, err = p.cipher.EncryptStream(stream, keys[k], onion)
		if err != nil {
			stream.Close()
			return errors.WithMessagef(err, "[%s] onion layer", p.identity)
		}
	}
	stream.Close()

	if err = p.broadcast(onion); err != nil {
		return err
	}
	p.inbox.Push(onion)

	return p.machine.Update(phase.EncryptedKeyCirculated)
}

// DecryptAttempt trial decrypts the n onions of the current round under the
// ephemeral key. Each successfully peeled layer is circulated; every other
// onion is discarded.
func (p *Participant) DecryptAttempt(n int) error {
	if err := p.machine.Require(phase.EncryptedKeyCirculated); err != nil {
		return p.desync("cannot peel: %v", err)
	}

	if rounds := int(p.machine.Rounds()); rounds >= p.layers(n) {
		return p.desync("all %d layers already peeled", rounds)
	}

	msgs, err := p.inbox.PopN(n)
	if err != nil {
		return p.desync("collecting onions: %v", err)
	}

	peeled := 0
	for _, msg := range msgs {
		inner, err := p.cipher.DecryptStream(p.ephemeral, msg)
		if errors.Is(err, cryptops.ErrPaddingInvalid) {
			atomic.AddUint64(p.absorbed, 1)
			continue
		} else if err != nil {
			return errors.WithMessagef(err, "[%s] peeling", p.identity)
		}

		if err = p.broadcast(inner); err != nil {
			return err
		}
		p.inbox.Push(inner)
		peeled++
	}

	round, err := p.machine.CompleteRound()
	if err != nil {
		return err
	}

	jww.DEBUG.Printf("[%s] Round %d peeled %d of %d onions", p.identity,
		round, peeled, len(msgs))
	return nil
}

// SaveRoster stores the n fully peeled long-term public keys in canonical
// bytewise order and discards the ephemeral key pair.
func (p *Participant) SaveRoster(n int) error {
	if err := p.machine.Require(phase.EncryptedKeyCirculated); err != nil {
		return p.desync("cannot save roster: %v", err)
	}

	if rounds := int(p.machine.Rounds()); rounds != p.layers(n) {
		return p.desync("roster saved after %d of %d rounds", rounds,
			p.layers(n))
	}

	msgs, err := p.inbox.PopN(n)
	if err != nil {
		return p.desync("collecting roster: %v", err)
	}

	seen := make(map[string]struct{}, n)
	for i, msg := range msgs {
		if _, err = cryptops.ImportPublicKey(msg, p.params.ModulusBits); err != nil {
			return p.desync("roster entry %d is not a public key: %v", i, err)
		}
		if _, ok := seen[string(msg)]; ok {
			return p.desync("roster entry %d is a duplicate", i)
		}
		seen[string(msg)] = struct{}{}
	}

	if _, ok := seen[string(p.longTermPem)]; !ok {
		return p.desync("own long-term key missing from roster")
	}

	sort.Slice(msgs, func(i, j int) bool {
		return bytes.Compare(msgs[i], msgs[j]) < 0
	})

	p.roster = msgs
	p.ephemeral = nil

	return p.machine.Update(phase.RosterSaved)
}

// RevealAssignment encrypts the participant's identity under the long-term
// key of the roster entry the derangement maps it to, and broadcasts it.
func (p *Participant) RevealAssignment(d cryptops.Derangement) error {
	if err := p.machine.Require(phase.RosterSaved); err != nil {
		return p.desync("cannot reveal: %v", err)
	}

	if p.revealed {
		return p.desync("assignment already revealed")
	}

	if len(d) != len(p.roster) {
		return p.desync("derangement over %d entries, roster has %d",
			len(d), len(p.roster))
	}

	if err := d.Validate(); err != nil {
		return errors.WithMessagef(err, "[%s] reveal", p.identity)
	}

	self := p.selfIndex()
	if self < 0 {
		return p.desync("own long-term key missing from roster")
	}

	pub, err := cryptops.ImportPublicKey(p.roster[d[self]], p.params.ModulusBits)
	if err != nil {
		return errors.WithMessagef(err, "[%s] roster entry %d", p.identity,
			d[self])
	}

	stream := p.rngStreamGen.GetStream()
	ct, err := p.cipher.EncryptStream(stream, pub, []byte(p.identity))
	stream.Close()
	if err != nil {
		return errors.WithMessagef(err, "[%s] assignment", p.identity)
	}

	if err = p.broadcast(ct); err != nil {
		return err
	}
	p.revealed = true

	return nil
}

// TryUnlockAssignment drains the inbox and returns the identity of the
// participant who drew this one. Exactly one message must decrypt under the
// long-term key.
func (p *Participant) TryUnlockAssignment() (Identity, error) {
	if err := p.machine.Require(phase.RosterSaved); err != nil {
		return "", p.desync("cannot unlock: %v", err)
	}

	if !p.revealed {
		return "", p.desync("unlocking before revealing")
	}

	var giver Identity
	found := 0
	for _, msg := range p.inbox.Drain() {
		pt, err := p.cipher.DecryptStream(p.longTerm, msg)
		if errors.Is(err, cryptops.ErrPaddingInvalid) {
			atomic.AddUint64(p.absorbed, 1)
			continue
		} else if err != nil {
			return "", errors.WithMessagef(err, "[%s] unlocking", p.identity)
		}
		giver = Identity(pt)
		found++
	}

	if found != 1 {
		return "", p.desync("expected exactly one assignment, found %d",
			found)
	}

	p.giver = giver
	if err := p.machine.Update(phase.AssignmentRevealed); err != nil {
		return "", err
	}

	return giver, nil
}

// selfIndex finds the long-term public key in the roster by content
func (p *Participant) selfIndex() int {
	for i, entry := range p.roster {
		if bytes.Equal(entry, p.longTermPem) {
			return i
		}
	}
	return -1
}
