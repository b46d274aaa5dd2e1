////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package network is the in-process message substrate connecting the
// protocol participants as a complete graph. A broadcast hands a copy of the
// payload to every neighbour of the sender; deliveries to any one recipient
// are serialized so each inbox observes broadcasts in a stable FIFO order.
package network

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/secretsanta/internal/measure"
	"gitlab.com/elixxir/secretsanta/internal/phase"
)

// Node is a participant reachable over the network
type Node interface {
	// GetIndex returns the node's position in the network
	GetIndex() uint32
	// Receive appends a delivered payload to the node's inbox
	Receive(payload []byte)
}

// Interceptor sees every delivery and returns the payload to hand to the
// recipient. Returning nil drops the delivery.
type Interceptor func(p phase.Type, sender, recipient uint32,
	payload []byte) []byte

// Network is an undirected complete graph over the connected nodes. Its
// edges never change after ConnectAll.
type Network struct {
	nodes      []Node
	neighbours [][]uint32
	// one lock per recipient serializes deliveries into its inbox
	deliveryLocks []sync.Mutex

	phase       *uint32
	interceptor Interceptor
	metrics     *measure.Metrics

	sync.RWMutex
}

// New creates an unconnected network
func New() *Network {
	p := uint32(phase.Init)
	return &Network{phase: &p}
}

// ConnectAll makes every node a neighbour of every other node. It can only be
// called once. Node indexes must be 0..len(nodes)-1 in order.
func (n *Network) ConnectAll(nodes []Node) error {
	n.Lock()
	defer n.Unlock()

	if n.nodes != nil {
		return errors.New("network is already connected")
	}

	if len(nodes) < 2 {
		return errors.Errorf("a network needs at least 2 nodes, received %d",
			len(nodes))
	}

	for i, node := range nodes {
		if node.GetIndex() != uint32(i) {
			return errors.Errorf("node at position %d has index %d", i,
				node.GetIndex())
		}
	}

	n.nodes = make([]Node, len(nodes))
	copy(n.nodes, nodes)
	n.deliveryLocks = make([]sync.Mutex, len(nodes))
	n.neighbours = make([][]uint32, len(nodes))

	// every edge of the complete graph, O(n^2)
	for i := range nodes {
		n.neighbours[i] = make([]uint32, 0, len(nodes)-1)
		for j := range nodes {
			if i != j {
				n.neighbours[i] = append(n.neighbours[i], uint32(j))
			}
		}
	}

	jww.INFO.Printf("Connected %d nodes with %d edges", len(nodes),
		len(nodes)*(len(nodes)-1)/2)
	return nil
}

// Size returns the number of connected nodes
func (n *Network) Size() int {
	n.RLock()
	defer n.RUnlock()
	return len(n.nodes)
}

// Neighbours returns the indexes adjacent to the given node
func (n *Network) Neighbours(index uint32) ([]uint32, error) {
	n.RLock()
	defer n.RUnlock()

	if int(index) >= len(n.neighbours) {
		return nil, errors.Errorf("no node with index %d", index)
	}
	neighbours := make([]uint32, len(n.neighbours[index]))
	copy(neighbours, n.neighbours[index])
	return neighbours, nil
}

// SetPhase tags subsequent deliveries with the given phase
func (n *Network) SetPhase(p phase.Type) {
	atomic.StoreUint32(n.phase, uint32(p))
}

// GetPhase returns the phase deliveries are currently tagged with
func (n *Network) GetPhase() phase.Type {
	return phase.Type(atomic.LoadUint32(n.phase))
}

// SetInterceptor installs a delivery hook; nil removes it
func (n *Network) SetInterceptor(i Interceptor) {
	n.Lock()
	n.interceptor = i
	n.Unlock()
}

// SetMetrics directs delivery counts to the given step metrics; nil stops
// counting
func (n *Network) SetMetrics(m *measure.Metrics) {
	n.Lock()
	n.metrics = m
	n.Unlock()
}

// Broadcast delivers the payload to every neighbour of the sender. It
// returns once every delivery has been placed in its recipient's inbox.
func (n *Network) Broadcast(sender uint32, payload []byte) error {
	n.RLock()
	defer n.RUnlock()

	if n.nodes == nil {
		return errors.New("cannot broadcast on an unconnected network")
	}

	if int(sender) >= len(n.nodes) {
		return errors.Errorf("cannot broadcast from unknown node %d", sender)
	}

	frame := Frame(payload)
	p := n.GetPhase()

	delivered := uint64(0)
	for _, recipient := range n.neighbours[sender] {
		msg, err := Unframe(frame)
		if err != nil {
			return errors.WithMessagef(err, "failed to deliver to %d",
				recipient)
		}

		if n.interceptor != nil {
			msg = n.interceptor(p, sender, recipient, msg)
			if msg == nil {
				jww.DEBUG.Printf("Delivery %d -> %d dropped in %s", sender,
					recipient, p)
				continue
			}
		}

		n.deliveryLocks[recipient].Lock()
		n.nodes[recipient].Receive(msg)
		n.deliveryLocks[recipient].Unlock()
		delivered++
	}

	if n.metrics != nil {
		n.metrics.AddDelivered(delivered)
	}
	return nil
}
