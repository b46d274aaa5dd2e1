////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package measure records per-run protocol metrics: timestamped events for
// every coordinator step, and how many messages each step delivered and how
// many trial decryptions it silently discarded.
package measure

// metrics.go contains the metrics object and its methods

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics structure holds the events and counters of one step. The RWMutex
// prevents two threads from writing to the event list at the same time.
type Metrics struct {
	Events []Metric
	sync.RWMutex

	delivered uint64
	absorbed  uint64
}

// Metric structure holds a single measurement, which contains a tag and a
// timestamp from when the measurement was taken.
type Metric struct {
	Tag       string
	Timestamp time.Time
}

// Measure appends a Metric with the given tag, timestamped at the time of the
// call, and returns the timestamp.
func (ms *Metrics) Measure(tag string) time.Time {
	metric := Metric{
		Tag:       tag,
		Timestamp: time.Now(),
	}

	ms.Lock()
	ms.Events = append(ms.Events, metric)
	ms.Unlock()

	return metric.Timestamp
}

// GetEvents returns a copy of the Events array.
func (ms *Metrics) GetEvents() []Metric {
	ms.RLock()
	defer ms.RUnlock()

	events := make([]Metric, len(ms.Events))
	copy(events, ms.Events)
	return events
}

// AddDelivered counts messages placed into inboxes during the step
func (ms *Metrics) AddDelivered(n uint64) {
	atomic.AddUint64(&ms.delivered, n)
}

// AddAbsorbed counts trial decryptions discarded during the step
func (ms *Metrics) AddAbsorbed(n uint64) {
	atomic.AddUint64(&ms.absorbed, n)
}

// Delivered returns the number of delivered messages
func (ms *Metrics) Delivered() uint64 {
	return atomic.LoadUint64(&ms.delivered)
}

// Absorbed returns the number of discarded trial decryptions
func (ms *Metrics) Absorbed() uint64 {
	return atomic.LoadUint64(&ms.absorbed)
}
