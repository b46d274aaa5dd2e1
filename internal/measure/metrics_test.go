////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package measure

import (
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/xx_network/primitives/id"
)

// Tests that Measure() records all the tags with ordered timestamps.
func TestMetrics_Measure(t *testing.T) {
	metrics := new(Metrics)

	testTags := make([]string, 1+rand.Intn(100))
	for i := range testTags {
		testTags[i] = randomString(rand.Intn(100))
	}

	testTimestamps := make([]time.Time, len(testTags))
	for i, value := range testTags {
		testTimestamps[i] = metrics.Measure(value)
	}

	events := metrics.GetEvents()
	if len(events) != len(testTags) {
		t.Fatalf("Measure() did not record the correct number of events"+
			"\n\texpected: %d\n\treceived: %d", len(testTags), len(events))
	}

	for i, metric := range events {
		if metric.Tag != testTags[i] {
			t.Errorf("Measure() recorded the wrong tag on index %d"+
				"\n\texpected: %s\n\treceived: %s", i, testTags[i], metric.Tag)
		}
		if !metric.Timestamp.Equal(testTimestamps[i]) {
			t.Errorf("Measure() recorded the wrong timestamp on index %d"+
				"\n\texpected: %s\n\treceived: %s", i, testTimestamps[i],
				metric.Timestamp)
		}
		if i > 0 && metric.Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("Metric[%d] occurred before Metric[%d]", i, i-1)
		}
	}
}

// Tests that Measure() and the counters are thread safe.
func TestMetrics_Concurrent(t *testing.T) {
	metrics := new(Metrics)
	const workers, each = 10, 100

	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				metrics.Measure("tag")
				metrics.AddDelivered(2)
				metrics.AddAbsorbed(1)
			}
		}()
	}
	wg.Wait()

	if len(metrics.GetEvents()) != workers*each {
		t.Errorf("Lost events: %d", len(metrics.GetEvents()))
	}
	if metrics.Delivered() != 2*workers*each {
		t.Errorf("Lost delivered counts: %d", metrics.Delivered())
	}
	if metrics.Absorbed() != workers*each {
		t.Errorf("Lost absorbed counts: %d", metrics.Absorbed())
	}
}

// Tests that GetEvents() returns a copy.
func TestMetrics_GetEvents_Copy(t *testing.T) {
	metrics := new(Metrics)
	metrics.Measure("a")

	events := metrics.GetEvents()
	events[0].Tag = "b"

	if metrics.Events[0].Tag != "a" {
		t.Errorf("Modifying the returned events changed the metrics")
	}
}

func TestNewRunMetrics(t *testing.T) {
	rm := NewRunMetrics(id.Round(42), 9, true)

	if rm.RunID != 42 || rm.NumParticipants != 9 || !rm.Parallel {
		t.Errorf("NewRunMetrics() set the wrong fields: %+v", rm)
	}
	if rm.StartTime.After(time.Now()) {
		t.Errorf("NewRunMetrics() start time is in the future")
	}
	if rm.Duration() != 0 {
		t.Errorf("Unfinished run has duration %s", rm.Duration())
	}
}

// Tests that steps are frozen when added and totals are summed.
func TestRunMetrics_AddStep(t *testing.T) {
	rm := NewRunMetrics(id.Round(1), 3, false)

	m := new(Metrics)
	m.Measure(TagStart)
	m.AddDelivered(6)
	m.AddAbsorbed(4)
	m.Measure(TagBarrier)
	rm.AddStep("publish", m)

	// changes after freezing are not reflected
	m.Measure("late")
	m.AddDelivered(100)

	m2 := new(Metrics)
	m2.AddDelivered(3)
	rm.AddStep("reveal", m2)
	rm.End()

	if len(rm.Steps) != 2 {
		t.Fatalf("Expected 2 steps, found %d", len(rm.Steps))
	}
	if len(rm.Steps[0].Events) != 2 || rm.Steps[0].Delivered != 6 ||
		rm.Steps[0].Absorbed != 4 {
		t.Errorf("Step not frozen correctly: %+v", rm.Steps[0])
	}
	if rm.TotalDelivered() != 9 {
		t.Errorf("Unexpected total.\n\texpected: %d\n\treceived: %d", 9,
			rm.TotalDelivered())
	}
	if rm.Steps[1].Duration() != 0 {
		t.Errorf("Step without events has a duration")
	}
	if !strings.Contains(rm.String(), "publish") {
		t.Errorf("String() is missing a step: %s", rm.String())
	}
}

// Tests that a snapshot does not share the step list.
func TestRunMetrics_Snapshot(t *testing.T) {
	rm := NewRunMetrics(id.Round(7), 2, false)
	rm.AddStep("a", new(Metrics))
	rm.End()

	snapshot, err := rm.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() failed: %+v", err)
	}
	if !reflect.DeepEqual(snapshot, rm) {
		t.Errorf("Snapshot differs.\n\texpected: %+v\n\treceived: %+v", rm,
			snapshot)
	}

	snapshot.Steps[0].Name = "b"
	if rm.Steps[0].Name != "a" {
		t.Errorf("Snapshot shares its steps with the original")
	}
}

func TestSampleResources(t *testing.T) {
	r := SampleResources()
	if r.MemAllocBytes == 0 || r.NumThreads < 1 || r.Time.IsZero() {
		t.Errorf("Implausible resource sample: %+v", r)
	}
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
