////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package measure

// measure/run.go contains the RunMetrics object, constructors and its methods

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"gitlab.com/xx_network/primitives/id"
)

// StepMetric is the frozen record of one coordinator step
type StepMetric struct {
	Name      string
	Events    []Metric
	Delivered uint64
	Absorbed  uint64
}

// Duration is the time between the first and last event of the step
func (sm StepMetric) Duration() time.Duration {
	if len(sm.Events) < 2 {
		return 0
	}
	return sm.Events[len(sm.Events)-1].Timestamp.Sub(sm.Events[0].Timestamp)
}

// RunMetrics structure holds metrics for the life-cycle of one protocol run.
type RunMetrics struct {
	RunID           id.Round
	NumParticipants int
	Parallel        bool
	Steps           []StepMetric
	ResourceMetric  ResourceMetric

	StartTime time.Time
	EndTime   time.Time
}

// NewRunMetrics initializes a new RunMetrics object for the given run
func NewRunMetrics(runID id.Round, numParticipants int, parallel bool) RunMetrics {
	return RunMetrics{
		RunID:           runID,
		NumParticipants: numParticipants,
		Parallel:        parallel,
		StartTime:       time.Now().Round(0),
	}
}

// AddStep freezes the step's metrics into the run
func (rm *RunMetrics) AddStep(name string, metrics *Metrics) {
	rm.Steps = append(rm.Steps, StepMetric{
		Name:      name,
		Events:    metrics.GetEvents(),
		Delivered: metrics.Delivered(),
		Absorbed:  metrics.Absorbed(),
	})
}

// End stamps the end time of the run
func (rm *RunMetrics) End() {
	rm.EndTime = time.Now().Round(0)
}

// Duration returns the wall time of the run, or zero if it has not ended
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return 0
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// TotalDelivered sums the delivered messages of every step
func (rm *RunMetrics) TotalDelivered() uint64 {
	total := uint64(0)
	for _, s := range rm.Steps {
		total += s.Delivered
	}
	return total
}

// Snapshot returns a copy of the run metrics that does not share the step
// list with the original
func (rm *RunMetrics) Snapshot() (RunMetrics, error) {
	snapshot := RunMetrics{}
	if err := copier.Copy(&snapshot, rm); err != nil {
		return RunMetrics{}, err
	}
	snapshot.Steps = make([]StepMetric, len(rm.Steps))
	copy(snapshot.Steps, rm.Steps)
	return snapshot, nil
}

// String prints one line per step, used in the run log
func (rm *RunMetrics) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "run %d: %d participants, %s", rm.RunID,
		rm.NumParticipants, rm.Duration())
	for _, s := range rm.Steps {
		fmt.Fprintf(&b, "\n\t%-26s %10s delivered=%d absorbed=%d", s.Name,
			s.Duration(), s.Delivered, s.Absorbed)
	}
	return b.String()
}
