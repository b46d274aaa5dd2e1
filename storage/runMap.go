////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Handles the Map backend for the run ledger

package storage

import (
	"sort"

	"github.com/pkg/errors"
)

// InsertRun adds a new Run to the Map
// Or returns an error if a Run with the same ID exists
func (m *MapImpl) InsertRun(run *Run) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.runs[run.Id]; ok {
		return errors.Errorf("Run %d already exists", run.Id)
	}

	newRun := *run
	m.runs[run.Id] = &newRun
	return nil
}

// UpdateRun overwrites the Map Run with the same ID
func (m *MapImpl) UpdateRun(run *Run) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.runs[run.Id]; !ok {
		return errors.Errorf("Unable to locate Run %d", run.Id)
	}

	newRun := *run
	m.runs[run.Id] = &newRun
	return nil
}

// GetRun returns a copy of the Run from Map with the given ID
// Or an error if a matching Run does not exist
func (m *MapImpl) GetRun(runID uint64) (*Run, error) {
	m.Lock()
	defer m.Unlock()

	val, ok := m.runs[runID]
	if !ok {
		return nil, errors.Errorf("Unable to locate Run %d", runID)
	}

	run := *val
	return &run, nil
}

// GetRuns returns copies of every Run in the Map ordered by ID
func (m *MapImpl) GetRuns() ([]*Run, error) {
	m.Lock()
	defer m.Unlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, val := range m.runs {
		run := *val
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Id < runs[j].Id
	})
	return runs, nil
}
