////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Handles the high level storage API.
// This layer merges the business logic layer and the database layer

package storage

import (
	"time"

	"gitlab.com/xx_network/primitives/id"
)

// Storage API for the storage layer
type Storage struct {
	// Stored database interface
	database
}

// NewStorage Create a new Storage object wrapping a database interface
// Returns a Storage object and error
func NewStorage(username, password, dbName, address, port string,
	devMode bool) (*Storage, error) {
	db, err := newDatabase(username, password, dbName, address, port, devMode)
	if err != nil {
		return nil, err
	}
	return &Storage{db}, nil
}

// NewMapStorage creates a Storage backed by memory only
func NewMapStorage() *Storage {
	return &Storage{newMapImpl()}
}

// NextRunID returns the ID following the highest recorded run
func (s *Storage) NextRunID() (id.Round, error) {
	runs, err := s.GetRuns()
	if err != nil {
		return 0, err
	}
	if len(runs) == 0 {
		return 0, nil
	}
	return id.Round(runs[len(runs)-1].Id + 1), nil
}

// StartRun records the beginning of a run
func (s *Storage) StartRun(runID id.Round, numParticipants int,
	parallel bool) (*Run, error) {
	run := &Run{
		Id:              uint64(runID),
		NumParticipants: uint32(numParticipants),
		Parallel:        parallel,
		Status:          RunStarted,
		StartedAt:       time.Now(),
	}
	return run, s.InsertRun(run)
}

// CompleteRun marks the run as successful and stores the agreed roster digest
func (s *Storage) CompleteRun(run *Run, rosterDigest []byte) error {
	run.Status = RunCompleted
	run.RosterDigest = rosterDigest
	run.EndedAt = time.Now()
	return s.UpdateRun(run)
}

// FailRun marks the run as failed with the cause
func (s *Storage) FailRun(run *Run, cause error) error {
	run.Status = RunFailed
	if cause != nil {
		run.Error = cause.Error()
	}
	run.EndedAt = time.Now()
	return s.UpdateRun(run)
}

// GetRunID returns the typed run ID
func (r *Run) GetRunID() id.Round {
	return id.Round(r.Id)
}
