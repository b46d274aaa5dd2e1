////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Handles the database ORM for the run ledger

package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Helper for forcing panics in the event of a CDE, otherwise acts as a pass-through
func catchCde(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		jww.FATAL.Panicf("Database call timed out: %+v", err.Error())
	}
	return err
}

// InsertRun adds a new Run to the Database
func (d *DatabaseImpl) InsertRun(run *Run) error {
	ctx, cancel := context.WithTimeout(context.Background(), DbTimeout*time.Second)
	defer cancel()

	return catchCde(d.db.WithContext(ctx).Create(run).Error)
}

// UpdateRun overwrites the Database Run with the same ID
func (d *DatabaseImpl) UpdateRun(run *Run) error {
	ctx, cancel := context.WithTimeout(context.Background(), DbTimeout*time.Second)
	defer cancel()

	result := d.db.WithContext(ctx).Model(&Run{Id: run.Id}).Select("*").
		Updates(run)
	if err := catchCde(result.Error); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return errors.Errorf("Unable to locate Run %d", run.Id)
	}
	return nil
}

// GetRun returns a Run from Database with the given ID
// Or an error if a matching Run does not exist
func (d *DatabaseImpl) GetRun(runID uint64) (*Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DbTimeout*time.Second)
	defer cancel()

	result := &Run{Id: runID}
	err := d.db.WithContext(ctx).Take(result).Error
	return result, catchCde(err)
}

// GetRuns returns every Run in the Database ordered by ID
func (d *DatabaseImpl) GetRuns() ([]*Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DbTimeout*time.Second)
	defer cancel()

	var runs []*Run
	err := d.db.WithContext(ctx).Order("id").Find(&runs).Error
	return runs, catchCde(err)
}
