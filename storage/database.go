////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Handles low level database control and interfaces

package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbTimeout determines maximum runtime (in seconds) of specific DB queries
const DbTimeout = 1

// Run statuses
const (
	RunStarted   = "STARTED"
	RunCompleted = "COMPLETED"
	RunFailed    = "FAILED"
)

// Interface declaration for storage methods
type database interface {
	InsertRun(run *Run) error
	UpdateRun(run *Run) error
	GetRun(runID uint64) (*Run, error)
	GetRuns() ([]*Run, error)
}

// DatabaseImpl Struct implementing the database Interface with an underlying DB
type DatabaseImpl struct {
	db *gorm.DB // Stored database connection
}

// MapImpl Struct implementing the database Interface with an underlying Map
type MapImpl struct {
	runs map[uint64]*Run
	sync.Mutex
}

// Run is the ledger entry for one protocol run. Assignments are never
// stored.
type Run struct {
	Id uint64 `gorm:"primaryKey;autoIncrement:false"`

	NumParticipants uint32 `gorm:"not null"`
	Parallel        bool   `gorm:"not null"`

	Status string `gorm:"not null"`
	Error  string

	// BLAKE2b digest of the canonical roster the participants agreed on
	RosterDigest []byte

	StartedAt time.Time `gorm:"not null"`
	EndedAt   time.Time
}

// Initialize the database interface with database backend
// Returns a database interface and error
func newDatabase(username, password, dbName, address, port string,
	devMode bool) (database, error) {
	var err error
	var db *gorm.DB

	// Connect to the database if the correct information is provided
	if address != "" && port != "" {
		// Create the database connection
		connectString := fmt.Sprintf(
			"host=%s port=%s user=%s dbname=%s sslmode=disable",
			address, port, username, dbName)
		// Handle empty database password
		if len(password) > 0 {
			connectString += fmt.Sprintf(" password=%s", password)
		}
		db, err = gorm.Open(postgres.Open(connectString), &gorm.Config{
			Logger: logger.New(jww.TRACE, logger.Config{LogLevel: logger.Info}),
		})
	}

	// Return the map-backend interface
	// in the event there is a database error or information is not provided
	if (address == "" || port == "") || err != nil {

		var failReason string
		if err != nil {
			failReason = fmt.Sprintf("Unable to initialize database backend: %+v", err)
		} else {
			failReason = "Database backend connection information not provided"
		}
		jww.WARN.Printf(failReason)

		if !devMode {
			return nil, errors.Errorf("Cannot run outside of dev mode "+
				"without a database: %s", failReason)
		}

		defer jww.INFO.Println("Map backend initialized successfully!")
		return database(newMapImpl()), nil
	}

	// Get and configure the internal database ConnPool
	sqlDb, err := db.DB()
	if err != nil {
		return nil, errors.Errorf("Unable to configure database connection pool: %+v", err)
	}
	sqlDb.SetMaxIdleConns(2)
	sqlDb.SetMaxOpenConns(10)
	sqlDb.SetConnMaxLifetime(24 * time.Hour)

	if err = db.AutoMigrate(&Run{}); err != nil {
		return nil, errors.WithMessage(err, "failed to migrate run ledger")
	}

	jww.INFO.Println("Database backend initialized successfully!")
	return database(&DatabaseImpl{db: db}), nil
}

func newMapImpl() *MapImpl {
	return &MapImpl{
		runs: make(map[uint64]*Run),
	}
}
