package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Collection is a persistent store of documents
type Collection interface {
	Open() error
	Close()
	Upsert(context.Context, Record) error
	SelectAll(context.Context) ([]Record, error)
	SelectLatest(ctx context.Context, n int) ([]Record, error)
	Find(ctx context.Context, id string) (*Record, error)
}

// sqliteCollection is a named collection of documents in a sqlite database.
// Several collections can share one database file.
type sqliteCollection struct {
	name       string
	connection string
	db         *gorm.DB
	sqldb      *sql.DB
}

// documentRow is the gorm model for a database row
type documentRow struct {
	ID         uint
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Collection string `gorm:"uniqueIndex:idx_collection_document"`
	DocumentID string `gorm:"uniqueIndex:idx_collection_document"`
	Published  time.Time
	JSON       string
}

func (documentRow) TableName() string {
	return "documents"
}

func (row documentRow) record() Record {
	return Record{
		ID:        row.DocumentID,
		Published: row.Published.UTC(),
		JSON:      []byte(row.JSON),
	}
}

func (s *sqliteCollection) Open() error {
	if s.db != nil {
		s.Close()
	}
	newLogger := logger.New(
		telemetry.Printer{},
		logger.Config{
			SlowThreshold:             time.Second,  // Slow SQL threshold
			LogLevel:                  logger.Error, // Log level
			IgnoreRecordNotFoundError: true,         // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,        // Disable color
		},
	)
	db, err := gorm.Open(sqlite.Open(s.connection), &gorm.Config{
		Logger: newLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return err
	}
	s.sqldb, err = db.DB()
	if err != nil {
		return err
	}
	s.db = db
	// create tables
	if err := s.db.Migrator().AutoMigrate(&documentRow{}); err != nil {
		return fmt.Errorf("migrating collection %s: %w", s.name, err)
	}
	return nil
}

func (s *sqliteCollection) Close() {
	if s.db != nil {
		s.sqldb.Close()
		s.sqldb = nil
		s.db = nil
	}
}

func (s *sqliteCollection) opened() error {
	if s.db == nil {
		return fmt.Errorf("collection %s has not been opened", s.name)
	}
	return nil
}

func (s *sqliteCollection) Upsert(ctx context.Context, rec Record) error {
	if err := s.opened(); err != nil {
		return err
	}
	if rec.ID == "" {
		return ErrNoID
	}
	var row documentRow
	tx := s.db.WithContext(ctx).Where(&documentRow{Collection: s.name, DocumentID: rec.ID}).First(&row)
	if tx.Error == nil {
		// found, update the row
		row.Published = rec.Published.UTC()
		row.JSON = string(rec.JSON)
		tx := s.db.WithContext(ctx).Save(&row)
		if tx.Error != nil {
			return fmt.Errorf("error updating %s document ID %s: %w", s.name, rec.ID, tx.Error)
		}
		return nil
	} else if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		// not found, insert a new row
		tx := s.db.WithContext(ctx).Create(&documentRow{
			Collection: s.name,
			DocumentID: rec.ID,
			Published:  rec.Published.UTC(),
			JSON:       string(rec.JSON),
		})
		if tx.Error != nil {
			return fmt.Errorf("error creating %s document ID %s: %w", s.name, rec.ID, tx.Error)
		}
		return nil
	}
	// database error
	return fmt.Errorf("error finding document ID %s: %w", rec.ID, tx.Error)
}

func (s *sqliteCollection) SelectAll(ctx context.Context) ([]Record, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	return s.selectRows(s.db.WithContext(ctx).Order("published asc, id asc"))
}

// SelectLatest returns up to n records, newest first.
func (s *sqliteCollection) SelectLatest(ctx context.Context, n int) ([]Record, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	return s.selectRows(s.db.WithContext(ctx).Order("published desc, id desc").Limit(n))
}

func (s *sqliteCollection) selectRows(query *gorm.DB) ([]Record, error) {
	var rows []documentRow
	tx := query.Where(&documentRow{Collection: s.name}).Find(&rows)
	if tx.Error != nil {
		return nil, fmt.Errorf("database error in %s: %w", s.name, tx.Error)
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// Find returns the record with the given id, or nil if there is none.
func (s *sqliteCollection) Find(ctx context.Context, id string) (*Record, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	var row documentRow
	tx := s.db.WithContext(ctx).Where(&documentRow{Collection: s.name, DocumentID: id}).First(&row)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, fmt.Errorf("error finding %s document ID %s: %w", s.name, id, tx.Error)
	}
	rec := row.record()
	return &rec, nil
}

func NewSQLiteCollection(name string, connection string) Collection {
	return &sqliteCollection{
		name:       name,
		connection: connection,
	}
}
