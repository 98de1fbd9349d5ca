package storage

import (
	"database/sql"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database interface {
	Open() error
	Close()
	Actors
	FollowersOf(owner string) Followers
}

// sqliteDatabase keeps remote actors and local users' followers in sqlite
type sqliteDatabase struct {
	connection string
	db         *gorm.DB
	sqldb      *sql.DB
}

func (s *sqliteDatabase) Open() error {
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
	return s.db.Migrator().AutoMigrate(&Actor{}, &Follow{})
}

func (s *sqliteDatabase) Close() {
	if s.db != nil {
		s.sqldb.Close()
		s.sqldb = nil
		s.db = nil
	}
}

func NewDatabase(connection string) Database {
	return &sqliteDatabase{
		connection: connection,
	}
}
