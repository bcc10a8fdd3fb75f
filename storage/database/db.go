// Package database opens the core.Store selected by the configuration.
package database

import (
	"database/sql"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/kohkiet/swp-lms/core"
	appfs "github.com/kohkiet/swp-lms/fs"
	inmemdb "github.com/kohkiet/swp-lms/storage/database/inmem"
	redisdb "github.com/kohkiet/swp-lms/storage/database/redis"
	sqlxdb "github.com/kohkiet/swp-lms/storage/database/sqlx"
)

const sqliteDriver = "sqlite"

func init() {
	goose.SetBaseFS(appfs.FS)
	goose.SetLogger(log.New(io.Discard, "", 0))
}

// Open returns the store for conf.Storage.Engine, migrated and ready to use.
func Open(conf *core.Config) (core.Store, error) {
	switch conf.Storage.Engine {
	case core.StorageMemory:
		return inmemdb.Open(), nil
	case core.StorageRedis:
		return redisdb.Open(redisdb.Options{
			Addr:     conf.Storage.RedisAddr,
			Password: conf.Storage.RedisPassword,
			DB:       conf.Storage.RedisDB,
			Prefix:   conf.Storage.RedisPrefix,
		})
	default:
		db, err := OpenSQLite(conf.Storage.Path)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return sqlxdb.NewStore(db), nil
	}
}

// OpenSQLite opens (creating it if needed) the sqlite file at path. ":memory:" is accepted.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != dsn {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Wrap(err, "creating storage directory")
		}
		dsn = "file:" + path
	}
	db, err := sql.Open(sqliteDriver, dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 5
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func Migrate(db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
