package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens a snapshot database read-only. Snapshots are written by the
// collector (or the seeder) and never mutated from the browser.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	return open(dsn)
}

// OpenWritable opens a snapshot database for writing, used by the seeder.
func OpenWritable(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	return open(dsn)
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := checkFTS5(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// checkFTS5 verifies the sqlite driver carries FTS5, which every search
// query and shadow table depends on. go-sqlite3 only compiles it in
// behind the sqlite_fts5 build tag; the Makefile sets it everywhere.
func checkFTS5(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow(`SELECT sqlite_compileoption_used('ENABLE_FTS5')`).Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite build: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite driver built without FTS5, rebuild with -tags sqlite_fts5")
	}
	return nil
}

// WithTx runs fn in a transaction.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
