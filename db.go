// Core database type and lifecycle operations.
//
// DB owns the log file, the in-memory index and the id generator. It embeds
// the root Store, so the store API is available directly on *DB; Group
// derives prefix-scoped views that share all of this state.
package taildb

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Config holds database configuration options.
type Config struct {
	Checksum   int          // 1=xxHash3, 2=FNV1a, 3=Blake2b (default xxHash3)
	ReadBuffer int          // Buffer size for replay (default 64KB)
	SyncWrites bool         // Call fsync after every batch
	Validator  Validator    // Root validator, inherited by groups
	IDs        IDConfig     // Generated id format
	Logger     *slog.Logger // Diagnostics (default discards)
}

// DB represents an open database. It is safe for concurrent use within one
// process. Opening the same file from two processes is not supported.
type DB struct {
	Store

	path   string
	file   *os.File
	index  *index
	ids    *idgen
	config Config
	log    *slog.Logger
	closed bool
	mu     sync.RWMutex // guards index, ids, file and closed as one unit
}

// Stats describes the committed contents of the log.
type Stats struct {
	Keys    int   // Distinct ids
	Records int   // Revisions across all ids
	Size    int64 // Committed bytes
}

// Open opens or creates the database file at path and replays it.
func Open(path string, config Config) (*DB, error) {
	if config.Checksum == 0 {
		config.Checksum = AlgXXHash3
	}
	if config.ReadBuffer == 0 {
		config.ReadBuffer = 64 * 1024
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	db := &DB{
		path:   path,
		file:   file,
		index:  newIndex(),
		ids:    newIDGen(config.IDs),
		config: config,
		log:    config.Logger.With("db", path),
	}
	db.Store = Store{db: db, validator: config.Validator}

	if err := db.replay(); err != nil {
		file.Close()
		return nil, err
	}

	db.log.Debug("opened",
		"keys", len(db.index.keys), "records", db.index.records, "size", db.index.end)
	return db, nil
}

// Close releases the file. Further calls on the DB or any of its groups
// return ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return db.file.Close()
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// Stats returns counts for the committed log.
func (db *DB) Stats() (Stats, error) {
	if err := db.blockRead(); err != nil {
		return Stats{}, err
	}
	defer db.mu.RUnlock()

	return Stats{
		Keys:    len(db.index.keys),
		Records: db.index.records,
		Size:    db.index.end,
	}, nil
}

// Blocking methods for concurrency control. On success the caller holds
// the lock and must release it.

func (db *DB) blockWrite() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	return nil
}

func (db *DB) blockRead() error {
	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return ErrClosed
	}
	return nil
}
