// Package taildb provides an embedded, append-only JSON document store
// backed by a single log file. Every write appends a new revision, so the
// complete history of each document is kept on disk forever.
//
// The file is a sequence of batches. A batch holds one or more compact JSON
// records joined by a tab and is terminated by a newline; the newline is the
// commit marker. Revision numbers are not stored: the Nth record carrying a
// given _id is revision N. On Open the log is replayed into an in-memory
// index of sorted keys and per-revision byte ranges, and any bytes after the
// last newline (an interrupted write) are truncated away. Values are never
// cached in memory; reads go straight to the file via ReadAt.
//
// A Group is a view of the same file restricted to ids sharing a prefix.
// Groups mint monotonically increasing ids for new documents and carry their
// own validator.
package taildb

import "errors"

// Sentinel errors for programmatic handling. Logical errors (everything
// except I/O failures) are returned before any byte is written, so a failed
// Put never leaves part of its batch behind.
var (
	ErrNotFound         = errors.New("document not found")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidID        = errors.New("invalid _id")
	ErrWrongPrefix      = errors.New("_id has wrong prefix")
	ErrMissingID        = errors.New("missing _id")
	ErrRevisionConflict = errors.New("_rev conflict")
	ErrGenerationRate   = errors.New("id generation rate exceeded")
	ErrIDCollision      = errors.New("generated _id already exists")
	ErrNestedGroup      = errors.New("cannot group a group")
	ErrInvalidSkip      = errors.New("skip must be >= 0")
	ErrClosed           = errors.New("database is closed")
	ErrCorruptRecord    = errors.New("corrupt record")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrDecompress       = errors.New("decompression failed")
)

// StatusCode maps an error returned by the store to an HTTP status code,
// for consumers that expose the store over HTTP.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRevisionNotFound):
		return 404
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrWrongPrefix),
		errors.Is(err, ErrMissingID),
		errors.Is(err, ErrRevisionConflict),
		errors.Is(err, ErrInvalidSkip):
		return 400
	case errors.Is(err, ErrGenerationRate):
		return 503
	default:
		return 500
	}
}
