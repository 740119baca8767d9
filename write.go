// Write primitive for the append-only log.
//
// A batch is written with a single WriteAt at the committed end of the log.
// If the process dies mid-write, a prefix of the batch may reach the disk
// but never its terminating newline, and replay on the next Open discards
// it. Writing at the committed end instead of appending means a failed
// write's leftovers are overwritten by the next batch.
package taildb

import (
	"errors"
	"fmt"
)

// frame joins records with tabs and terminates the batch with a newline.
func frame(records [][]byte) []byte {
	n := 0
	for _, r := range records {
		n += len(r) + 1
	}
	buf := make([]byte, 0, n)
	for i, r := range records {
		if i > 0 {
			buf = append(buf, '\t')
		}
		buf = append(buf, r...)
	}
	return append(buf, '\n')
}

// append writes one batch at the committed end of the log. The index is
// not touched; the caller registers each record once the write succeeds.
// On failure the file is cut back to the committed end.
func (db *DB) append(records [][]byte) error {
	offset := db.index.end
	if _, err := db.file.WriteAt(frame(records), offset); err != nil {
		return db.rollback(offset, err)
	}
	if db.config.SyncWrites {
		if err := db.file.Sync(); err != nil {
			return db.rollback(offset, err)
		}
	}
	return nil
}

// rollback truncates a failed batch. If that fails too, a complete batch
// may remain past end and would be replayed as committed on the next Open,
// so the truncate error is logged and returned alongside the write error.
func (db *DB) rollback(offset int64, err error) error {
	terr := db.file.Truncate(offset)
	if terr == nil {
		return err
	}
	db.log.Warn("failed to remove rejected batch; it may reappear on reopen",
		"path", db.path, "offset", offset, "error", terr)
	return errors.Join(err, fmt.Errorf("truncate: %w", terr))
}
