// Log replay and crash recovery.
//
// Open rebuilds the index by reading the log from the start. Each complete
// line is a committed batch; its records are split on tabs and registered
// in file order, so the Nth record carrying an _id becomes revision N.
//
// A batch is only committed once its newline is on disk. Bytes after the
// last newline belong to a write that was interrupted, so they are
// truncated away before the store accepts new writes. This is not an
// error: the caller never received an acknowledgement for that batch.
//
// A complete line that does not parse is different. It was acknowledged,
// so silently dropping it would lose data; Open fails with
// ErrCorruptRecord instead.
package taildb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// replay populates db.index from the file and truncates any partial tail.
func (db *DB) replay() error {
	sz, err := size(db.file)
	if err != nil {
		return fmt.Errorf("open: stat: %w", err)
	}

	reader := bufio.NewReaderSize(io.NewSectionReader(db.file, 0, sz), db.config.ReadBuffer)
	var offset int64
	for {
		ln, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break // ln holds the unterminated tail, if any
		}
		if err != nil {
			return fmt.Errorf("open: read: %w", err)
		}

		if err := db.batch(ln[:len(ln)-1], offset); err != nil {
			return err
		}
		offset += int64(len(ln))
	}

	if offset < sz {
		db.log.Warn("removing incomplete write at end of log",
			"path", db.path, "bytes", sz-offset, "offset", offset)
		if err := db.file.Truncate(offset); err != nil {
			return fmt.Errorf("open: truncate: %w", err)
		}
		if err := db.file.Sync(); err != nil {
			return fmt.Errorf("open: sync: %w", err)
		}
	}
	return nil
}

// batch registers every record of one committed line starting at offset.
func (db *DB) batch(line []byte, offset int64) error {
	for {
		rec, rest, more := bytes.Cut(line, []byte{'\t'})
		id, err := recordID(rec)
		if err != nil {
			return fmt.Errorf("open: %w: offset %d", err, offset)
		}
		db.index.register(id, len(rec))
		offset += int64(len(rec)) + 1
		if !more {
			return nil
		}
		line = rest
	}
}
