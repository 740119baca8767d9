// Low-level read primitives.
//
// Records are located through the index, so a read is a single ReadAt of a
// known byte range. ReadAt does not move the shared file offset, which lets
// readers run concurrently on one *os.File.
package taildb

import (
	"fmt"
	"os"
)

// load reads the raw bytes of one record.
func (db *DB) load(loc location) ([]byte, error) {
	buf := make([]byte, loc.length)
	if _, err := db.file.ReadAt(buf, loc.offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// read returns revision rev of id. Called with db.mu held.
func (db *DB) read(id string, rev int) (Document, error) {
	locs := db.index.revs[id]
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if rev < 1 || rev > len(locs) {
		return nil, fmt.Errorf("%w: %q has no _rev %d", ErrRevisionNotFound, id, rev)
	}

	loc := locs[rev-1]
	data, err := db.load(loc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: offset %d", err, loc.offset)
	}
	doc[FieldID] = id
	doc[FieldRev] = rev
	return doc, nil
}

func size(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
