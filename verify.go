// Full integrity check of the committed log.
//
// Replay only parses the _id of each record, so damage elsewhere in a
// record goes unnoticed until that revision is read. Verify reads and
// decodes every revision of every id. It holds the read lock for the whole
// pass, so writers wait but readers do not.
package taildb

import "fmt"

// Verify decodes every committed record and returns the first failure,
// wrapping ErrCorruptRecord with the id and revision. It returns the
// number of records checked.
func (db *DB) Verify() (int, error) {
	if err := db.blockRead(); err != nil {
		return 0, err
	}
	defer db.mu.RUnlock()

	n := 0
	for _, id := range db.index.keys {
		for rev, loc := range db.index.revs[id] {
			data, err := db.load(loc)
			if err != nil {
				return n, fmt.Errorf("verify: %w", err)
			}
			if _, err := decode(data); err != nil {
				return n, fmt.Errorf("%w: %q _rev %d at offset %d", err, id, rev+1, loc.offset)
			}
			n++
		}
	}
	db.log.Debug("verified", "records", n)
	return n, nil
}
