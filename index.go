// In-memory index rebuilt by replaying the log.
//
// keys is the sorted, deduplicated list of every _id ever written. revs
// maps each _id to the byte range of every revision, oldest first, so
// revision N lives at revs[id][N-1]. Only locations are held in memory;
// document bodies stay on disk.
package taildb

import "slices"

// location is the byte range of one record in the log.
type location struct {
	offset int64
	length int
}

type index struct {
	keys    []string
	revs    map[string][]location
	end     int64 // committed length of the log
	records int
}

func newIndex() *index {
	return &index{revs: make(map[string][]location)}
}

// register records a revision of id stored at the current end of the log
// and advances end past it and its one-byte separator. It returns the
// revision number just created.
func (x *index) register(id string, length int) int {
	locs, ok := x.revs[id]
	if !ok {
		i, _ := slices.BinarySearch(x.keys, id)
		x.keys = slices.Insert(x.keys, i, id)
	}
	locs = append(locs, location{offset: x.end, length: length})
	x.revs[id] = locs
	x.end += int64(length) + 1
	x.records++
	return len(locs)
}

// last returns the newest revision number of id, or 0 if id is unknown.
func (x *index) last(id string) int {
	return len(x.revs[id])
}

// prefixRange returns the half-open range [lo, hi) of keys starting with
// prefix. The upper bound is found by searching for prefix+"\xff": ids are
// valid UTF-8, which never contains the byte 0xff, so every key with the
// prefix sorts below it and every greater key without the prefix above it.
// lo == hi when nothing matches.
func (x *index) prefixRange(prefix string) (int, int) {
	if prefix == "" {
		return 0, len(x.keys)
	}
	lo, _ := slices.BinarySearch(x.keys, prefix)
	hi, _ := slices.BinarySearch(x.keys[lo:], prefix+"\xff")
	return lo, lo + hi
}
