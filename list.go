// Key enumeration and paging.
//
// The key range of a store is found by binary search over the sorted key
// list, so Count is O(log n) and paging never touches the disk until a
// document is actually read.
package taildb

import (
	"iter"
	"slices"
)

// IterOptions selects a page of documents.
type IterOptions struct {
	Skip    int  // Documents to skip from the start (or end, if Reverse)
	Limit   int  // Maximum documents to yield; 0 or negative means no limit, not none
	Reverse bool // Iterate from the highest key down
}

// Iter yields the latest revision of each document in this store in key
// order. The key range is captured when iteration starts; documents are
// read one at a time as the caller consumes them and can break early.
func (s *Store) Iter(opts IterOptions) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		if opts.Skip < 0 {
			yield(nil, ErrInvalidSkip)
			return
		}

		keys, err := s.Keys()
		if err != nil {
			yield(nil, err)
			return
		}

		for _, id := range page(keys, opts) {
			doc, err := s.latest(id)
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

// List drains Iter into a slice.
func (s *Store) List(opts IterOptions) ([]Document, error) {
	var out []Document
	for doc, err := range s.Iter(opts) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Count returns the number of documents in this store.
func (s *Store) Count() (int, error) {
	if err := s.db.blockRead(); err != nil {
		return 0, err
	}
	defer s.db.mu.RUnlock()

	lo, hi := s.span()
	return hi - lo, nil
}

// Keys returns a sorted copy of the ids in this store. Modifying the result
// does not affect the index.
func (s *Store) Keys() ([]string, error) {
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	lo, hi := s.span()
	return slices.Clone(s.db.index.keys[lo:hi]), nil
}

func (s *Store) latest(id string) (Document, error) {
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	return s.db.read(id, s.db.index.last(id))
}

// page applies skip, limit and direction to keys, which it may reorder.
func page(keys []string, opts IterOptions) []string {
	if opts.Reverse {
		slices.Reverse(keys)
	}
	if opts.Skip >= len(keys) {
		return nil
	}
	keys = keys[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < len(keys) {
		keys = keys[:opts.Limit]
	}
	return keys
}
