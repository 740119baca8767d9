// Document retrieval operations.
package taildb

import (
	"errors"
	"fmt"
)

// Has reports whether id exists. It fails with ErrWrongPrefix if id is
// outside this store's prefix.
func (s *Store) Has(id string) (bool, error) {
	if err := s.check(id); err != nil {
		return false, err
	}
	if err := s.db.blockRead(); err != nil {
		return false, err
	}
	defer s.db.mu.RUnlock()

	return s.db.index.last(id) > 0, nil
}

// Find returns the latest revision of id, or nil if it does not exist.
func (s *Store) Find(id string) (Document, error) {
	doc, err := s.FindOrFail(id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// FindOrFail returns the latest revision of id, or ErrNotFound.
func (s *Store) FindOrFail(id string) (Document, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	return s.db.read(id, s.db.index.last(id))
}

// Read returns revision rev of id. It fails with ErrNotFound for an unknown
// id and ErrRevisionNotFound for a revision outside 1.._rev.
func (s *Store) Read(id string, rev int) (Document, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	return s.db.read(id, rev)
}

// Revisions returns the number of revisions of id, 0 if unknown.
func (s *Store) Revisions(id string) (int, error) {
	if err := s.check(id); err != nil {
		return 0, err
	}
	if err := s.db.blockRead(); err != nil {
		return 0, err
	}
	defer s.db.mu.RUnlock()

	return s.db.index.last(id), nil
}

// Raw returns the stored bytes of revision rev of id, exactly as they
// appear in the log.
func (s *Store) Raw(id string, rev int) ([]byte, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	locs := s.db.index.revs[id]
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if rev < 1 || rev > len(locs) {
		return nil, fmt.Errorf("%w: %q has no _rev %d", ErrRevisionNotFound, id, rev)
	}
	data, err := s.db.load(locs[rev-1])
	if err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}
	return data, nil
}
