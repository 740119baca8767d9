// Revision history.
package taildb

import "fmt"

// History returns every revision of id, oldest first, so that
// History(id)[k-1] has _rev k.
func (s *Store) History(id string) ([]Document, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	if err := s.db.blockRead(); err != nil {
		return nil, err
	}
	defer s.db.mu.RUnlock()

	n := s.db.index.last(id)
	if n == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	out := make([]Document, 0, n)
	for rev := 1; rev <= n; rev++ {
		doc, err := s.db.read(id, rev)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
