// Batch insert and update.
//
// Put resolves every document before writing anything: validator, _id
// rules, _rev check and id generation all run first, and the first failure
// aborts the call with the file untouched. The resolved documents are then
// encoded and appended as one batch.
package taildb

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Put writes each document as a new revision and returns the stored
// documents, in input order, with _id and the assigned _rev set.
//
// Rules per document:
//   - _id, if present, must be a string. In a group it must carry the
//     group prefix and already exist; groups only create documents with
//     generated ids.
//   - _id, if absent, is generated in a group and is an error at the root.
//   - _rev, if present, must equal the document's current revision.
//     Anything else, older or newer, is a conflict.
//
// A document repeated in one call sees the revisions assigned to its
// earlier occurrences.
func (s *Store) Put(docs ...Document) ([]Document, error) {
	if err := s.db.blockWrite(); err != nil {
		return nil, err
	}
	defer s.db.mu.Unlock()

	if len(docs) == 0 {
		return nil, nil
	}

	x := s.db.index
	out := make([]Document, len(docs))
	ids := make([]string, len(docs))
	pending := make(map[string]int) // revisions claimed earlier in this batch

	for i, in := range docs {
		if in == nil {
			return nil, fmt.Errorf("%w: document %d is nil", ErrValidation, i)
		}
		doc := in.strip()

		if s.validator != nil {
			if err := s.validator(doc); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			delete(doc, FieldRev) // revisions are positional, never stored
		}

		raw, hasID := doc[FieldID]
		id, ok := raw.(string)
		switch {
		case hasID && (!ok || !utf8.ValidString(id)):
			return nil, fmt.Errorf("%w: must be a string, got %T", ErrInvalidID, raw)
		case hasID && s.grouped && !strings.HasPrefix(id, s.prefix):
			return nil, fmt.Errorf("%w: %q should begin with %q", ErrWrongPrefix, id, s.prefix)
		case hasID && s.grouped && x.last(id)+pending[id] == 0:
			return nil, fmt.Errorf("%w: %q does not exist", ErrInvalidID, id)
		case !hasID && !s.grouped:
			return nil, ErrMissingID
		}

		if v, ok := in[FieldRev]; ok && v != nil {
			rev, valid := revision(v)
			if !valid || rev < 1 {
				return nil, fmt.Errorf("%w: invalid _rev %v", ErrRevisionConflict, v)
			}
			if !hasID {
				return nil, fmt.Errorf("%w: document has _rev but no _id", ErrMissingID)
			}
			if cur := x.last(id) + pending[id]; rev != cur {
				return nil, fmt.Errorf("%w: %q is at _rev %d, got %d", ErrRevisionConflict, id, cur, rev)
			}
		}

		if !hasID {
			gen, err := s.db.ids.Next()
			if err != nil {
				return nil, err
			}
			id = s.prefix + gen
			// Only reachable if the generator went backwards, e.g. a
			// restart inside one window or a misconfigured IDConfig.
			if x.last(id)+pending[id] != 0 {
				return nil, fmt.Errorf("%w: %q", ErrIDCollision, id)
			}
			doc[FieldID] = id
		}

		pending[id]++
		out[i] = doc
		ids[i] = id
	}

	records := make([][]byte, len(out))
	for i, doc := range out {
		data, err := encode(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		records[i] = data
	}

	if err := s.db.append(records); err != nil {
		return nil, fmt.Errorf("put: append: %w", err)
	}
	for i, doc := range out {
		doc[FieldRev] = x.register(ids[i], len(records[i]))
	}
	return out, nil
}
