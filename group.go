// Prefix-scoped views.
//
// The root store and its groups are the same type. A group is bound to a
// non-empty prefix: it only sees ids starting with that prefix, mints new
// ids as prefix+generated, and refuses to introduce caller-chosen ids.
// Groups share the parent's file, index and id generator; they are views,
// not copies. Scoping is one level deep.
package taildb

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validator inspects a document before it is written. Returning an error
// rejects the whole batch. The document passed in has no _rev, and has no
// _id if the store is about to generate one.
type Validator func(doc Document) error

// Store is the document API. The root store is embedded in DB; groups are
// obtained with Group.
type Store struct {
	db        *DB
	prefix    string
	grouped   bool
	validator Validator
}

// Group returns a view restricted to ids starting with prefix. A nil
// validator inherits this store's validator.
func (s *Store) Group(prefix string, validator Validator) (*Store, error) {
	if s.grouped {
		return nil, ErrNestedGroup
	}
	if prefix == "" || !utf8.ValidString(prefix) {
		return nil, fmt.Errorf("%w: group prefix %q", ErrInvalidID, prefix)
	}
	if validator == nil {
		validator = s.validator
	}
	return &Store{db: s.db, prefix: prefix, grouped: true, validator: validator}, nil
}

// Prefix returns the group prefix, or "" for the root store.
func (s *Store) Prefix() string {
	return s.prefix
}

// check rejects ids this store may not address. An id outside the prefix
// matches both ErrInvalidID and ErrWrongPrefix.
func (s *Store) check(id string) error {
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidID, id)
	}
	if !strings.HasPrefix(id, s.prefix) {
		return fmt.Errorf("%w: %w: %q should begin with %q", ErrInvalidID, ErrWrongPrefix, id, s.prefix)
	}
	return nil
}

// span returns the index range owned by this store. Called with db.mu held.
func (s *Store) span() (int, int) {
	return s.db.index.prefixRange(s.prefix)
}
