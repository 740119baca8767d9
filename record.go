// Record encoding for the log file.
//
// A record is the compact JSON of one document revision with _id embedded
// and _rev removed. Revision numbers are positional: they are never written
// to disk and are recomputed on replay.
package taildb

import (
	"fmt"
	"maps"
	"math"

	json "github.com/goccy/go-json"
)

// Reserved document fields.
const (
	FieldID  = "_id"
	FieldRev = "_rev"
)

// Document is a JSON object. Documents returned by the store always carry
// _id (string) and _rev (int).
type Document map[string]any

// ID returns the document's _id, or "" if it has none.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Rev returns the document's _rev, or 0 if it has none.
func (d Document) Rev() int {
	rev, _ := revision(d[FieldRev])
	return rev
}

// strip returns a shallow copy of d without _rev. The caller's map is never
// modified by Put.
func (d Document) strip() Document {
	out := make(Document, len(d)+1)
	maps.Copy(out, d)
	delete(out, FieldRev)
	return out
}

// revision converts a caller-supplied _rev to an int. JSON numbers decoded
// into any are float64, so integral floats are accepted.
func revision(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case interface{ Int64() (int64, error) }: // json.Number
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// encode serialises a document into a single record. JSON escapes control
// characters inside strings, so the output never contains a raw tab or
// newline and is safe to frame with them.
func encode(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return data, nil
}

// decode parses a record back into a document.
func decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, ErrCorruptRecord
	}
	return doc, nil
}

// recordID extracts _id without materialising the rest of the document.
// Used during replay, where every record in the file is visited.
func recordID(data []byte) (string, error) {
	var head struct {
		ID *string `json:"_id"`
	}
	if len(data) == 0 || data[0] != '{' {
		return "", ErrCorruptRecord
	}
	if err := json.Unmarshal(data, &head); err != nil || head.ID == nil {
		return "", ErrCorruptRecord
	}
	return *head.ID, nil
}
