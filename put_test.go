package taildb

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestPutRootRequiresID(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Put(Document{"word": "cat", "x": 1.0, "y": 2.0})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("Put without _id = %v, want ErrMissingID", err)
	}
}

func TestPutGroupScenario(t *testing.T) {
	db := openTestDB(t)
	g, err := db.Group("p-", nil)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}

	out := mustPut(t, g, Document{"word": "cat", "x": 1.0, "y": 2.0})
	id := out[0].ID()
	if !strings.HasPrefix(id, "p-") {
		t.Fatalf("generated _id %q lacks group prefix", id)
	}
	if out[0].Rev() != 1 {
		t.Errorf("_rev = %d, want 1", out[0].Rev())
	}

	out = mustPut(t, g, Document{"_id": id, "word": "dog", "x": 3.0, "y": 4.0})
	if out[0].Rev() != 2 {
		t.Errorf("_rev = %d, want 2", out[0].Rev())
	}

	history, err := g.History(id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History len = %d, want 2", len(history))
	}
	if history[0]["word"] != "cat" || history[0].Rev() != 1 {
		t.Errorf("history[0] = %v, want cat@1", history[0])
	}
	if history[1]["word"] != "dog" || history[1].Rev() != 2 {
		t.Errorf("history[1] = %v, want dog@2", history[1])
	}
}

func TestPutFindRoundTrip(t *testing.T) {
	db := openTestDB(t)
	in := Document{
		"_id":    "doc",
		"_rev":   nil,
		"name":   "tab\there\nnewline",
		"n":      42.5,
		"ok":     true,
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"k": "v"},
	}

	mustPut(t, &db.Store, in)
	got, err := db.FindOrFail("doc")
	if err != nil {
		t.Fatalf("FindOrFail: %v", err)
	}

	want := Document{
		"_id":    "doc",
		"_rev":   1,
		"name":   "tab\there\nnewline",
		"n":      42.5,
		"ok":     true,
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"k": "v"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindOrFail = %#v, want %#v", got, want)
	}
}

func TestPutStripsRev(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "doc", "v": 1.0})
	mustPut(t, &db.Store, Document{"_id": "doc", "_rev": 1, "v": 2.0})

	raw, err := db.Raw("doc", 2)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if strings.Contains(string(raw), "_rev") {
		t.Errorf("stored record contains _rev: %s", raw)
	}
}

func TestPutDoesNotMutateInput(t *testing.T) {
	db := openTestDB(t)
	g, _ := db.Group("p-", nil)

	in := Document{"v": 1.0}
	mustPut(t, g, in)
	if len(in) != 1 {
		t.Errorf("input modified: %v", in)
	}
}

func TestPutRevisionConflict(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "doc", "v": 1.0})
	mustPut(t, &db.Store, Document{"_id": "doc", "v": 2.0})

	if _, err := db.Put(Document{"_id": "doc", "_rev": 1, "v": 3.0}); !errors.Is(err, ErrRevisionConflict) {
		t.Errorf("stale _rev = %v, want ErrRevisionConflict", err)
	}
	if _, err := db.Put(Document{"_id": "doc", "_rev": 3, "v": 3.0}); !errors.Is(err, ErrRevisionConflict) {
		t.Errorf("future _rev = %v, want ErrRevisionConflict", err)
	}

	out, err := db.Put(Document{"_id": "doc", "_rev": 2.0, "v": 3.0})
	if err != nil {
		t.Fatalf("matching _rev: %v", err)
	}
	if out[0].Rev() != 3 {
		t.Errorf("_rev = %d, want 3", out[0].Rev())
	}
}

func TestPutInvalidRev(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "doc"})

	for _, rev := range []any{0, -1, 1.5, "1", true} {
		if _, err := db.Put(Document{"_id": "doc", "_rev": rev}); !errors.Is(err, ErrRevisionConflict) {
			t.Errorf("_rev %v: err = %v, want ErrRevisionConflict", rev, err)
		}
	}
}

func TestPutRevWithoutID(t *testing.T) {
	db := openTestDB(t)
	g, _ := db.Group("p-", nil)

	if _, err := g.Put(Document{"_rev": 1, "v": 1.0}); !errors.Is(err, ErrMissingID) {
		t.Errorf("_rev without _id = %v, want ErrMissingID", err)
	}
}

func TestPutRevOnNewDocument(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Put(Document{"_id": "new", "_rev": 1}); !errors.Is(err, ErrRevisionConflict) {
		t.Errorf("_rev on new doc = %v, want ErrRevisionConflict", err)
	}
}

func TestPutInvalidID(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []any{42.0, nil, true, "bad\xffutf8"} {
		if _, err := db.Put(Document{"_id": id}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("_id %v: err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestPutGroupRules(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "other"})
	g, _ := db.Group("p-", nil)

	if _, err := g.Put(Document{"_id": "other"}); !errors.Is(err, ErrWrongPrefix) {
		t.Errorf("wrong prefix = %v, want ErrWrongPrefix", err)
	}
	if _, err := g.Put(Document{"_id": "p-chosen"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("new caller id in group = %v, want ErrInvalidID", err)
	}

	// The root may create an id inside the group's range; the group can
	// then update it.
	mustPut(t, &db.Store, Document{"_id": "p-chosen"})
	if _, err := g.Put(Document{"_id": "p-chosen", "v": 1.0}); err != nil {
		t.Errorf("update of existing id in group: %v", err)
	}
}

func TestPutValidator(t *testing.T) {
	db := openAt(t, filepath.Join(t.TempDir(), "test.db"), Config{
		Validator: func(doc Document) error {
			if _, ok := doc["word"].(string); !ok {
				return errors.New("word must be a string")
			}
			if _, ok := doc["_rev"]; ok {
				return errors.New("validator should not see _rev")
			}
			return nil
		},
	})

	if _, err := db.Put(Document{"_id": "a", "word": 1.0}); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid doc = %v, want ErrValidation", err)
	}
	mustPut(t, &db.Store, Document{"_id": "a", "word": "cat"})
	mustPut(t, &db.Store, Document{"_id": "a", "_rev": 1, "word": "dog"})

	// Groups inherit the root validator unless given their own.
	inherit, _ := db.Group("i-", nil)
	if _, err := inherit.Put(Document{"word": 1.0}); !errors.Is(err, ErrValidation) {
		t.Errorf("inherited validator = %v, want ErrValidation", err)
	}
	own, _ := db.Group("o-", func(Document) error { return nil })
	if _, err := own.Put(Document{"word": 1.0}); err != nil {
		t.Errorf("group validator: %v", err)
	}
}

func TestPutValidatorCannotStoreRev(t *testing.T) {
	db := openAt(t, filepath.Join(t.TempDir(), "test.db"), Config{
		Validator: func(doc Document) error {
			doc["_rev"] = 99
			doc["checked"] = true
			return nil
		},
	})

	out := mustPut(t, &db.Store, Document{"_id": "a"})
	if out[0].Rev() != 1 {
		t.Errorf("Rev = %d, want 1", out[0].Rev())
	}
	raw, _ := db.Raw("a", 1)
	if string(raw) != `{"_id":"a","checked":true}` {
		t.Errorf("stored record = %s", raw)
	}
}

func TestPutBatchAtomicOnError(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "a"})
	before, _ := os.Stat(db.Path())

	_, err := db.Put(Document{"_id": "b"}, Document{"_id": "c"}, Document{"v": 1.0})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("Put = %v, want ErrMissingID", err)
	}

	after, _ := os.Stat(db.Path())
	if before.Size() != after.Size() {
		t.Errorf("file grew from %d to %d after rejected batch", before.Size(), after.Size())
	}
	if ok, _ := db.Has("b"); ok {
		t.Error("document from rejected batch is visible")
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestPutBatchSingleLine(t *testing.T) {
	db := openTestDB(t)
	out := mustPut(t, &db.Store, Document{"_id": "b"}, Document{"_id": "a"}, Document{"_id": "b"})

	if out[0].Rev() != 1 || out[1].Rev() != 1 || out[2].Rev() != 2 {
		t.Errorf("revs = %d %d %d, want 1 1 2", out[0].Rev(), out[1].Rev(), out[2].Rev())
	}

	data, _ := os.ReadFile(db.Path())
	if strings.Count(string(data), "\n") != 1 || strings.Count(string(data), "\t") != 2 {
		t.Errorf("batch not written as one line: %q", data)
	}
}

func TestPutBatchRevSeesEarlierEntries(t *testing.T) {
	db := openTestDB(t)
	mustPut(t, &db.Store, Document{"_id": "a"})

	out, err := db.Put(Document{"_id": "a", "_rev": 1}, Document{"_id": "a", "_rev": 2})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if out[1].Rev() != 3 {
		t.Errorf("_rev = %d, want 3", out[1].Rev())
	}
}

func TestPutEmpty(t *testing.T) {
	db := openTestDB(t)
	out, err := db.Put()
	if err != nil || out != nil {
		t.Errorf("Put() = %v, %v, want nil, nil", out, err)
	}
	if info, _ := os.Stat(db.Path()); info.Size() != 0 {
		t.Errorf("empty Put wrote %d bytes", info.Size())
	}
}

func TestPutNilDocument(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Put(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Put(nil) = %v, want ErrValidation", err)
	}
}

func TestPutUnencodable(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Put(Document{"_id": "a", "c": make(chan int)}); !errors.Is(err, ErrValidation) {
		t.Errorf("Put(chan) = %v, want ErrValidation", err)
	}
}

func TestPutGeneratedIDsSorted(t *testing.T) {
	db := openTestDB(t)
	g, _ := db.Group("p-", nil)

	var ids []string
	for range 20 {
		out := mustPut(t, g, Document{}, Document{})
		ids = append(ids, out[0].ID(), out[1].ID())
	}

	keys, _ := g.Keys()
	if len(keys) != len(ids) {
		t.Fatalf("Keys len = %d, want %d", len(keys), len(ids))
	}
	for i := range ids {
		if keys[i] != ids[i] {
			t.Fatalf("generation order %v does not match key order %v", ids, keys)
		}
	}
}
