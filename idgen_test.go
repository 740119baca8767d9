package taildb

import (
	"errors"
	"sort"
	"testing"
	"time"
)

// fakeClock returns a fixed time that tests move by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)}
}

func TestIDGenDefaults(t *testing.T) {
	g := newIDGen(IDConfig{})

	if g.base != 36 {
		t.Errorf("base = %d, want 36", g.base)
	}
	if g.window != 100*time.Millisecond {
		t.Errorf("window = %s, want 100ms", g.window)
	}
	// 200 years of 100ms windows is ~6.3e10, which needs 7 base-36 digits.
	if g.stampDigits != 7 {
		t.Errorf("stampDigits = %d, want 7", g.stampDigits)
	}
	if g.counterMax != 36*36 {
		t.Errorf("counterMax = %d, want %d", g.counterMax, 36*36)
	}
}

func TestIDGenFixedWidth(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now})

	id, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(id) != g.stampDigits+g.counterDigits {
		t.Errorf("len(%q) = %d, want %d", id, len(id), g.stampDigits+g.counterDigits)
	}
	if id[len(id)-2:] != "00" {
		t.Errorf("first id in window should end with counter 00, got %q", id)
	}
}

func TestIDGenCounterWithinWindow(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now})

	a, _ := g.Next()
	b, _ := g.Next()
	if a[:7] != b[:7] {
		t.Errorf("same window produced different stamps: %q, %q", a, b)
	}
	if b[7:] != "01" {
		t.Errorf("second counter = %q, want %q", b[7:], "01")
	}
}

func TestIDGenCounterResets(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now})

	g.Next()
	g.Next()
	clock.advance(100 * time.Millisecond)
	id, _ := g.Next()
	if id[7:] != "00" {
		t.Errorf("counter after new window = %q, want %q", id[7:], "00")
	}
}

func TestIDGenMonotonic(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now, CounterDigits: 1})

	var ids []string
	for i := range 500 {
		id, err := g.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		ids = append(ids, id)
		clock.advance(time.Duration(i%3) * 40 * time.Millisecond)
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("ids are not sorted in generation order")
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestIDGenRateExceeded(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now, CounterDigits: 1, Base: 10})

	for i := range 10 {
		if _, err := g.Next(); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
	}
	if _, err := g.Next(); !errors.Is(err, ErrGenerationRate) {
		t.Fatalf("11th id in window = %v, want ErrGenerationRate", err)
	}

	// The next window is fine again.
	clock.advance(100 * time.Millisecond)
	if _, err := g.Next(); err != nil {
		t.Errorf("Next after window change: %v", err)
	}
}

func TestIDGenClockBackwards(t *testing.T) {
	clock := newClock()
	g := newIDGen(IDConfig{Clock: clock.now})

	a, _ := g.Next()
	clock.advance(-time.Hour)
	b, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b <= a {
		t.Errorf("id after clock step back %q should sort after %q", b, a)
	}
}

func TestIDGenOutOfRange(t *testing.T) {
	clock := &fakeClock{t: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)}
	g := newIDGen(IDConfig{Clock: clock.now})

	if _, err := g.Next(); !errors.Is(err, ErrGenerationRate) {
		t.Errorf("Next before epoch = %v, want ErrGenerationRate", err)
	}

	clock.t = time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := g.Next(); !errors.Is(err, ErrGenerationRate) {
		t.Errorf("Next after support year = %v, want ErrGenerationRate", err)
	}
}

func TestPad(t *testing.T) {
	if got := pad("7", 3); got != "007" {
		t.Errorf("pad = %q, want %q", got, "007")
	}
	if got := pad("1234", 3); got != "1234" {
		t.Errorf("pad = %q, want %q", got, "1234")
	}
}

func TestIDGenNanosecondWindow(t *testing.T) {
	clock := newClock()
	for _, base := range []int{2, 36} {
		done := make(chan *idgen)
		go func() { done <- newIDGen(IDConfig{Base: base, Window: time.Nanosecond, Clock: clock.now}) }()

		var g *idgen
		select {
		case g = <-done:
		case <-time.After(3 * time.Second):
			t.Fatalf("base %d: newIDGen did not return", base)
		}
		if g.stampMax <= 0 {
			t.Errorf("base %d: stampMax = %d", base, g.stampMax)
		}

		// 2026 is well inside the supported range.
		a, err := g.Next()
		if err != nil {
			t.Fatalf("base %d: Next: %v", base, err)
		}
		clock.advance(time.Nanosecond)
		b, _ := g.Next()
		if len(a) != len(b) || a >= b {
			t.Errorf("base %d: ids %q then %q", base, a, b)
		}
	}
}

func TestDigitsSaturates(t *testing.T) {
	d, p := digits(2, 1<<62)
	if d != 63 || p != 1<<63-1 {
		t.Errorf("digits(2, 2^62) = %d, %d", d, p)
	}
	if d, p := digits(36, 100); d != 2 || p != 1296 {
		t.Errorf("digits(36, 100) = %d, %d", d, p)
	}
}
