// Monotonic id generation for groups.
//
// An id is a timestamp component followed by a counter component, both
// written in a fixed base and left-padded to a fixed width, so byte order
// equals generation order. The timestamp is the number of whole windows
// elapsed since the epoch year. The counter restarts at zero in each new
// window.
//
// Changing the configuration of an existing database needs care. Base,
// EpochYear and SupportYear must never change. CounterDigits must not
// shrink. Window may shrink only if the process has been stopped for at
// least as long as the old window, otherwise new ids can sort before old
// ones.
package taildb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IDConfig controls generated ids. Zero values select the defaults.
type IDConfig struct {
	Base          int              // Digit base, 2..36 (default 36)
	EpochYear     int              // Year the timestamp counts from (default 2020)
	SupportYear   int              // Ids stay unique until this year (default EpochYear+200)
	Window        time.Duration    // Timestamp resolution (default 100ms)
	CounterDigits int              // Counter width (default 2)
	Clock         func() time.Time // Time source (default time.Now)
}

type idgen struct {
	base          int
	epoch         time.Time
	window        time.Duration
	stampDigits   int
	stampMax      int64 // base^stampDigits
	counterDigits int
	counterMax    int64 // base^counterDigits
	clock         func() time.Time

	last    int64 // last window used, -1 before the first id
	counter int64
}

func newIDGen(c IDConfig) *idgen {
	if c.Base < 2 || c.Base > 36 {
		c.Base = 36
	}
	if c.EpochYear == 0 {
		c.EpochYear = 2020
	}
	if c.SupportYear <= c.EpochYear {
		c.SupportYear = c.EpochYear + 200
	}
	if c.Window <= 0 {
		c.Window = 100 * time.Millisecond
	}
	if c.CounterDigits <= 0 {
		c.CounterDigits = 2
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}

	epoch := time.Date(c.EpochYear, 1, 1, 0, 0, 0, 0, time.UTC)
	span := time.Date(c.SupportYear, 1, 1, 0, 0, 0, 0, time.UTC).Sub(epoch)
	windows := int64(span / c.Window)

	g := &idgen{
		base:          c.Base,
		epoch:         epoch,
		window:        c.Window,
		counterDigits: c.CounterDigits,
		clock:         c.Clock,
		last:          -1,
	}
	g.stampDigits, g.stampMax = digits(int64(c.Base), windows)
	g.counterMax = pow(int64(c.Base), c.CounterDigits)
	return g
}

// digits returns the smallest width d such that base^d > n, and base^d.
// The power saturates at MaxInt64 like pow.
func digits(base, n int64) (int, int64) {
	d, p := 1, base
	for p <= n {
		if p > math.MaxInt64/base {
			return d + 1, math.MaxInt64
		}
		d++
		p *= base
	}
	return d, p
}

// pow saturates at MaxInt64 so an oversized CounterDigits simply never
// overflows.
func pow(base int64, exp int) int64 {
	p := int64(1)
	for range exp {
		if p > math.MaxInt64/base {
			return math.MaxInt64
		}
		p *= base
	}
	return p
}

// Next returns the next id. It fails with ErrGenerationRate when the
// counter is exhausted for the current window; retrying inside the same
// window cannot succeed.
func (g *idgen) Next() (string, error) {
	w := int64(g.clock().Sub(g.epoch) / g.window)
	if w < 0 || w >= g.stampMax {
		return "", fmt.Errorf("%w: clock outside supported range", ErrGenerationRate)
	}

	// A clock that stepped backwards stays on the last window.
	if w <= g.last {
		if g.counter+1 >= g.counterMax {
			return "", fmt.Errorf("%w: %d ids in one %s window", ErrGenerationRate, g.counterMax, g.window)
		}
		g.counter++
	} else {
		g.last = w
		g.counter = 0
	}

	return pad(strconv.FormatInt(g.last, g.base), g.stampDigits) +
		pad(strconv.FormatInt(g.counter, g.base), g.counterDigits), nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
