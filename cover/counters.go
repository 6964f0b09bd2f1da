package cover

import (
	"sync/atomic"

	"tlog.app/go/errors"
)

type (
	// Counters is a table of 8-bit saturating hit counters indexed by edge id.
	//
	// Hit may be called from any goroutine.
	// Concurrent increments of the same counter may be lost, that's fine for coverage.
	// Counters, CopyTo, and Reset must not run concurrently with the target.
	Counters struct {
		tab   atomic.Pointer[[]byte]
		limit atomic.Int64
	}
)

const (
	DefaultSize  = 64 << 10
	DefaultLimit = 16 << 20
)

var ErrCapacity = errors.New("counters capacity limit exceeded")

// Default is the process-wide table instrumented code writes to.
var Default = New(DefaultSize, DefaultLimit)

// New creates a table of size counters which may grow up to limit.
// limit <= size makes the table fixed.
func New(size, limit int) *Counters {
	if limit < size {
		limit = size
	}

	c := &Counters{}
	c.limit.Store(int64(limit))

	tab := make([]byte, size)
	c.tab.Store(&tab)

	return c
}

// Hit increments counter id saturating at 255.
// Out of range id panics.
func (c *Counters) Hit(id int) {
	tab := *c.tab.Load()

	if v := tab[id]; v != 0xff {
		tab[id] = v + 1
	}
}

// Reserve makes sure the table has at least n counters.
// Existing values are preserved, new ones are zero.
// It returns ErrCapacity if n is above the limit.
//
// Increments made concurrently with the growth may be lost.
func (c *Counters) Reserve(n int) error {
	old := *c.tab.Load()

	if n <= len(old) {
		return nil
	}

	limit := c.Limit()

	if n > limit {
		return errors.Wrap(ErrCapacity, "reserve %d (limit %d)", n, limit)
	}

	size := 2 * len(old)
	if size < n {
		size = n
	}

	if size > limit {
		size = limit
	}

	tab := make([]byte, size)
	copy(tab, old)

	c.tab.Store(&tab)

	return nil
}

// Len is the current table size.
func (c *Counters) Len() int { return len(*c.tab.Load()) }

// Limit is the maximum table size.
func (c *Counters) Limit() int { return int(c.limit.Load()) }

// SetLimit changes the maximum table size.
// The table never shrinks, so limit below Len is raised to Len.
func (c *Counters) SetLimit(limit int) {
	if l := c.Len(); limit < l {
		limit = l
	}

	c.limit.Store(int64(limit))
}

// Counters returns the live table.
// It's only valid until the next Reserve.
func (c *Counters) Counters() []byte { return *c.tab.Load() }

// CopyTo appends the table to dst.
func (c *Counters) CopyTo(dst []byte) []byte {
	return append(dst, *c.tab.Load()...)
}

// Reset zeroes all the counters.
func (c *Counters) Reset() {
	clear(*c.tab.Load())
}

// Hit increments counter id in the Default table.
// It's called by instrumented code.
// Ids beyond the table grow it first.
func Hit(id int) {
	if id >= Default.Len() {
		Reserve(id + 1)
	}

	Default.Hit(id)
}

// Reserve grows the Default table and returns its size.
// Instrumented packages call it from a package variable initializer,
// so exceeding the limit is fatal.
func Reserve(n int) int {
	err := Default.Reserve(n)
	if err != nil {
		panic(err)
	}

	return Default.Len()
}

// Reset zeroes the Default table.
func Reset() { Default.Reset() }

// Snapshot returns a copy of the Default table.
func Snapshot() []byte { return Default.CopyTo(nil) }
