package harness

import (
	"context"
	"sync"
	"time"

	"nikand.dev/go/fuzz/cover"
)

type (
	// Runner executes iterations one at a time and accumulates feedback.
	// Stats and Cover may be called concurrently with Exec.
	Runner struct {
		// Counters is the table woven code hits.
		// cover.Default is used if nil.
		Counters *cover.Counters
		Signal   *cover.Signal

		mu    sync.Mutex
		max   []byte
		stats Stats
	}

	Stats struct {
		Execs       int64 `json:"execs"`
		OK          int64 `json:"ok"`
		Discards    int64 `json:"discards"`
		Fails       int64 `json:"fails"`
		Crashes     int64 `json:"crashes"`
		Interesting int64 `json:"interesting"`

		Edges int `json:"edges"`

		Elapsed time.Duration `json:"elapsed"`
	}
)

var DefaultRunner = NewRunner(nil)

func NewRunner(c *cover.Counters) *Runner {
	return &Runner{
		Counters: c,
		Signal:   cover.NewSignal(),
	}
}

// Exec runs target on data and merges the feedback.
// Counters are reset before and after the run,
// so hits made outside of the target are not credited to the input.
// Discarded inputs contribute no feedback.
func (r *Runner) Exec(ctx context.Context, target Target, data []byte) Result {
	return r.exec(ctx, "", target, data)
}

func (r *Runner) exec(ctx context.Context, name string, target Target, data []byte) (res Result) {
	c := r.counters()

	c.Reset()

	start := time.Now()

	res = run(target, data)

	res.Duration = time.Since(start)

	cur := c.Counters()

	res.Edges = cover.Count(cur)
	res.Hash = cover.Hash(cur)

	defer c.Reset()

	r.mu.Lock()

	if res.Outcome != Discard {
		if r.Signal != nil {
			res.NewEdges, res.NewBuckets = r.Signal.Merge(cur)
			res.Interesting = res.NewEdges+res.NewBuckets != 0
		}

		r.max = updateMax(r.max, cur)
	}

	r.stats.add(res)

	r.mu.Unlock()

	logResult(ctx, name, res)

	return res
}

func (r *Runner) counters() *cover.Counters {
	if r.Counters != nil {
		return r.Counters
	}

	return cover.Default
}

// Stats returns execution totals.
func (r *Runner) Stats() Stats {
	defer r.mu.Unlock()
	r.mu.Lock()

	s := r.stats

	if r.Signal != nil {
		s.Edges = r.Signal.Edges()
	}

	return s
}

// Cover returns max hit counts over all non-discarded executions.
func (r *Runner) Cover() []byte {
	defer r.mu.Unlock()
	r.mu.Lock()

	return append([]byte{}, r.max...)
}

func (s *Stats) add(res Result) {
	s.Execs++
	s.Elapsed += res.Duration

	switch res.Outcome {
	case OK:
		s.OK++
	case Discard:
		s.Discards++
	case Fail:
		s.Fails++
	case Crash:
		s.Crashes++
	}

	if res.Interesting {
		s.Interesting++
	}
}

func updateMax(max, cur []byte) []byte {
	if len(cur) > len(max) {
		max = append(max, make([]byte, len(cur)-len(max))...)
	}

	for i, v := range cur {
		if v > max[i] {
			max[i] = v
		}
	}

	return max
}
