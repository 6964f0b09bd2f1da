package harness

import (
	"context"
	"strings"
	"time"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"nikand.dev/go/fuzz"
)

type (
	// Target consumes fuzzed data and exercises the code under test.
	// Returning an error wrapping fuzz.ErrNotEnoughData discards the input.
	Target func(d *fuzz.Limited) error

	Outcome int

	Result struct {
		Outcome Outcome

		// Err is the target error or the recovered panic.
		Err   error
		Panic interface{}
		Stack loc.PCs

		// Remaining is the number of bytes the target left unconsumed.
		Remaining int

		Edges      int
		NewEdges   int
		NewBuckets int
		Hash       uint64

		Interesting bool

		Duration time.Duration
	}
)

const (
	OK Outcome = iota
	Discard
	Fail
	Crash
)

var ErrPanic = errors.New("target panicked")

const maxStack = 32

var outcomeNames = []string{
	OK:      "ok",
	Discard: "discard",
	Fail:    "fail",
	Crash:   "crash",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}

	return outcomeNames[o]
}

// Exec runs target once on data with the default runner.
func Exec(ctx context.Context, target Target, data []byte) Result {
	return DefaultRunner.Exec(ctx, target, data)
}

func run(target Target, data []byte) (res Result) {
	d := fuzz.NewLimitedBytes(data)

	defer func() {
		res.Remaining = d.Remaining()

		p := recover()
		if p == nil {
			return
		}

		res.Outcome = Crash
		res.Panic = p
		res.Stack = panicStack(1)

		res.Err = errors.Wrap(ErrPanic, "%v", p)
	}()

	err := target(d)

	switch {
	case err == nil:
		res.Outcome = OK
	case fuzz.IsNotEnoughData(err):
		res.Outcome = Discard
	default:
		res.Outcome = Fail
	}

	res.Err = err

	return res
}

// panicStack is called from a deferred recover.
// Leading runtime frames of the panic machinery are dropped.
func panicStack(skip int) loc.PCs {
	st := loc.Callers(1+skip, maxStack)

	for len(st) != 0 {
		name, _, _ := st[0].NameFileLine()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}

		st = st[1:]
	}

	return st
}

func logResult(ctx context.Context, name string, res Result) {
	tr := tlog.SpanFromContext(ctx)
	if tr.Logger == nil {
		tr = tlog.Root()
	}

	switch res.Outcome {
	case Crash:
		tr.Printw("crash", "input", name, "err", res.Err, "stack", res.Stack, "", tlog.Error)
	case Fail:
		tr.Printw("fail", "input", name, "err", res.Err, "", tlog.Warn)
	default:
		tr.V("exec").Printw("exec", "input", name, "outcome", res.Outcome, "err", res.Err, "remaining", res.Remaining,
			"edges", res.Edges, "new_edges", res.NewEdges, "new_buckets", res.NewBuckets, "hash", res.Hash,
			"duration", res.Duration)
	}
}
