package harness

import (
	"sort"
	"sync"

	"tlog.app/go/errors"
)

var ErrUnknownTarget = errors.New("unknown target")

var (
	targetsMu sync.Mutex
	targets   = map[string]Target{}
)

// Register makes target available by name.
// It's intended to be called from init.
// It panics if the name is already taken.
func Register(name string, target Target) {
	if target == nil {
		panic("nil target")
	}

	defer targetsMu.Unlock()
	targetsMu.Lock()

	if _, ok := targets[name]; ok {
		panic("target already registered: " + name)
	}

	targets[name] = target
}

func Lookup(name string) (Target, error) {
	defer targetsMu.Unlock()
	targetsMu.Lock()

	t, ok := targets[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTarget, "%v", name)
	}

	return t, nil
}

// Targets lists registered names in order.
func Targets() []string {
	defer targetsMu.Unlock()
	targetsMu.Lock()

	l := make([]string, 0, len(targets))

	for name := range targets {
		l = append(l, name)
	}

	sort.Strings(l)

	return l
}
