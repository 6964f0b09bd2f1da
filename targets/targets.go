// Package targets registers built-in harness targets.
// They check properties of the data source itself and serve as replay examples.
package targets

import (
	"math"
	"unicode/utf8"

	"tlog.app/go/errors"

	"nikand.dev/go/fuzz"
	"nikand.dev/go/fuzz/harness"
)

var ErrProperty = errors.New("property violated")

func init() {
	harness.Register("float_range", FloatRange)
	harness.Register("utf8", UTF8)
	harness.Register("kv", KV)
}

// FloatRange checks range floats stay in their range.
func FloatRange(d *fuzz.Limited) error {
	lo, err := d.RegularFloat64InRange(-math.MaxFloat64, 0)
	if err != nil {
		return err
	}

	x, err := d.RegularFloat64InRange(lo, math.MaxFloat64)
	if err != nil {
		return err
	}

	if x < lo || math.IsNaN(x) {
		return errors.Wrap(ErrProperty, "float %v out of [%v, max]", x, lo)
	}

	p, err := d.ProbabilityFloat32()
	if err != nil {
		return err
	}

	if p < 0 || p > 1 {
		return errors.Wrap(ErrProperty, "probability %v", p)
	}

	return nil
}

// UTF8 checks strings are always valid and respect the limit.
func UTF8(d *fuzz.Limited) error {
	n, err := d.Uint8()
	if err != nil {
		return err
	}

	s, err := d.String(int(n))
	if err != nil {
		return err
	}

	if !utf8.ValidString(s) {
		return errors.Wrap(ErrProperty, "invalid utf8: %q", s)
	}

	if l := utf8.RuneCountInString(s); l > int(n) {
		return errors.Wrap(ErrProperty, "string of %d runes, limit %d", l, n)
	}

	rest := d.RemainingString()
	if !utf8.ValidString(rest) {
		return errors.Wrap(ErrProperty, "invalid utf8 remaining: %q", rest)
	}

	return nil
}

// KV builds a small map and checks every key is found back.
func KV(d *fuzz.Limited) error {
	n, err := d.Uint8InRange(0, 8)
	if err != nil {
		return err
	}

	m := make(map[string]int32, n)
	keys := make([]string, 0, n)

	for i := 0; i < int(n); i++ {
		k, err := d.ASCIIString(16)
		if err != nil {
			return err
		}

		v, err := d.Int32()
		if err != nil {
			return err
		}

		for j := 0; j < len(k); j++ {
			if k[j] >= utf8.RuneSelf {
				return errors.Wrap(ErrProperty, "non-ascii key: %q", k)
			}
		}

		m[k] = v
		keys = append(keys, k)
	}

	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return errors.Wrap(ErrProperty, "lost key: %q", k)
		}
	}

	return nil
}
