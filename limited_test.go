package fuzz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	// noDelegate panics if Limited calls anything but Remaining.
	noDelegate struct {
		Consumer
		rem int
	}
)

func (c noDelegate) Remaining() int { return c.rem }

var fixedWidth = []struct {
	name  string
	width int
	get   func(l *Limited) error
}{
	{"Bool", 1, func(l *Limited) (err error) { _, err = l.Bool(); return }},
	{"Int8", 1, func(l *Limited) (err error) { _, err = l.Int8(); return }},
	{"Int8InRange", 1, func(l *Limited) (err error) { _, err = l.Int8InRange(-3, 3); return }},
	{"Uint8", 1, func(l *Limited) (err error) { _, err = l.Uint8(); return }},
	{"Uint8InRange", 1, func(l *Limited) (err error) { _, err = l.Uint8InRange(1, 2); return }},
	{"Int16", 2, func(l *Limited) (err error) { _, err = l.Int16(); return }},
	{"Int16InRange", 2, func(l *Limited) (err error) { _, err = l.Int16InRange(-100, 100); return }},
	{"Uint16", 2, func(l *Limited) (err error) { _, err = l.Uint16(); return }},
	{"Uint16InRange", 2, func(l *Limited) (err error) { _, err = l.Uint16InRange(0, 10); return }},
	{"Int32", 4, func(l *Limited) (err error) { _, err = l.Int32(); return }},
	{"Int32InRange", 4, func(l *Limited) (err error) { _, err = l.Int32InRange(0, 1); return }},
	{"Uint32", 4, func(l *Limited) (err error) { _, err = l.Uint32(); return }},
	{"Uint32InRange", 4, func(l *Limited) (err error) { _, err = l.Uint32InRange(5, 500); return }},
	{"Int64", 8, func(l *Limited) (err error) { _, err = l.Int64(); return }},
	{"Int64InRange", 8, func(l *Limited) (err error) { _, err = l.Int64InRange(-1, 1); return }},
	{"Uint64", 8, func(l *Limited) (err error) { _, err = l.Uint64(); return }},
	{"Uint64InRange", 8, func(l *Limited) (err error) { _, err = l.Uint64InRange(10, 20); return }},
	{"Char", 2, func(l *Limited) (err error) { _, err = l.Char(); return }},
	{"CharInRange", 2, func(l *Limited) (err error) { _, err = l.CharInRange('a', 'z'); return }},
	{"CharNoSurrogates", 2, func(l *Limited) (err error) { _, err = l.CharNoSurrogates(); return }},
	{"Rune", 4, func(l *Limited) (err error) { _, err = l.Rune(); return }},
}

var atLeastOne = []struct {
	name string
	get  func(l *Limited) error
}{
	{"Float32", func(l *Limited) (err error) { _, err = l.Float32(); return }},
	{"RegularFloat32", func(l *Limited) (err error) { _, err = l.RegularFloat32(); return }},
	{"RegularFloat32InRange", func(l *Limited) (err error) { _, err = l.RegularFloat32InRange(0, 1); return }},
	{"ProbabilityFloat32", func(l *Limited) (err error) { _, err = l.ProbabilityFloat32(); return }},
	{"Float64", func(l *Limited) (err error) { _, err = l.Float64(); return }},
	{"RegularFloat64", func(l *Limited) (err error) { _, err = l.RegularFloat64(); return }},
	{"RegularFloat64InRange", func(l *Limited) (err error) { _, err = l.RegularFloat64InRange(-1, 1); return }},
	{"ProbabilityFloat64", func(l *Limited) (err error) { _, err = l.ProbabilityFloat64(); return }},
	{"Bools", func(l *Limited) (err error) { _, err = l.Bools(10); return }},
	{"Bytes", func(l *Limited) (err error) { _, err = l.Bytes(10); return }},
	{"Int16s", func(l *Limited) (err error) { _, err = l.Int16s(10); return }},
	{"Int32s", func(l *Limited) (err error) { _, err = l.Int32s(10); return }},
	{"Int64s", func(l *Limited) (err error) { _, err = l.Int64s(10); return }},
	{"String", func(l *Limited) (err error) { _, err = l.String(10); return }},
	{"ASCIIString", func(l *Limited) (err error) { _, err = l.ASCIIString(10); return }},
}

func TestLimitedFixedWidthShort(t *testing.T) {
	for _, tc := range fixedWidth {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimitedBytes(make([]byte, tc.width-1))

			err := tc.get(l)
			assert.Equal(t, NotEnoughData{Required: tc.width, Remaining: tc.width - 1}, err)
			assert.ErrorIs(t, err, ErrNotEnoughData)
			assert.Equal(t, tc.width-1, l.Remaining())
		})
	}
}

func TestLimitedFixedWidthExact(t *testing.T) {
	for _, tc := range fixedWidth {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimitedBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}[:tc.width])

			err := tc.get(l)
			require.NoError(t, err)
			assert.Equal(t, 0, l.Remaining())
		})
	}
}

func TestLimitedNoDelegationOnFailure(t *testing.T) {
	for _, tc := range fixedWidth {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimited(noDelegate{rem: tc.width - 1})

			assert.NotPanics(t, func() {
				err := tc.get(l)
				assert.Error(t, err)
			})
		})
	}

	for _, tc := range atLeastOne {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimited(noDelegate{rem: 0})

			assert.NotPanics(t, func() {
				err := tc.get(l)
				assert.Error(t, err)
			})
		})
	}
}

func TestLimitedAtLeastOne(t *testing.T) {
	for _, tc := range atLeastOne {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLimitedBytes(nil)

			err := tc.get(l)
			assert.Equal(t, NotEnoughData{Required: 1, Remaining: 0}, err)

			l = NewLimitedBytes([]byte{0x5a})

			err = tc.get(l)
			assert.NoError(t, err)
			assert.LessOrEqual(t, l.Remaining(), 1)
		})
	}
}

func TestLimitedContainersMayBeEmpty(t *testing.T) {
	l := NewLimitedBytes([]byte{1, 2, 3})

	v, err := l.Int64s(5)
	require.NoError(t, err)
	assert.Len(t, v, 0)
	assert.Equal(t, 3, l.Remaining())

	b, err := l.Bytes(0)
	require.NoError(t, err)
	assert.Len(t, b, 0)
	assert.Equal(t, 3, l.Remaining())
}

func TestLimitedDrainNeverFails(t *testing.T) {
	l := NewLimitedBytes(nil)

	assert.Equal(t, []byte{}, l.RemainingBytes())
	assert.Equal(t, "", l.RemainingString())
	assert.Equal(t, "", l.RemainingASCIIString())

	l = NewLimitedBytes([]byte("abc"))

	assert.Equal(t, "abc", l.RemainingString())
	assert.Equal(t, 0, l.Remaining())
	assert.Equal(t, []byte{}, l.RemainingBytes())
}

func TestLimitedShortThenBool(t *testing.T) {
	l := NewLimitedBytes([]byte{1, 2, 3})

	_, err := l.Int32()
	var nd NotEnoughData
	require.ErrorAs(t, err, &nd)
	assert.Equal(t, 4, nd.Required)
	assert.Equal(t, 3, nd.Remaining)
	assert.Equal(t, 3, l.Remaining())

	v, err := l.Bool()
	require.NoError(t, err)
	assert.True(t, v)
	assert.Equal(t, 2, l.Remaining())
}

func TestLimitedDrainEmpty(t *testing.T) {
	l := NewLimitedBytes([]byte{})

	b := l.RemainingBytes()
	assert.Len(t, b, 0)
}

func TestNotEnoughDataMessage(t *testing.T) {
	err := error(NotEnoughData{Required: 4, Remaining: 3})

	assert.EqualError(t, err, "expected 4 bytes but found 3")
	assert.True(t, IsNotEnoughData(fmt.Errorf("consume id: %w", err)))
	assert.False(t, IsNotEnoughData(fmt.Errorf("other")))
}

func TestKindWidth(t *testing.T) {
	assert.Equal(t, 4, Kind32.Width())
	assert.Equal(t, 1, KindString.Width())

	for k := KindBool; k < kindMax; k++ {
		assert.True(t, k.Width() > 0, "kind %d", k)
	}
}

// sequence performs fixed series of extractions and records the results.
func sequence(data []byte) (r []string) {
	l := NewLimitedBytes(data)

	rec := func(v interface{}, err error) {
		r = append(r, fmt.Sprintf("%v %v %d", v, err, l.Remaining()))
	}

	rec(l.Int32())
	rec(l.Bytes(3))
	rec(l.Float64())
	rec(l.Int16InRange(-7, 7))
	rec(l.String(5))
	rec(l.Rune())
	rec(l.Int64s(2))
	rec(l.Bool())
	rec(l.RemainingString(), nil)

	return r
}

func TestLimitedDeterministic(t *testing.T) {
	data := []byte("some fuzzed \\data\xff\x00\x10 with tail bytes")

	assert.Equal(t, sequence(data), sequence(data))
}

func FuzzLimitedDeterministic(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3})
	f.Add([]byte("0123456789abcdef0123456789abcdef"))

	f.Fuzz(func(t *testing.T, data []byte) {
		a := sequence(data)
		b := sequence(data)

		if !assert.Equal(t, a, b) {
			return
		}

		l := NewLimitedBytes(data)

		for {
			before := l.Remaining()

			_, err := l.Int64()
			if err != nil {
				assert.Equal(t, NotEnoughData{Required: 8, Remaining: before}, err)
				assert.Equal(t, before, l.Remaining())

				break
			}

			assert.Equal(t, before-8, l.Remaining())
		}
	})
}

func BenchmarkLimitedInt32(b *testing.B) {
	data := make([]byte, 4*1024)
	l := NewLimitedBytes(data)

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := l.Int32()
		if err != nil {
			l = NewLimitedBytes(data)
		}
	}
}
