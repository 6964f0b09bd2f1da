package fuzz

type (
	// Limited is a Consumer decorator which checks
	// there is enough data left before each extraction.
	//
	// Fixed width kinds require exactly their width,
	// floats, arrays, and strings require at least one byte,
	// and Remaining* methods never fail.
	// Failed extraction doesn't touch the underlying Consumer.
	//
	// Limited is not safe for concurrent use.
	Limited struct {
		c Consumer
	}
)

func NewLimited(c Consumer) *Limited {
	return &Limited{c: c}
}

// NewLimitedBytes is a shortcut for NewLimited(NewProvider(b)).
func NewLimitedBytes(b []byte) *Limited {
	return NewLimited(NewProvider(b))
}

func (l *Limited) Remaining() int { return l.c.Remaining() }

// Require checks at least n bytes are left.
func (l *Limited) Require(n int) error {
	if rem := l.c.Remaining(); rem < n {
		return NotEnoughData{Required: n, Remaining: rem}
	}

	return nil
}

func (l *Limited) need(k Kind) error {
	return l.Require(kindWidth[k])
}

func (l *Limited) Bool() (bool, error) {
	if err := l.need(KindBool); err != nil {
		return false, err
	}

	return l.c.Bool(), nil
}

func (l *Limited) Bools(max int) ([]bool, error) {
	if err := l.need(KindArray); err != nil {
		return nil, err
	}

	return l.c.Bools(max), nil
}

func (l *Limited) Int8() (int8, error) {
	if err := l.need(Kind8); err != nil {
		return 0, err
	}

	return l.c.Int8(), nil
}

func (l *Limited) Int8InRange(min, max int8) (int8, error) {
	if err := l.need(Kind8); err != nil {
		return 0, err
	}

	return l.c.Int8InRange(min, max), nil
}

func (l *Limited) Uint8() (uint8, error) {
	if err := l.need(Kind8); err != nil {
		return 0, err
	}

	return l.c.Uint8(), nil
}

func (l *Limited) Uint8InRange(min, max uint8) (uint8, error) {
	if err := l.need(Kind8); err != nil {
		return 0, err
	}

	return l.c.Uint8InRange(min, max), nil
}

func (l *Limited) Bytes(max int) ([]byte, error) {
	if err := l.need(KindArray); err != nil {
		return nil, err
	}

	return l.c.Bytes(max), nil
}

func (l *Limited) Int16() (int16, error) {
	if err := l.need(Kind16); err != nil {
		return 0, err
	}

	return l.c.Int16(), nil
}

func (l *Limited) Int16InRange(min, max int16) (int16, error) {
	if err := l.need(Kind16); err != nil {
		return 0, err
	}

	return l.c.Int16InRange(min, max), nil
}

func (l *Limited) Uint16() (uint16, error) {
	if err := l.need(Kind16); err != nil {
		return 0, err
	}

	return l.c.Uint16(), nil
}

func (l *Limited) Uint16InRange(min, max uint16) (uint16, error) {
	if err := l.need(Kind16); err != nil {
		return 0, err
	}

	return l.c.Uint16InRange(min, max), nil
}

func (l *Limited) Int16s(max int) ([]int16, error) {
	if err := l.need(KindArray); err != nil {
		return nil, err
	}

	return l.c.Int16s(max), nil
}

func (l *Limited) Int32() (int32, error) {
	if err := l.need(Kind32); err != nil {
		return 0, err
	}

	return l.c.Int32(), nil
}

func (l *Limited) Int32InRange(min, max int32) (int32, error) {
	if err := l.need(Kind32); err != nil {
		return 0, err
	}

	return l.c.Int32InRange(min, max), nil
}

func (l *Limited) Uint32() (uint32, error) {
	if err := l.need(Kind32); err != nil {
		return 0, err
	}

	return l.c.Uint32(), nil
}

func (l *Limited) Uint32InRange(min, max uint32) (uint32, error) {
	if err := l.need(Kind32); err != nil {
		return 0, err
	}

	return l.c.Uint32InRange(min, max), nil
}

func (l *Limited) Int32s(max int) ([]int32, error) {
	if err := l.need(KindArray); err != nil {
		return nil, err
	}

	return l.c.Int32s(max), nil
}

func (l *Limited) Int64() (int64, error) {
	if err := l.need(Kind64); err != nil {
		return 0, err
	}

	return l.c.Int64(), nil
}

func (l *Limited) Int64InRange(min, max int64) (int64, error) {
	if err := l.need(Kind64); err != nil {
		return 0, err
	}

	return l.c.Int64InRange(min, max), nil
}

func (l *Limited) Uint64() (uint64, error) {
	if err := l.need(Kind64); err != nil {
		return 0, err
	}

	return l.c.Uint64(), nil
}

func (l *Limited) Uint64InRange(min, max uint64) (uint64, error) {
	if err := l.need(Kind64); err != nil {
		return 0, err
	}

	return l.c.Uint64InRange(min, max), nil
}

func (l *Limited) Int64s(max int) ([]int64, error) {
	if err := l.need(KindArray); err != nil {
		return nil, err
	}

	return l.c.Int64s(max), nil
}

func (l *Limited) Float32() (float32, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.Float32(), nil
}

func (l *Limited) RegularFloat32() (float32, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.RegularFloat32(), nil
}

func (l *Limited) RegularFloat32InRange(min, max float32) (float32, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.RegularFloat32InRange(min, max), nil
}

func (l *Limited) ProbabilityFloat32() (float32, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.ProbabilityFloat32(), nil
}

func (l *Limited) Float64() (float64, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.Float64(), nil
}

func (l *Limited) RegularFloat64() (float64, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.RegularFloat64(), nil
}

func (l *Limited) RegularFloat64InRange(min, max float64) (float64, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.RegularFloat64InRange(min, max), nil
}

func (l *Limited) ProbabilityFloat64() (float64, error) {
	if err := l.need(KindFloat); err != nil {
		return 0, err
	}

	return l.c.ProbabilityFloat64(), nil
}

func (l *Limited) Char() (uint16, error) {
	if err := l.need(KindChar); err != nil {
		return 0, err
	}

	return l.c.Char(), nil
}

func (l *Limited) CharInRange(min, max uint16) (uint16, error) {
	if err := l.need(KindChar); err != nil {
		return 0, err
	}

	return l.c.CharInRange(min, max), nil
}

func (l *Limited) CharNoSurrogates() (uint16, error) {
	if err := l.need(KindChar); err != nil {
		return 0, err
	}

	return l.c.CharNoSurrogates(), nil
}

func (l *Limited) Rune() (rune, error) {
	if err := l.need(KindRune); err != nil {
		return 0, err
	}

	return l.c.Rune(), nil
}

func (l *Limited) String(max int) (string, error) {
	if err := l.need(KindString); err != nil {
		return "", err
	}

	return l.c.String(max), nil
}

func (l *Limited) ASCIIString(max int) (string, error) {
	if err := l.need(KindString); err != nil {
		return "", err
	}

	return l.c.ASCIIString(max), nil
}

func (l *Limited) RemainingBytes() []byte { return l.c.RemainingBytes() }

func (l *Limited) RemainingString() string { return l.c.RemainingString() }

func (l *Limited) RemainingASCIIString() string { return l.c.RemainingASCIIString() }
