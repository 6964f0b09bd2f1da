package fuzz

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/exp/constraints"
)

type (
	// Provider is a Consumer over a byte slice.
	//
	// Scalars are taken from the end of the buffer, data (arrays and strings)
	// from the beginning. That keeps mutations of lengths and payloads
	// from shifting each other.
	Provider struct {
		b    []byte
		head int
		tail int
	}
)

var _ Consumer = &Provider{}

// NewProvider creates Provider over b.
// b must not be modified while Provider is in use.
func NewProvider(b []byte) *Provider {
	return &Provider{
		b:    b,
		tail: len(b),
	}
}

// Reset makes Provider read b from the start.
func (p *Provider) Reset(b []byte) {
	p.b = b
	p.head = 0
	p.tail = len(b)
}

func (p *Provider) Remaining() int { return p.tail - p.head }

// integral assembles up to size bytes from the tail, most significant byte first.
func (p *Provider) integral(size int) (v uint64) {
	for i := 0; i < size && p.tail > p.head; i++ {
		p.tail--
		v = v<<8 | uint64(p.b[p.tail])
	}

	return v
}

// inRange consumes size bytes and maps them into [min, max].
func inRange[T constraints.Integer](p *Provider, size int, min, max T) T {
	if min > max {
		panic(fmt.Sprintf("bad range: [%v, %v]", min, max))
	}

	rng := uint64(max) - uint64(min)
	v := p.integral(size)

	if rng != math.MaxUint64 {
		v %= rng + 1
	}

	return T(uint64(min) + v)
}

func (p *Provider) Bool() bool { return p.integral(1)&1 == 1 }

func (p *Provider) Int8() int8   { return int8(p.integral(1)) }
func (p *Provider) Uint8() uint8 { return uint8(p.integral(1)) }

func (p *Provider) Int16() int16   { return int16(p.integral(2)) }
func (p *Provider) Uint16() uint16 { return uint16(p.integral(2)) }

func (p *Provider) Int32() int32   { return int32(p.integral(4)) }
func (p *Provider) Uint32() uint32 { return uint32(p.integral(4)) }

func (p *Provider) Int64() int64   { return int64(p.integral(8)) }
func (p *Provider) Uint64() uint64 { return p.integral(8) }

func (p *Provider) Int8InRange(min, max int8) int8    { return inRange(p, 1, min, max) }
func (p *Provider) Uint8InRange(min, max uint8) uint8 { return inRange(p, 1, min, max) }

func (p *Provider) Int16InRange(min, max int16) int16    { return inRange(p, 2, min, max) }
func (p *Provider) Uint16InRange(min, max uint16) uint16 { return inRange(p, 2, min, max) }

func (p *Provider) Int32InRange(min, max int32) int32    { return inRange(p, 4, min, max) }
func (p *Provider) Uint32InRange(min, max uint32) uint32 { return inRange(p, 4, min, max) }

func (p *Provider) Int64InRange(min, max int64) int64    { return inRange(p, 8, min, max) }
func (p *Provider) Uint64InRange(min, max uint64) uint64 { return inRange(p, 8, min, max) }

// Char returns a UTF-16 code unit.
func (p *Provider) Char() uint16 { return uint16(p.integral(2)) }

func (p *Provider) CharInRange(min, max uint16) uint16 { return inRange(p, 2, min, max) }

// CharNoSurrogates returns a UTF-16 code unit which is not a surrogate half.
func (p *Provider) CharNoSurrogates() uint16 {
	c := uint16(p.integral(2))

	if c >= 0xd800 && c < 0xe000 {
		c -= 0xd800
	}

	return c
}

// Rune returns a valid Unicode scalar value.
func (p *Provider) Rune() rune {
	const surrogates = 0xe000 - 0xd800

	r := rune(p.integral(4) % (utf8.MaxRune + 1 - surrogates))

	if r >= 0xd800 {
		r += surrogates
	}

	return r
}

func (p *Provider) ProbabilityFloat32() float32 {
	return float32(float64(p.integral(4)) / math.MaxUint32)
}

func (p *Provider) ProbabilityFloat64() float64 {
	return float64(p.integral(8)) / math.MaxUint64
}

func (p *Provider) RegularFloat32() float32 {
	return p.RegularFloat32InRange(-math.MaxFloat32, math.MaxFloat32)
}

func (p *Provider) RegularFloat64() float64 {
	return p.RegularFloat64InRange(-math.MaxFloat64, math.MaxFloat64)
}

func (p *Provider) RegularFloat32InRange(min, max float32) float32 {
	if min > max {
		panic(fmt.Sprintf("bad range: [%v, %v]", min, max))
	}

	var rng float32
	res := min

	// max - min doesn't fit
	if max > 0 && min < 0 && max > min+math.MaxFloat32 {
		rng = max/2 - min/2

		if p.Bool() {
			res += rng
		}
	} else {
		rng = max - min
	}

	return res + rng*p.ProbabilityFloat32()
}

func (p *Provider) RegularFloat64InRange(min, max float64) float64 {
	if min > max {
		panic(fmt.Sprintf("bad range: [%v, %v]", min, max))
	}

	var rng float64
	res := min

	if max > 0 && min < 0 && max > min+math.MaxFloat64 {
		rng = max/2 - min/2

		if p.Bool() {
			res += rng
		}
	} else {
		rng = max - min
	}

	return res + rng*p.ProbabilityFloat64()
}

// Float32 returns any float32 including special values.
func (p *Provider) Float32() float32 {
	if p.Remaining() == 0 {
		return 0
	}

	switch p.integral(1) {
	case 0:
		return 0
	case 1:
		return float32(math.Copysign(0, -1))
	case 2:
		return float32(math.Inf(1))
	case 3:
		return float32(math.Inf(-1))
	case 4:
		return float32(math.NaN())
	case 5:
		return math.SmallestNonzeroFloat32
	case 6:
		return -math.SmallestNonzeroFloat32
	case 7:
		return 0x1p-126
	case 8:
		return -0x1p-126
	case 9:
		return math.MaxFloat32
	case 10:
		return -math.MaxFloat32
	default:
		return p.RegularFloat32()
	}
}

// Float64 returns any float64 including special values.
func (p *Provider) Float64() float64 {
	if p.Remaining() == 0 {
		return 0
	}

	switch p.integral(1) {
	case 0:
		return 0
	case 1:
		return math.Copysign(0, -1)
	case 2:
		return math.Inf(1)
	case 3:
		return math.Inf(-1)
	case 4:
		return math.NaN()
	case 5:
		return math.SmallestNonzeroFloat64
	case 6:
		return -math.SmallestNonzeroFloat64
	case 7:
		return 0x1p-1022
	case 8:
		return -0x1p-1022
	case 9:
		return math.MaxFloat64
	case 10:
		return -math.MaxFloat64
	default:
		return p.RegularFloat64()
	}
}

// front takes n bytes from the beginning.
func (p *Provider) front(n int) []byte {
	r := p.b[p.head : p.head+n]
	p.head += n

	return r
}

func (p *Provider) count(max, size int) int {
	n := p.Remaining() / size

	if max < n {
		n = max
	}

	if n < 0 {
		n = 0
	}

	return n
}

func (p *Provider) Bytes(max int) []byte {
	n := p.count(max, 1)

	return append([]byte{}, p.front(n)...)
}

func (p *Provider) Bools(max int) []bool {
	n := p.count(max, 1)
	r := make([]bool, n)

	for i, b := range p.front(n) {
		r[i] = b&1 == 1
	}

	return r
}

func (p *Provider) Int16s(max int) []int16 {
	n := p.count(max, 2)
	r := make([]int16, n)
	b := p.front(2 * n)

	for i := range r {
		r[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}

	return r
}

func (p *Provider) Int32s(max int) []int32 {
	n := p.count(max, 4)
	r := make([]int32, n)
	b := p.front(4 * n)

	for i := range r {
		r[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}

	return r
}

func (p *Provider) Int64s(max int) []int64 {
	n := p.count(max, 8)
	r := make([]int64, n)
	b := p.front(8 * n)

	for i := range r {
		r[i] = int64(binary.LittleEndian.Uint64(b[8*i:]))
	}

	return r
}

// randomLength reads at most max bytes from the front.
// `\\` is an escaped backslash, `\` followed by anything else ends the string.
func (p *Provider) randomLength(max int) []byte {
	var r []byte

	for i := 0; i < max && p.head < p.tail; i++ {
		c := p.b[p.head]
		p.head++

		if c == '\\' && p.head < p.tail {
			c = p.b[p.head]
			p.head++

			if c != '\\' {
				break
			}
		}

		r = append(r, c)
	}

	return r
}

// String returns a valid UTF-8 string of at most max runes.
func (p *Provider) String(max int) string {
	return decodeString(p.randomLength(max))
}

// ASCIIString returns a string of at most max 7-bit characters.
func (p *Provider) ASCIIString(max int) string {
	return asciiString(p.randomLength(max))
}

func (p *Provider) RemainingBytes() []byte {
	return append([]byte{}, p.front(p.Remaining())...)
}

func (p *Provider) RemainingString() string {
	return decodeString(p.front(p.Remaining()))
}

func (p *Provider) RemainingASCIIString() string {
	return asciiString(p.front(p.Remaining()))
}

// decodeString maps bytes which are not part of a valid UTF-8 sequence
// to the runes with the same value.
func decodeString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	r := make([]byte, 0, 2*len(b))

	for i := 0; i < len(b); {
		c, w := utf8.DecodeRune(b[i:])
		if c == utf8.RuneError && w == 1 {
			c = rune(b[i])
		}

		r = utf8.AppendRune(r, c)
		i += w
	}

	return string(r)
}

func asciiString(b []byte) string {
	r := make([]byte, len(b))

	for i, c := range b {
		r[i] = c & 0x7f
	}

	return string(r)
}
