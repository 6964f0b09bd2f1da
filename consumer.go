package fuzz

type (
	// Consumer turns a raw byte buffer into typed values.
	//
	// Methods never fail. If input is short they use whatever is left,
	// so missing bits read as zeros.
	// Use Limited to get strict fail-fast semantics on top of a Consumer.
	Consumer interface {
		Remaining() int

		Bool() bool
		Bools(max int) []bool

		Int8() int8
		Int8InRange(min, max int8) int8
		Uint8() uint8
		Uint8InRange(min, max uint8) uint8
		Bytes(max int) []byte

		Int16() int16
		Int16InRange(min, max int16) int16
		Uint16() uint16
		Uint16InRange(min, max uint16) uint16
		Int16s(max int) []int16

		Int32() int32
		Int32InRange(min, max int32) int32
		Uint32() uint32
		Uint32InRange(min, max uint32) uint32
		Int32s(max int) []int32

		Int64() int64
		Int64InRange(min, max int64) int64
		Uint64() uint64
		Uint64InRange(min, max uint64) uint64
		Int64s(max int) []int64

		Float32() float32
		RegularFloat32() float32
		RegularFloat32InRange(min, max float32) float32
		ProbabilityFloat32() float32

		Float64() float64
		RegularFloat64() float64
		RegularFloat64InRange(min, max float64) float64
		ProbabilityFloat64() float64

		Char() uint16
		CharInRange(min, max uint16) uint16
		CharNoSurrogates() uint16
		Rune() rune

		String(max int) string
		ASCIIString(max int) string

		RemainingBytes() []byte
		RemainingString() string
		RemainingASCIIString() string
	}
)
