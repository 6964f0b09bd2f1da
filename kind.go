package fuzz

// Kind is an extraction family.
type Kind uint8

const (
	KindBool Kind = iota
	Kind8
	Kind16
	Kind32
	Kind64
	KindChar
	KindRune

	// Variable width kinds.
	// Their encoding length depends on the data,
	// so they only require the input not to be empty.
	KindFloat
	KindArray
	KindString

	kindMax
)

var kindWidth = [kindMax]int{
	KindBool: 1,
	Kind8:    1,
	Kind16:   2,
	Kind32:   4,
	Kind64:   8,
	KindChar: 2,
	KindRune: 4,

	KindFloat:  1,
	KindArray:  1,
	KindString: 1,
}

// Width is the number of bytes Limited requires for the Kind.
func (k Kind) Width() int { return kindWidth[k] }
