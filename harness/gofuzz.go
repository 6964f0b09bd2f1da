package harness

import (
	"nikand.dev/go/fuzz"
)

// GoFuzz adapts target to the go-fuzz entry point.
//
// Successful inputs get priority, discarded inputs are kept out of the corpus.
// Target error is raised as a panic so that go-fuzz saves it as a crasher.
func GoFuzz(target Target) func(data []byte) int {
	return func(data []byte) int {
		err := target(fuzz.NewLimitedBytes(data))

		switch {
		case err == nil:
			return 1
		case fuzz.IsNotEnoughData(err):
			return -1
		default:
			panic(err)
		}
	}
}
