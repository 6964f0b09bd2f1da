//go:build race

package cover

const raceEnabled = true
