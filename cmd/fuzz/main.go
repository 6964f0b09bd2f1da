package main

import (
	"os"

	"nikand.dev/go/cli"

	"nikand.dev/go/fuzz/cmd/fuzz/fuzzcmd"
	_ "nikand.dev/go/fuzz/targets"
)

func main() {
	cli.RunAndExit(fuzzcmd.App(), os.Args, os.Environ())
}
