// Package main provides the leapdecide command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdecide/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
