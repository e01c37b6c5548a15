// main.go
//
// Entry point of the wardsim CLI. Subcommands live in cmd/.

package main

import (
	"github.com/wardsim/wardsim/cmd"
)

func main() {
	cmd.Execute()
}
