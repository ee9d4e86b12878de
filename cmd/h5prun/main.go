// Command h5prun plays interactive content from the command line.
package main

import (
	"os"

	"github.com/randalmurphal/h5pruntime/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
