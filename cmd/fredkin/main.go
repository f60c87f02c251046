package main

import (
	"os"

	"github.com/roach88/fredkin/internal/cli"
)

func main() {
	// Errors are printed by cli.Execute, in the --format the user chose.
	os.Exit(cli.Execute())
}
