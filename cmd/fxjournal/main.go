// Command fxjournal is a forex trading journal: a CLI for logging and
// reviewing trades and an HTTP API for the web frontend.
package main

import (
	"os"

	"forex-journal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
