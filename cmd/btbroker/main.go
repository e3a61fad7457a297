package main

import (
	"os"

	"github.com/rustyeddy/btbroker/cmd/btbroker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
