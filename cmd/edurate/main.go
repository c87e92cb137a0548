package main

import (
	"os"

	"github.com/elmarb/edurate/cmd/edurate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
