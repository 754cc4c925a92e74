package main

import (
	"os"

	"github.com/coal/siterisk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
