package main

import (
	"os"

	"github.com/piza/prejst/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
