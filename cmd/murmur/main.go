package main

import (
	"os"

	"github.com/averith/murmur/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
