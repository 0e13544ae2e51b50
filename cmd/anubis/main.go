package main

import (
	"os"

	"github.com/Sown0205/Anubis/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
