package main

import (
	"os"

	"github.com/oggyb/chatible/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
