package main

import (
	"os"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
