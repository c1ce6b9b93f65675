// Command lore is the entry point for the Lore knowledge base service.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// document ingestion and question-answering API.
package main

import (
	"fmt"
	"os"

	"github.com/lorehq/lore/cmd/lore/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
