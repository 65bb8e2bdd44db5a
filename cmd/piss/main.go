package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "piss",
		Short: "Parliamentary ingestion core: evidence citations and person reconciliation",
	}

	root.AddCommand(evidenceCMD(), reconcileCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
