package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/go-bench/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Stores the document read by /api/readDB",
	Args:  cobra.NoArgs,
	RunE:  seed.Runner,
}

func init() {
	seedCmd.Flags().AddFlagSet(seed.Flags())
	rootCmd.AddCommand(seedCmd)
}
