package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/go-bench/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status [group...]",
	Short: "Shows the results of a running server, running the named groups first",
	RunE:  status.Runner,
}

func init() {
	statusCmd.Flags().AddFlagSet(status.Flags())
	rootCmd.AddCommand(statusCmd)
}
