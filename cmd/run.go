package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/go-bench/internal/oneshot"
)

var runCmd = &cobra.Command{
	Use:   "run [group...]",
	Short: "Measures benchmark groups once and prints the results",
	RunE:  oneshot.Runner,
}

func init() {
	runCmd.Flags().AddFlagSet(oneshot.Flags())
	rootCmd.AddCommand(runCmd)
}
