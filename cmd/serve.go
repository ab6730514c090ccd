package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/go-bench/internal/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the dashboard API, the local benchmark routes and metrics",
	RunE:  serve.Runner,
}

func init() {
	serveCmd.Flags().AddFlagSet(serve.Flags())
	rootCmd.AddCommand(serveCmd)
}
