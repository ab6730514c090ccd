package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "go-bench",
	Short:         "Benchmarks HTTP endpoints and serves the results as a dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		logger, err := ctxLogger.NewLoggerFromFlags()
		if err != nil {
			return err
		}
		ctxLogger.SetGlobal(logger)
		cmd.SetContext(ctxLogger.ConfigureCtx(logger, cmd.Context()))
		if used := viper.ConfigFileUsed(); used != "" {
			ctxLogger.Debug(cmd.Context(), "loaded config", zap.String("file", used))
		}
		return nil
	},
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ctxLogger.Error(ctx, "command failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); may define groups")
	rootCmd.PersistentFlags().AddFlagSet(ctxLogger.Flags())
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed reading config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}
