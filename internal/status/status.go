package status

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/internal/report"
	"github.com/Seann-Moser/go-bench/pkg/clientpkg"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/dashboard"
	"github.com/Seann-Moser/go-bench/server/handlers"
)

const clientPrefix = "dashboard"

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	fs.AddFlagSet(clientpkg.Flags(clientPrefix))
	fs.StringP(report.OutputFlag, "o", report.FormatTable, "table or json")
	return fs
}

// Runner prints the dashboard of a running server. Group names given as arguments are run first.
func Runner(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := clientpkg.NewWithFlags(clientPrefix)
	if err != nil {
		return err
	}
	for _, group := range args {
		state, err := RunGroup(ctx, c, group)
		if err != nil {
			return err
		}
		ctxLogger.Info(ctx, "benchmark finished", zap.String("group", state.Name))
	}
	snap, err := Snapshot(ctx, c)
	if err != nil {
		return err
	}
	if snap.Loading {
		ctxLogger.Info(ctx, "benchmark in progress", zap.String("group", snap.Running))
	}
	if snap.Error != "" {
		ctxLogger.Warn(ctx, snap.Error)
	}
	return report.Write(cmd.OutOrStdout(), viper.GetString(report.OutputFlag), snap.Groups)
}

func Snapshot(ctx context.Context, c *clientpkg.Client) (dashboard.Snapshot, error) {
	snap, _, err := clientpkg.GetResponse[dashboard.Snapshot](c.SendRequest(ctx, handlers.BenchmarksPath, http.MethodGet, nil, nil, nil))
	return snap, err
}

func RunGroup(ctx context.Context, c *clientpkg.Client, group string) (dashboard.GroupState, error) {
	path := handlers.BenchmarksPath + "/" + url.PathEscape(group) + "/run"
	state, _, err := clientpkg.GetResponse[dashboard.GroupState](c.SendRequest(ctx, path, http.MethodPost, nil, nil, nil))
	return state, err
}
