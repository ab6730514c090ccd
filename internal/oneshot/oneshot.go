package oneshot

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/internal/report"
	"github.com/Seann-Moser/go-bench/pkg/bench"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/dashboard"
	"github.com/Seann-Moser/go-bench/pkg/telemetry"
)

const (
	SamplesFlag = "samples"
	WindowFlag  = "window"
)

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	fs.AddFlagSet(bench.Flags())
	fs.AddFlagSet(telemetry.Flags())
	fs.StringP(report.OutputFlag, "o", report.FormatTable, "table or json")
	fs.Int(SamplesFlag, 0, "override the sample count of latency groups")
	fs.Duration(WindowFlag, 0, "override the window of throughput groups")
	return fs
}

// Runner measures the named groups, or every configured group, once and prints the results.
func Runner(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	provider, err := telemetry.SetupFromFlags(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, provider.Shutdown(context.WithoutCancel(ctx)))
	}()

	runner, err := bench.NewRunnerFromFlags()
	if err != nil {
		return err
	}
	groups, err := bench.LoadGroups()
	if err != nil {
		return err
	}
	override := &bench.Override{
		Samples: viper.GetInt(SamplesFlag),
		Window:  viper.GetDuration(WindowFlag),
	}
	states, err := Run(ctx, runner, groups, args, override)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), viper.GetString(report.OutputFlag), states)
}

// Run measures the selected groups one after another in configuration order.
func Run(ctx context.Context, runner dashboard.GroupRunner, groups []bench.Group, names []string, override *bench.Override) ([]dashboard.GroupState, error) {
	selected, err := selectGroups(groups, names)
	if err != nil {
		return nil, err
	}
	states := make([]dashboard.GroupState, 0, len(selected))
	for _, g := range selected {
		g = g.WithOverride(override)
		start := time.Now()
		data, err := runner.Run(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s failed: %w", g.Name, err)
		}
		finished := time.Now()
		ctxLogger.Info(ctx, "benchmark finished", zap.String("group", g.Name), zap.Duration("elapsed", finished.Sub(start)))
		states = append(states, dashboard.GroupState{Name: g.Name, Unit: g.Unit, Data: data, UpdatedAt: &finished})
	}
	return states, nil
}

func selectGroups(groups []bench.Group, names []string) ([]bench.Group, error) {
	if len(names) == 0 {
		return groups, nil
	}
	byName := make(map[string]bench.Group, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}
	out := make([]bench.Group, 0, len(names))
	for _, name := range names {
		g, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownGroup, name)
		}
		out = append(out, g)
	}
	return out, nil
}
