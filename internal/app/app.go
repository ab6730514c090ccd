package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/bench"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/dashboard"
	"github.com/Seann-Moser/go-bench/pkg/docstore"
	"github.com/Seann-Moser/go-bench/pkg/ps"
	"github.com/Seann-Moser/go-bench/pkg/telemetry"
	"github.com/Seann-Moser/go-bench/pkg/tieredCache"
)

// App owns the process wide dependencies of the dashboard.
type App struct {
	Store     docstore.Store
	Cache     tieredCache.Cache
	Bus       ps.PubSub[dashboard.GroupState]
	Board     *dashboard.Board
	Telemetry *telemetry.Provider
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("app", pflag.ExitOnError)
	fs.AddFlagSet(bench.Flags())
	fs.AddFlagSet(dashboard.Flags())
	fs.AddFlagSet(docstore.Flags())
	fs.AddFlagSet(tieredCache.Flags())
	fs.AddFlagSet(ps.Flags())
	fs.AddFlagSet(telemetry.Flags())
	return fs
}

// NewFromFlags opens every dependency. Anything opened before a failure is closed again.
func NewFromFlags(ctx context.Context) (a *App, err error) {
	a = &App{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close(ctx))
			a = nil
		}
	}()

	if a.Telemetry, err = telemetry.SetupFromFlags(ctx); err != nil {
		return a, err
	}
	if a.Store, err = docstore.NewFromFlags(ctx); err != nil {
		return a, err
	}
	a.Cache = tieredCache.NewFromFlags(docstore.NewCacheSource(a.Store))
	if a.Bus, err = ps.NewFromFlags[dashboard.GroupState](ctx); err != nil {
		return a, err
	}

	runner, err := bench.NewRunnerFromFlags()
	if err != nil {
		return a, err
	}
	groups, err := bench.LoadGroups()
	if err != nil {
		return a, err
	}
	opts := append(dashboard.OptionsFromFlags(a.Cache), dashboard.WithPublisher(a.Bus, ps.Topic()))
	if a.Board, err = dashboard.NewBoard(runner, groups, opts...); err != nil {
		return a, fmt.Errorf("failed creating dashboard: %w", err)
	}
	if restored := a.Board.Restore(ctx); restored > 0 {
		ctxLogger.Info(ctx, "restored cached results", zap.Int("groups", restored))
	}
	return a, nil
}

// Close releases every dependency and reports all failures.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.Bus != nil {
		err = multierr.Append(err, a.Bus.Close())
	}
	if closer, ok := a.Cache.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	if a.Store != nil {
		err = multierr.Append(err, a.Store.Close())
	}
	if a.Telemetry != nil {
		err = multierr.Append(err, a.Telemetry.Shutdown(ctx))
	}
	return err
}
