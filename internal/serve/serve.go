package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/internal/app"
	"github.com/Seann-Moser/go-bench/pkg/bench"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/docstore"
	"github.com/Seann-Moser/go-bench/pkg/ps"
	"github.com/Seann-Moser/go-bench/pkg/response"
	"github.com/Seann-Moser/go-bench/server"
	"github.com/Seann-Moser/go-bench/server/endpoints"
	"github.com/Seann-Moser/go-bench/server/handlers"
)

const HealthTimeoutFlag = "health-timeout"

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	fs.AddFlagSet(server.Flags())
	fs.AddFlagSet(handlers.DashboardFlags())
	fs.AddFlagSet(app.Flags())
	fs.Duration(HealthTimeoutFlag, 2*time.Second, "timeout for the health check pings")
	return fs
}

func Runner(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if viper.GetString(bench.BaseURLFlag) == "" {
		viper.Set(bench.BaseURLFlag, "http://127.0.0.1:"+viper.GetString(server.PortFlag))
	}

	a, err := app.NewFromFlags(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			ctxLogger.Warn(ctx, "failed closing dependencies", zap.Error(err))
		}
	}()

	s, err := server.NewServerFromFlags(ctx)
	if err != nil {
		return err
	}
	hub := handlers.NewHub(a.Bus, ps.Topic(), a.Board.Snapshot, viper.GetDuration(handlers.ResyncFlag))
	go func() {
		if err := hub.Run(ctx); err != nil {
			ctxLogger.Error(ctx, "live feed stopped", zap.Error(err))
		}
	}()

	if err := s.EndpointManager.AddEndpoints(Endpoints(ctx, a, hub)...); err != nil {
		return err
	}
	return s.StartServer()
}

// Endpoints lists every route the dashboard serves.
func Endpoints(ctx context.Context, a *app.App, hub *handlers.Hub) []*endpoints.Endpoint {
	resp := response.NewResponse(viper.GetBool(server.ShowErrorsFlag))
	eps := []*endpoints.Endpoint{
		handlers.NewAdvancedHealthCheck(viper.GetDuration(HealthTimeoutFlag), map[string]handlers.Ping{
			"docstore": handlers.PingErr(a.Store.Ping),
			"cache":    handlers.PingErr(a.Cache.Ping),
			"pubsub":   handlers.PingErr(a.Bus.Ping),
		}),
		handlers.NewHelloWorld(resp),
		handlers.NewReadDB(resp, a.Store, docstore.DocumentID()),
	}
	eps = append(eps, handlers.NewDashboardFromFlags(ctx, a.Board, resp).Endpoints()...)
	if hub != nil {
		eps = append(eps, hub.Endpoint())
	}
	return eps
}
