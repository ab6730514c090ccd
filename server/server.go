package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/server/endpoint_manager"
	"github.com/Seann-Moser/go-bench/server/endpoints"
	"github.com/Seann-Moser/go-bench/server/metrics"
	"github.com/Seann-Moser/go-bench/server/middle"
)

const (
	PortFlag            = "server-port"
	ShutdownTimeoutFlag = "server-shutdown-timeout"
	ShowErrorsFlag      = "server-show-errors"
	ServiceName         = "go-bench"
)

var ErrDuplicateRoute = errors.New("route already registered")

type Server struct {
	ServingPort     string
	ctx             context.Context
	router          *mux.Router
	handler         http.Handler
	tracker         *middle.RequestTracker
	shutdownTimeout time.Duration
	EndpointManager *endpoint_manager.Manager
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	fs.String(PortFlag, "8080", "")
	fs.Duration(ShutdownTimeoutFlag, 5*time.Second, "time allowed for in-flight requests on shutdown")
	fs.Bool(ShowErrorsFlag, false, "include error details in error responses")
	fs.AddFlagSet(middle.CorsFlags())
	return fs
}

func NewServerFromFlags(ctx context.Context) (*Server, error) {
	return NewServer(ctx, viper.GetString(PortFlag), viper.GetDuration(ShutdownTimeoutFlag), middle.NewCorsMiddlewareFromFlags())
}

// NewServer builds the router and its middleware chain. The server stops when ctx is done.
func NewServer(ctx context.Context, servingPort string, shutdownTimeout time.Duration, cors *middle.CorsMiddleware) (*Server, error) {
	router := mux.NewRouter()
	tracker := middle.NewRequestTracker()
	otelMetrics, err := metrics.NewOtel()
	if err != nil {
		return nil, err
	}

	metrics.RegisterDefaultMetrics()
	router.Use(
		tracker.TrackMiddleware,
		middle.NewRequestLogger(ctxLogger.GetLogger(ctx)).Middleware,
		metrics.PrometheusMiddleware,
		otelMetrics.Middleware,
	)
	metrics.AddMetricsEndpoint(router)

	// cors sits outside the router so preflights never reach method matching.
	handler := http.Handler(router)
	if cors != nil {
		handler = cors.Cors(handler)
	}

	manager := endpoint_manager.NewManager(ctx, router)
	manager.SetExtraFunc(uniqueRoutes())
	return &Server{
		ServingPort:     servingPort,
		ctx:             ctx,
		router:          router,
		handler:         otelhttp.NewHandler(handler, ServiceName),
		tracker:         tracker,
		shutdownTimeout: shutdownTimeout,
		EndpointManager: manager,
	}, nil
}

// uniqueRoutes rejects a second registration of the same method and path.
// mux would otherwise serve only the first one.
func uniqueRoutes() func(*endpoints.Endpoint) error {
	seen := map[string]struct{}{}
	return func(e *endpoints.Endpoint) error {
		methods := e.GetMethods()
		if len(methods) == 0 {
			methods = []string{"*"}
		}
		for _, m := range methods {
			key := m + " " + e.URLPath
			if _, ok := seen[key]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
			}
			seen[key] = struct{}{}
		}
		return nil
	}
}

func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// StartServer listens on the serving port and blocks until the server context is done.
func (s *Server) StartServer() error {
	ln, err := net.Listen("tcp", ":"+s.ServingPort)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(s.ctx) },
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	ctxLogger.Info(s.ctx, "server started", zap.String("address", ln.Addr().String()))

	select {
	case err := <-errc:
		ctxLogger.Error(s.ctx, "failed serving", zap.Error(err))
		return err
	case <-s.ctx.Done():
	}
	ctxLogger.Info(s.ctx, "server stopping", zap.Int64("in_flight", s.tracker.InFlight()))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.shutdownTimeout)
	defer cancel()
	<-s.tracker.Done(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		ctxLogger.Error(s.ctx, "server shutdown failed", zap.Error(err))
		return err
	}
	ctxLogger.Info(s.ctx, "server exited properly")
	return nil
}
