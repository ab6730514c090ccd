package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Seann-Moser/go-bench/pkg/bench"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/dashboard"
	"github.com/Seann-Moser/go-bench/pkg/pagination"
	"github.com/Seann-Moser/go-bench/pkg/request"
	"github.com/Seann-Moser/go-bench/pkg/response"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

const (
	BenchmarksPath = "/api/benchmarks"
	RunPath        = BenchmarksPath + "/{group}/run"
	RunsPath       = BenchmarksPath + "/runs"

	RunRateFlag  = "dashboard-run-rate"
	RunBurstFlag = "dashboard-run-burst"
	ResyncFlag   = "dashboard-live-resync"
)

type runRequest struct {
	Samples int    `json:"samples"`
	Window  string `json:"window"`
}

func (r *runRequest) override() (*bench.Override, error) {
	if r.Samples < 0 {
		return nil, fmt.Errorf("samples must not be negative: %d", r.Samples)
	}
	o := &bench.Override{Samples: r.Samples}
	if r.Window != "" {
		window, err := time.ParseDuration(r.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", r.Window, err)
		}
		if window <= 0 {
			return nil, fmt.Errorf("window must be positive: %s", window)
		}
		o.Window = window
	}
	return o, nil
}

// Dashboard exposes the board over HTTP.
type Dashboard struct {
	board   *dashboard.Board
	resp    *response.Response
	limiter *rate.Limiter
	// parent of every run context
	baseCtx context.Context
}

func DashboardFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("dashboard-api", pflag.ExitOnError)
	fs.Float64(RunRateFlag, 0.2, "benchmark runs allowed per second")
	fs.Int(RunBurstFlag, 3, "")
	fs.Duration(ResyncFlag, 30*time.Second, "idle time before live clients get a fresh snapshot, 0 disables")
	return fs
}

func NewDashboardFromFlags(baseCtx context.Context, board *dashboard.Board, resp *response.Response) *Dashboard {
	limit := rate.Limit(viper.GetFloat64(RunRateFlag))
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := viper.GetInt(RunBurstFlag)
	if burst <= 0 {
		burst = 1
	}
	return NewDashboard(baseCtx, board, resp, rate.NewLimiter(limit, burst))
}

func NewDashboard(baseCtx context.Context, board *dashboard.Board, resp *response.Response, limiter *rate.Limiter) *Dashboard {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Dashboard{
		board:   board,
		resp:    resp,
		limiter: limiter,
		baseCtx: baseCtx,
	}
}

func (d *Dashboard) Endpoints() []*endpoints.Endpoint {
	return []*endpoints.Endpoint{
		{URLPath: BenchmarksPath, Methods: []string{http.MethodGet}, HandlerFunc: d.Snapshot, Description: "current results of every group"},
		{URLPath: RunsPath, Methods: []string{http.MethodGet}, HandlerFunc: d.Runs, Description: "run history, newest first"},
		{URLPath: RunPath, Methods: []string{http.MethodPost}, HandlerFunc: d.Run, Description: "runs one benchmark group"},
	}
}

func (d *Dashboard) Snapshot(w http.ResponseWriter, r *http.Request) {
	d.resp.DataResponse(r.Context(), w, d.board.Snapshot(), http.StatusOK)
}

func (d *Dashboard) Runs(w http.ResponseWriter, r *http.Request) {
	response.PaginationResponse(r.Context(), d.resp, w, d.board.Runs(), pagination.GeneratePagination(r))
}

func (d *Dashboard) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group := mux.Vars(r)["group"]

	body, err := request.GetBody[runRequest](r)
	if err != nil {
		d.resp.Error(ctx, w, err, http.StatusBadRequest, "invalid run request")
		return
	}
	override, err := body.override()
	if err != nil {
		d.resp.Error(ctx, w, err, http.StatusBadRequest, err.Error())
		return
	}
	if !d.limiter.Allow() {
		d.resp.Error(ctx, w, nil, http.StatusTooManyRequests, "too many benchmark runs, try again later")
		return
	}

	runCtx := ctxLogger.ConfigureCtx(ctxLogger.GetLogger(ctx), d.baseCtx)
	state, err := d.board.Run(runCtx, group, override)
	var runErr *dashboard.RunError
	switch {
	case errors.Is(err, dashboard.ErrUnknownGroup):
		d.resp.Error(ctx, w, err, http.StatusNotFound, fmt.Sprintf("unknown benchmark group: %s", group))
	case errors.Is(err, dashboard.ErrBusy):
		d.resp.Error(ctx, w, err, http.StatusConflict, "a benchmark is already running")
	case errors.As(err, &runErr):
		d.resp.Error(ctx, w, err, http.StatusBadGateway, runErr.Message)
	case err != nil:
		d.resp.Error(ctx, w, err, http.StatusInternalServerError, "benchmark failed")
	default:
		ctxLogger.Debug(ctx, "benchmark served", zap.String("group", group), zap.String("run_id", state.RunID))
		d.resp.DataResponse(ctx, w, state, http.StatusOK)
	}
}
