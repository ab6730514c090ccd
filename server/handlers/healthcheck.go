package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

// Ping reports whether a dependency is reachable.
type Ping func(ctx context.Context) bool

// PingErr adapts an error returning ping.
func PingErr(ping func(ctx context.Context) error) Ping {
	return func(ctx context.Context) bool {
		if err := ping(ctx); err != nil {
			ctxLogger.Warn(ctx, "health check ping failed", zap.Error(err))
			return false
		}
		return true
	}
}

var HealthCheck = &endpoints.Endpoint{
	URLPath: "/health_check",
	Methods: []string{http.MethodGet, http.MethodPost},
	HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	},
}

// NewAdvancedHealthCheck runs every ping in parallel under timeout and answers 503
// listing each failed dependency.
func NewAdvancedHealthCheck(timeout time.Duration, pings map[string]Ping) *endpoints.Endpoint {
	return &endpoints.Endpoint{
		URLPath: HealthCheck.URLPath,
		Methods: HealthCheck.Methods,
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			var (
				mu     sync.Mutex
				wg     sync.WaitGroup
				failed []string
			)
			for name, ping := range pings {
				name, ping := name, ping
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ping(ctx) {
						return
					}
					mu.Lock()
					failed = append(failed, name)
					mu.Unlock()
				}()
			}
			wg.Wait()

			if len(failed) == 0 {
				w.WriteHeader(http.StatusOK)
				return
			}
			sort.Strings(failed)
			lines := make([]string, 0, len(failed))
			for _, name := range failed {
				lines = append(lines, fmt.Sprintf("failed to ping:%s", name))
			}
			ctxLogger.Warn(r.Context(), "health check failed", zap.Strings("failed", failed))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(lines, "\n")))
		},
	}
}
