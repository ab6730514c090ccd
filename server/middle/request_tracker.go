package middle

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// RequestTracker counts in-flight requests so shutdown can wait for them to drain.
type RequestTracker struct {
	inFlight atomic.Int64
	interval time.Duration
}

func NewRequestTracker() *RequestTracker {
	return &RequestTracker{interval: 200 * time.Millisecond}
}

func (rt *RequestTracker) TrackMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.inFlight.Add(1)
		defer rt.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

func (rt *RequestTracker) InFlight() int64 {
	return rt.inFlight.Load()
}

// Done is closed once no request is in flight or ctx is done.
func (rt *RequestTracker) Done(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(rt.interval)
		defer ticker.Stop()
		for rt.inFlight.Load() > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
