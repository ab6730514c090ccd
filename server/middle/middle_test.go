package middle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

func TestCors(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantOrigin string
		wantCode   int
	}{
		{name: "allow all", method: http.MethodGet, origin: "http://a", wantOrigin: "*", wantCode: http.StatusTeapot},
		{name: "listed origin", origins: []string{"http://a", "http://b"}, method: http.MethodGet, origin: "http://b", wantOrigin: "http://b", wantCode: http.StatusTeapot},
		{name: "unlisted origin", origins: []string{"http://a"}, method: http.MethodGet, origin: "http://c", wantOrigin: "http://a", wantCode: http.StatusTeapot},
		{name: "preflight", method: http.MethodOptions, wantOrigin: "*", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCorsMiddleware(tt.origins, []string{http.MethodGet}, nil, true)
			req := httptest.NewRequest(tt.method, "/api/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			c.Cors(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET", rr.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewRequestLogger(zap.New(core))

	var seen string
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger.Info(r.Context(), "inside")
		seen = w.Header().Get(RequestIDHeader)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/test", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("inside").All()
	require.Len(t, entries, 1)
	assert.Equal(t, seen, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "/api/test", entries[0].ContextMap()["path"])
	assert.Equal(t, 1, logs.FilterMessage("hit endpoint").Len())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set(RequestIDHeader, "given")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "given", rr.Header().Get(RequestIDHeader))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.168.1.2, 10.0.0.1")
	assert.Equal(t, "192.168.1.2", ClientIP(req))

	req.Header.Set("X-Real-Ip", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", ClientIP(req))
}

func TestRequestTracker(t *testing.T) {
	rt := NewRequestTracker()
	rt.interval = 5 * time.Millisecond

	release := make(chan struct{})
	entered := make(chan struct{})
	handler := rt.TrackMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))
	go handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	<-entered
	assert.Equal(t, int64(1), rt.InFlight())

	done := rt.Done(context.Background())
	select {
	case <-done:
		t.Fatal("done before request finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker never drained")
	}
	assert.Equal(t, int64(0), rt.InFlight())
}

func TestRequestTracker_ContextDone(t *testing.T) {
	rt := NewRequestTracker()
	rt.inFlight.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	select {
	case <-rt.Done(ctx):
	case <-time.After(time.Second):
		t.Fatal("done not closed on cancelled context")
	}
}
