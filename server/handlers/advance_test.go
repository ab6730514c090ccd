package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func up(ctx context.Context) bool { return true }

func down(ctx context.Context) bool { return false }

func slow(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(2 * time.Second):
		return true
	}
}

func TestNewAdvancedHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		pings    map[string]Ping
		wantCode int
		wantBody string
	}{
		{name: "no pings", timeout: time.Second, pings: map[string]Ping{}, wantCode: http.StatusOK},
		{name: "all up", timeout: time.Second, pings: map[string]Ping{"docstore": up, "cache": up}, wantCode: http.StatusOK},
		{name: "one down", timeout: time.Second, pings: map[string]Ping{"docstore": down, "cache": up}, wantCode: http.StatusServiceUnavailable, wantBody: "failed to ping:docstore"},
		{name: "all down sorted", timeout: time.Second, pings: map[string]Ping{"pubsub": down, "cache": down}, wantCode: http.StatusServiceUnavailable, wantBody: "failed to ping:cache\nfailed to ping:pubsub"},
		{name: "timeout", timeout: time.Millisecond, pings: map[string]Ping{"docstore": slow}, wantCode: http.StatusServiceUnavailable, wantBody: "failed to ping:docstore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := NewAdvancedHealthCheck(tt.timeout, tt.pings)
			assert.Equal(t, "/health_check", endpoint.URLPath)

			rr := httptest.NewRecorder()
			endpoint.HandlerFunc(rr, httptest.NewRequest(http.MethodGet, endpoint.URLPath, nil))
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantBody, rr.Body.String())
		})
	}
}
