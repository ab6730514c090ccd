package metrics

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if v, ok := labels[l.GetName()]; ok && v != l.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterMetrics(reg)
	router := mux.NewRouter()
	router.Use(PrometheusMiddleware)
	router.HandleFunc("/api/benchmarks/{group}/run", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}).Methods(http.MethodPost)

	route := map[string]string{"path": "/api/benchmarks/{group}/run", "method": http.MethodPost}
	conflict := map[string]string{"status": "409"}
	before := counterValue(t, reg, "http_requests_total", route)
	conflicts := counterValue(t, reg, "response_status", conflict)

	for _, group := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/benchmarks/"+group+"/run", nil))
		assert.Equal(t, http.StatusConflict, rr.Code)
	}

	assert.Equal(t, before+2, counterValue(t, reg, "http_requests_total", route))
	assert.Equal(t, conflicts+2, counterValue(t, reg, "response_status", conflict))
}

func TestAddMetricsEndpoint(t *testing.T) {
	RegisterDefaultMetrics()
	router := mux.NewRouter()
	AddMetricsEndpoint(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines"))
}

func TestOtelMiddleware(t *testing.T) {
	o, err := NewOtel()
	require.NoError(t, err)

	handler := o.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/test", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestStatusWriter_Hijack(t *testing.T) {
	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	ww := newStatusWriter(rec)
	_, _, err := ww.Hijack()
	require.NoError(t, err)
	assert.True(t, rec.hijacked)
	assert.Equal(t, http.StatusSwitchingProtocols, ww.status)

	_, _, err = newStatusWriter(httptest.NewRecorder()).Hijack()
	assert.Error(t, err)
}
