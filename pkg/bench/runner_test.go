package bench

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Hello World"}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	runner := NewRunner(NewSampler(WithClient(srv.Client())), base)

	group := Group{
		Name:    "latency",
		Unit:    "ms",
		Kind:    KindLatency,
		Samples: 3,
		Endpoints: []Endpoint{
			{Name: "Go", URL: "/api/test"},
			{Name: "Broken", URL: srv.URL + "/broken"},
			{Name: "Down", URL: "http://127.0.0.1:1/nothing"},
		},
	}
	data, err := runner.Run(context.Background(), group)
	require.NoError(t, err)
	require.Len(t, data, 3)

	assert.Equal(t, "Go", data[0].Name)
	assert.Equal(t, 3, data[0].TotalRequests)
	assert.Equal(t, 3, data[0].SuccessfulResponses)
	assert.True(t, data[0].Value.Valid())
	assert.Equal(t, math.Round(float64(data[0].Value)), float64(data[0].Value))

	assert.Equal(t, "Broken", data[1].Name)
	assert.Equal(t, 3, data[1].TotalRequests)
	assert.Equal(t, 0, data[1].SuccessfulResponses)

	assert.Equal(t, "Down", data[2].Name)
	assert.Equal(t, 3, data[2].TotalRequests)
	assert.Equal(t, 0, data[2].SuccessfulResponses)
	assert.False(t, data[2].Value.Valid())

	raw, err := json.Marshal(data[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Down","value":null,"totalRequests":3,"successfulResponses":0}`, string(raw))
}

func TestRunner_Throughput(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	doer := &fakeDoer{clock: clock, delay: 100 * time.Millisecond, status: http.StatusOK}
	runner := NewRunner(NewSampler(WithClient(doer), WithClock(clock.Now)), nil)

	data, err := runner.Run(context.Background(), Group{
		Name:      "throughput",
		Unit:      "req/s",
		Kind:      KindThroughput,
		Window:    time.Second,
		Endpoints: []Endpoint{{Name: "A", URL: "http://a.test/"}},
	})
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, Metric(10), data[0].Value)
	assert.Equal(t, 10, data[0].TotalRequests)
}

func TestRunner_Errors(t *testing.T) {
	runner := NewRunner(NewSampler(WithClient(&fakeDoer{status: http.StatusOK})), nil)

	_, err := runner.Run(context.Background(), Group{
		Name:      "local",
		Kind:      KindLatency,
		Endpoints: []Endpoint{{Name: "Go", URL: "/api/test"}},
	})
	assert.ErrorIs(t, err, ErrRelativeEndpoint)

	_, err = runner.Run(context.Background(), Group{
		Name:      "odd",
		Kind:      Kind("jitter"),
		Endpoints: []Endpoint{{Name: "A", URL: "http://a.test/"}},
	})
	assert.ErrorIs(t, err, ErrUnknownKind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, Group{
		Name:      "cancelled",
		Kind:      KindLatency,
		Endpoints: []Endpoint{{Name: "A", URL: "http://a.test/"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
