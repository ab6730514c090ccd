package endpoint_manager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/go-bench/server/endpoints"
)

func TestManager_AddEndpoint(t *testing.T) {
	router := mux.NewRouter()
	m := NewManager(context.Background(), router)

	var added []string
	m.SetExtraFunc(func(e *endpoints.Endpoint) error {
		added = append(added, e.URLPath)
		return nil
	})

	require.NoError(t, m.AddEndpoints(
		endpoints.NewEndpoint("api", "test", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}, http.MethodGet),
		&endpoints.Endpoint{URLPath: "/raw", Handler: http.NotFoundHandler()},
	))
	assert.Equal(t, []string{"/api/test", "/raw"}, added)
	assert.Len(t, m.Endpoints(), 2)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/test", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/test", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestManager_Errors(t *testing.T) {
	m := NewManager(context.Background(), mux.NewRouter())
	assert.Error(t, m.AddEndpoint(&endpoints.Endpoint{URLPath: "/empty"}))

	m.SetExtraFunc(func(e *endpoints.Endpoint) error { return errors.New("rejected") })
	assert.EqualError(t, m.AddEndpoint(&endpoints.Endpoint{URLPath: "/x", Handler: http.NotFoundHandler()}), "rejected")
}
