package clientpkg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestClient_SendRequest(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "yes", r.Header.Get("X-Test"))
			_, _ = w.Write([]byte(`{"data":[{"name":"a"}],"page":{"current_page":2,"total_items":21}}`))
		case "/api/run":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = w.Write([]byte(`{"data":{"name":"ran"}}`))
		default:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"a benchmark is already running"}`))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	items, page, err := GetResponse[[]item](c.SendRequest(ctx, "/api/items", http.MethodGet, nil, map[string]string{"page": "2"}, map[string]string{"X-Test": "yes"}))
	require.NoError(t, err)
	assert.Equal(t, []item{{Name: "a"}}, items)
	require.NotNil(t, page)
	assert.Equal(t, uint(2), page.CurrentPage)
	assert.Equal(t, uint(21), page.TotalItems)

	ran, page, err := GetResponse[item](c.SendRequest(ctx, "/api/run", http.MethodPost, map[string]int{"samples": 3}, nil, nil))
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.Equal(t, "ran", ran.Name)
	assert.Equal(t, float64(3), gotBody["samples"])

	_, _, err = c.SendRequest(ctx, "/api/busy", http.MethodPost, nil, nil, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.EqualError(t, err, "invalid status code: 409: a benchmark is already running")
}

func TestGetFlagWithPrefix(t *testing.T) {
	assert.Equal(t, "docstore-max-retry", GetFlagWithPrefix("max-retry", "docstore"))
	assert.Equal(t, "max-retry", GetFlagWithPrefix("max-retry", ""))
	assert.Equal(t, "DOCSTORE_MAX_RETRY", EnvName("docstore-max-retry"))
}

func TestBackOff_Retry(t *testing.T) {
	var calls atomic.Int32
	b := NewBackoff(3, time.Millisecond, time.Second, time.Millisecond)
	err := b.Retry(context.Background(), func() error {
		if calls.Add(1) < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	err = b.Retry(context.Background(), func() error {
		calls.Add(1)
		return errors.New("never")
	})
	assert.EqualError(t, err, "never")
	assert.Equal(t, int32(4), calls.Load())
}
