package response

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seann-Moser/go-bench/pkg/pagination"
)

func TestResponse_Error(t *testing.T) {
	tests := []struct {
		name      string
		showError bool
		expected  string
	}{
		{name: "hidden", showError: false, expected: `{"message":"Failed to fetch data"}`},
		{name: "shown", showError: true, expected: `{"message":"Failed to fetch data","data":"connection refused"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewResponse(tt.showError).Error(context.Background(), w, errors.New("connection refused"), http.StatusInternalServerError, "Failed to fetch data")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expected, w.Body.String())
		})
	}
}

func TestResponse_DataResponse(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse(false).DataResponse(context.Background(), w, map[string]int{"a": 1}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"a":1}}`, w.Body.String())
}

func TestResponse_DataNoWrap(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse(false).DataNoWrap(context.Background(), w, map[string]string{"message": "Hello World"}, http.StatusOK)
	assert.JSONEq(t, `{"message":"Hello World"}`, w.Body.String())

	w = httptest.NewRecorder()
	NewResponse(false).DataNoWrap(context.Background(), w, nil, http.StatusOK)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestResponse_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse(false).DataNoWrap(context.Background(), w, math.NaN(), http.StatusOK)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResponse_Message(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse(false).Message(context.Background(), w, "ok")
	assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
}

func TestPaginationResponse(t *testing.T) {
	w := httptest.NewRecorder()
	items := []string{"a", "b", "c", "d", "e"}
	PaginationResponse(context.Background(), NewResponse(false), w, items, &pagination.Pagination{CurrentPage: 2, ItemsPerPage: 2})

	require.Equal(t, http.StatusOK, w.Code)
	var body BaseResponseGeneric[[]string]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"c", "d"}, body.Data)
	require.NotNil(t, body.Page)
	assert.Equal(t, uint(5), body.Page.TotalItems)
	assert.Equal(t, uint(3), body.Page.TotalPages)

	w = httptest.NewRecorder()
	PaginationResponse[string](context.Background(), NewResponse(false), w, nil, &pagination.Pagination{})
	assert.JSONEq(t, `{"data":[],"page":{"current_page":1,"next_page":1,"total_items":0,"total_pages":1,"items_per_page":20}}`, w.Body.String())
}
