package response

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/pagination"
)

type Response struct {
	showError bool
}

type BaseResponse struct {
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Page    *pagination.Pagination `json:"page,omitempty"`
}

// BaseResponseGeneric is the typed form of BaseResponse, used by clients decoding replies.
type BaseResponseGeneric[T any] struct {
	Message string                 `json:"message,omitempty"`
	Data    T                      `json:"data,omitempty"`
	Page    *pagination.Pagination `json:"page,omitempty"`
}

func NewResponse(showErr bool) *Response {
	return &Response{showError: showErr}
}

// Error writes message with code. err is logged and only echoed to the client when showError is set.
func (resp *Response) Error(ctx context.Context, w http.ResponseWriter, err error, code int, message string) {
	if err != nil {
		if code >= http.StatusInternalServerError {
			ctxLogger.Error(ctx, message, zap.Error(err), zap.Int("code", code))
		} else {
			ctxLogger.Warn(ctx, message, zap.Error(err), zap.Int("code", code))
		}
	}
	var data interface{}
	if err != nil && resp.showError {
		data = err.Error()
	}
	resp.write(ctx, w, code, BaseResponse{Message: message, Data: data})
}

func (resp *Response) Message(ctx context.Context, w http.ResponseWriter, msg string) {
	resp.write(ctx, w, http.StatusOK, BaseResponse{Message: msg})
}

func (resp *Response) DataResponse(ctx context.Context, w http.ResponseWriter, data interface{}, code int) {
	resp.write(ctx, w, code, BaseResponse{Data: data})
}

// DataNoWrap writes data as the whole body. A nil data encodes as null.
func (resp *Response) DataNoWrap(ctx context.Context, w http.ResponseWriter, data interface{}, code int) {
	resp.write(ctx, w, code, data)
}

func PaginationResponse[T any](ctx context.Context, resp *Response, w http.ResponseWriter, items []T, page *pagination.Pagination) {
	pageItems := pagination.Paginate(items, page)
	if pageItems == nil {
		pageItems = []T{}
	}
	resp.write(ctx, w, http.StatusOK, BaseResponse{
		Data: pageItems,
		Page: page,
	})
}

func (resp *Response) write(ctx context.Context, w http.ResponseWriter, code int, body interface{}) {
	b, err := json.Marshal(body)
	if err != nil {
		ctxLogger.Error(ctx, "failed to encode response", zap.Error(err))
		code = http.StatusInternalServerError
		b = []byte(`{"message":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(b); err != nil {
		ctxLogger.Warn(ctx, "failed writing response", zap.Error(err))
	}
}
