package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/docstore"
	"github.com/Seann-Moser/go-bench/pkg/response"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

const ReadDBPath = "/api/readDB"

// NewReadDB serves the document with documentID. A missing document is a 200 with a null body.
func NewReadDB(resp *response.Response, store docstore.Store, documentID string) *endpoints.Endpoint {
	return &endpoints.Endpoint{
		URLPath:     ReadDBPath,
		Methods:     []string{http.MethodGet},
		Description: "reads the benchmark document",
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			doc, err := store.Get(ctx, documentID)
			switch {
			case errors.Is(err, docstore.ErrNotFound):
				ctxLogger.Debug(ctx, "document not found", zap.String("id", documentID))
				resp.DataNoWrap(ctx, w, nil, http.StatusOK)
			case err != nil:
				resp.Error(ctx, w, err, http.StatusInternalServerError, "failed to read document")
			default:
				resp.DataNoWrap(ctx, w, doc, http.StatusOK)
			}
		},
	}
}
