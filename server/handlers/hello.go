package handlers

import (
	"net/http"

	"github.com/Seann-Moser/go-bench/pkg/response"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

const HelloWorldPath = "/api/test"

// NewHelloWorld is the minimal local route the latency and throughput groups measure.
func NewHelloWorld(resp *response.Response) *endpoints.Endpoint {
	return &endpoints.Endpoint{
		URLPath:     HelloWorldPath,
		Methods:     []string{http.MethodGet},
		Description: "hello world",
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			resp.Message(r.Context(), w, "Hello World")
		},
	}
}
