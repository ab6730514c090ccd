package endpoint_manager

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

type Manager struct {
	ctx                     context.Context
	router                  *mux.Router
	endpoints               []*endpoints.Endpoint
	extraAddEndpointProcess func(endpoint *endpoints.Endpoint) error
}

func NewManager(ctx context.Context, router *mux.Router) *Manager {
	return &Manager{
		ctx:    ctx,
		router: router,
	}
}

// SetExtraFunc registers a hook run after every endpoint is added.
func (m *Manager) SetExtraFunc(v func(endpoint *endpoints.Endpoint) error) {
	m.extraAddEndpointProcess = v
}

func (m *Manager) AddEndpoints(eps ...*endpoints.Endpoint) error {
	for _, e := range eps {
		if err := m.AddEndpoint(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) AddEndpoint(endpoint *endpoints.Endpoint) error {
	var route *mux.Route
	switch {
	case endpoint.HandlerFunc != nil:
		route = m.router.HandleFunc(endpoint.URLPath, endpoint.HandlerFunc)
	case endpoint.Handler != nil:
		route = m.router.Handle(endpoint.URLPath, endpoint.Handler)
	default:
		return fmt.Errorf("endpoint %s has no handler", endpoint.URLPath)
	}
	if methods := endpoint.GetMethods(); len(methods) > 0 {
		route.Methods(methods...)
	}
	ctxLogger.Debug(m.ctx, "added endpoint",
		zap.String("path", endpoint.URLPath),
		zap.Strings("methods", endpoint.Methods))
	m.endpoints = append(m.endpoints, endpoint)

	if m.extraAddEndpointProcess != nil {
		return m.extraAddEndpointProcess(endpoint)
	}
	return nil
}

func (m *Manager) Endpoints() []*endpoints.Endpoint {
	return append([]*endpoints.Endpoint(nil), m.endpoints...)
}
