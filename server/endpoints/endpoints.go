package endpoints

import (
	"net/http"
	"path"
	"strings"
)

type Endpoint struct {
	URLPath     string           `json:"url_path" yaml:"url_path"`
	Methods     []string         `json:"methods" yaml:"methods"`
	Description string           `json:"description"`
	HandlerFunc http.HandlerFunc `json:"-"`
	Handler     http.Handler     `json:"-"`
}

func NewEndpoint(prefix string, urlPath string, handlerFunc http.HandlerFunc, methods ...string) *Endpoint {
	return &Endpoint{
		URLPath:     path.Join("/", prefix, urlPath),
		Methods:     methods,
		HandlerFunc: handlerFunc,
	}
}

func (e *Endpoint) WithDescription(description string) *Endpoint {
	e.Description = description
	return e
}

func (e *Endpoint) GetMethods() []string {
	methods := make([]string, 0, len(e.Methods))
	for _, m := range e.Methods {
		methods = append(methods, strings.ToUpper(m))
	}
	return methods
}
