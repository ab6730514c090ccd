package middle

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	CorsOriginsFlag     = "cors-origins"
	CorsMethodsFlag     = "cors-methods"
	CorsHeadersFlag     = "cors-headers"
	CorsCredentialsFlag = "cors-credentials"
)

type CorsMiddleware struct {
	AllowedOrigins     []string
	AllowedMethods     []string
	AllowedHeaders     []string
	AllowedCredentials bool
}

func CorsFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cors", pflag.ExitOnError)
	fs.StringSlice(CorsOriginsFlag, []string{}, "allowed origins, empty allows all")
	fs.StringSlice(CorsMethodsFlag, []string{http.MethodGet, http.MethodPost, http.MethodOptions}, "")
	fs.StringSlice(CorsHeadersFlag, []string{"Content-Type"}, "")
	fs.Bool(CorsCredentialsFlag, false, "")
	return fs
}

func NewCorsMiddlewareFromFlags() *CorsMiddleware {
	return NewCorsMiddleware(
		viper.GetStringSlice(CorsOriginsFlag),
		viper.GetStringSlice(CorsMethodsFlag),
		viper.GetStringSlice(CorsHeadersFlag),
		viper.GetBool(CorsCredentialsFlag),
	)
}

func NewCorsMiddleware(origin, methods, headers []string, creds bool) *CorsMiddleware {
	return &CorsMiddleware{
		AllowedOrigins:     origin,
		AllowedMethods:     methods,
		AllowedHeaders:     headers,
		AllowedCredentials: creds,
	}
}

func (c *CorsMiddleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", c.origin(r))
		w.Header().Set("Access-Control-Allow-Methods", getCorsData(c.AllowedMethods))
		w.Header().Set("Access-Control-Allow-Headers", getCorsData(c.AllowedHeaders))
		w.Header().Set("Access-Control-Allow-Credentials", strconv.FormatBool(c.AllowedCredentials))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// origin echoes the request origin when it is in the allow list.
func (c *CorsMiddleware) origin(r *http.Request) string {
	if len(c.AllowedOrigins) == 0 {
		return "*"
	}
	requested := r.Header.Get("Origin")
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, requested) {
			if requested == "" {
				return o
			}
			return requested
		}
	}
	return c.AllowedOrigins[0]
}

func getCorsData(list []string) string {
	if len(list) == 0 {
		return "*"
	}
	return strings.Join(list, ", ")
}
