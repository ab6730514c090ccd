package middle

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request scoped logger to the context and logs every hit.
type RequestLogger struct {
	base *zap.Logger
}

func NewRequestLogger(base *zap.Logger) *RequestLogger {
	return &RequestLogger{base: base}
}

func (l *RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := l.base
		if logger == nil {
			logger = ctxLogger.GetLogger(r.Context())
		}
		ctx := ctxLogger.ConfigureCtx(logger.With(
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		), r.Context())

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		ctxLogger.Debug(ctx, "hit endpoint",
			zap.String("remote_ip", ClientIP(r)),
			zap.String("user_agent", r.UserAgent()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ClientIP returns the first address of X-Real-Ip, X-Forwarded-For or the remote address.
func ClientIP(r *http.Request) string {
	address := r.Header.Get("X-Real-Ip")
	if address == "" {
		address = r.Header.Get("X-Forwarded-For")
	}
	if address == "" {
		address = r.RemoteAddr
	}
	address = strings.TrimSpace(strings.Split(address, ",")[0])
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}
