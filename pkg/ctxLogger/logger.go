package ctxLogger

import (
	"context"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type CtxLogger string

const (
	CTX_LOGGER = "logger"

	LogLevelFlag = "log-level"
	IsProdFlag   = "is-prod"
)

var globalLogger *zap.Logger

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ctx_logger", pflag.ExitOnError)
	fs.String(LogLevelFlag, "info", "debug, info, warn, error")
	fs.BoolP(IsProdFlag, "p", false, "use the production (json) encoder")
	return fs
}

// SetGlobal sets the logger returned when a context carries none.
func SetGlobal(logger *zap.Logger) {
	globalLogger = logger
	if logger != nil {
		zap.ReplaceGlobals(logger)
	}
}

func ConfigureCtx(logger *zap.Logger, ctx context.Context) context.Context {
	return context.WithValue(ctx, CTX_LOGGER, logger) //nolint:staticcheck
}

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return ConfigureCtx(GetLogger(ctx).With(fields...), ctx)
}

func GetLogger(ctx context.Context) *zap.Logger {
	if ctx == nil || ctx.Err() != nil {
		return fallback()
	}
	logger, ok := ctx.Value(CTX_LOGGER).(*zap.Logger)
	if !ok || logger == nil {
		return fallback()
	}
	return logger
}

func fallback() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return zap.L()
}

func NewLoggerFromFlags() (*zap.Logger, error) {
	return NewLogger(viper.GetBool(IsProdFlag), viper.GetString(LogLevelFlag))
}

func NewLogger(production bool, level string) (*zap.Logger, error) {
	var conf zap.Config
	if production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}
	if level == "" {
		level = "info"
	}
	if err := conf.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	return conf.Build()
}

func Debug(ctx context.Context, message string, fields ...zap.Field) {
	GetLogger(ctx).Debug(message, fields...)
}

func Info(ctx context.Context, message string, fields ...zap.Field) {
	GetLogger(ctx).Info(message, fields...)
}

func Warn(ctx context.Context, message string, fields ...zap.Field) {
	GetLogger(ctx).Warn(message, fields...)
}

func Error(ctx context.Context, message string, fields ...zap.Field) {
	GetLogger(ctx).Error(message, fields...)
}

func Fatal(ctx context.Context, message string, fields ...zap.Field) {
	GetLogger(ctx).Fatal(message, fields...)
}
