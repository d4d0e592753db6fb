package logging

import (
	"context"
	"github.com/grafana/loki-client-go/loki"
	"github.com/sebuszqo/PaymentWidget/internal/config"
	slogloki "github.com/samber/slog-loki/v3"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "payment-widget"

func GetLogger(cfg config.Logs) *slog.Logger {
	level := parseLevel(cfg.Level)
	if cfg.LokiURL == "" {
		return localLogger(level)
	}

	logger, err := remoteLogger(cfg.LokiURL, level)
	if err != nil {
		l := localLogger(level)
		l.Error("Error creating loki client, falling back to stdout", "error", err)
		return l
	}
	return logger
}

func localLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(&ContextHandler{Handler: handler}).With("service", serviceName)
}

func remoteLogger(url string, level slog.Level) (*slog.Logger, error) {
	lokiConfig, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil, err
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		return nil, err
	}

	return slog.New(slogloki.Option{
		Level:  level,
		Client: client,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{
			attrsFromContext,
		},
	}.NewLokiHandler()).With("service", serviceName), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
