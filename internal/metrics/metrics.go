package metrics

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/sebuszqo/PaymentWidget/internal/config"
	"log/slog"
	"net/http"
	"time"
)

func Setup(cfg config.Metrics, logger *slog.Logger) {
	if cfg.PushURL == "" {
		return
	}

	err := metrics.InitPush(cfg.PushURL, time.Duration(cfg.IntervalMs)*time.Millisecond, cfg.CommonLabels, true)
	if err != nil {
		logger.Error("Error initializing metrics push", "error", err)
	}
}

// Handler exposes all registered metrics in Prometheus text format.
func Handler(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

func BillingRequest(endpoint, result string, started time.Time) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`billing_requests_total{endpoint=%q,result=%q}`, endpoint, result)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`billing_request_duration_milliseconds{endpoint=%q}`, endpoint)).
		Update(float64(time.Since(started).Milliseconds()))
}

func CheckoutStep(step, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`checkout_steps_total{step=%q,result=%q}`, step, result)).Inc()
}

func NotifyCallback(result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`notify_callbacks_total{result=%q}`, result)).Inc()
}
