package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/sebuszqo/PaymentWidget/internal/metrics"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultTimeout = 5 * time.Second

type callbackPayload struct {
	TransactionID string `json:"transactionId"`
}

// Notifier tells the partner that a payment reached the success page.
// Delivery is best effort: one attempt, no retry, errors never reach the
// payer.
type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewNotifier(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Notify fires the callback in the background on a context detached from
// the caller. An empty transaction id or callback URL is a no-op.
func (n *Notifier) Notify(ctx context.Context, transactionID string) {
	if transactionID == "" || n.url == "" {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.Send(ctx, transactionID); err != nil {
			n.logger.DebugContext(ctx, "Partner callback failed", "transactionId", transactionID, "error", err)
			metrics.NotifyCallback("error")
			return
		}
		metrics.NotifyCallback("success")
	}()
}

// Wait blocks until every callback started by Notify has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) Send(ctx context.Context, transactionID string) error {
	body, err := json.Marshal(callbackPayload{TransactionID: transactionID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	n.logger.DebugContext(ctx, "Sending partner callback", "url", n.url, "transactionId", transactionID)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("error response: %s", resp.Status)
	}
	return nil
}
