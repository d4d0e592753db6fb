package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"github.com/sebuszqo/PaymentWidget/internal/metrics"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20

	pathCategories      = "/Api/GetCategory"
	pathCatalogService  = "/Api/GetServiceById"
	pathAgentServices   = "/api/payment/get-agent-services"
	pathPaymentService  = "/api/payment/GetServiceById"
	pathSession         = "/api/payment/get-session"
	pathAccountCheck    = "/api/payment/account-check"
	pathPaymentEndpoint = "/api/payment/"
)

// Client talks to the two billing hosts: the catalog API (categories and
// service details with their form parameters) and the payment API (agent
// services, sessions, account checks and payments).
type Client struct {
	catalogURL string
	paymentURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(catalogURL, paymentURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		catalogURL: strings.TrimRight(catalogURL, "/"),
		paymentURL: strings.TrimRight(paymentURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) GetCategories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := c.getJSON(ctx, "get-category", c.catalogURL+pathCategories, "", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	return categories, nil
}

func (c *Client) GetServices(ctx context.Context, agentID string) ([]catalog.Service, error) {
	u := c.paymentURL + pathAgentServices + "?" + url.Values{"agentId": {agentID}}.Encode()

	var services []catalog.Service
	if err := c.getJSON(ctx, "get-agent-services", u, "", &services); err != nil {
		return nil, err
	}
	if services == nil {
		services = []catalog.Service{}
	}
	return services, nil
}

// GetServiceByID loads the full service description, including the
// additional form parameters, from the catalog API.
func (c *Client) GetServiceByID(ctx context.Context, token string, serviceID int) (*catalog.Service, error) {
	u := c.catalogURL + pathCatalogService + "?" + url.Values{"serviceId": {strconv.Itoa(serviceID)}}.Encode()

	var service catalog.Service
	if err := c.getJSON(ctx, "get-service", u, token, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// GetServiceCurrency resolves the settlement currency of a service from the
// payment API.
func (c *Client) GetServiceCurrency(ctx context.Context, token string, serviceID int) (string, error) {
	u := c.paymentURL + pathPaymentService + "?" + url.Values{"serviceId": {strconv.Itoa(serviceID)}}.Encode()

	var service catalog.Service
	if err := c.getJSON(ctx, "get-service-currency", u, token, &service); err != nil {
		return "", err
	}
	if service.CurrencyISO == "" {
		return "", ErrNoCurrency
	}
	return service.CurrencyISO, nil
}

func (c *Client) GetSession(ctx context.Context, token string) (string, error) {
	u := c.paymentURL + pathSession + "?" + url.Values{"token": {token}}.Encode()

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.getJSON(ctx, "get-session", u, "", &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%w: sessionId is missing", ErrMalformedResponse)
	}
	return resp.SessionID, nil
}

func (c *Client) CheckAccount(ctx context.Context, req AccountCheckRequest) (*AccountCheckResponse, error) {
	const endpoint = "account-check"
	started := time.Now()

	status, body, err := c.postJSON(ctx, c.paymentURL+pathAccountCheck, req)
	if err != nil {
		metrics.BillingRequest(endpoint, "transport_error", started)
		return nil, err
	}
	if status < 200 || status >= 300 {
		metrics.BillingRequest(endpoint, "http_error", started)
		return nil, &APIError{
			Endpoint: endpoint,
			Status:   status,
			Message:  messageOr(body, fmt.Sprintf("account check failed: %d", status)),
		}
	}

	resp, err := parseAccountCheck(body)
	if err != nil {
		metrics.BillingRequest(endpoint, "malformed", started)
		return nil, err
	}

	metrics.BillingRequest(endpoint, "success", started)
	return resp, nil
}

// SubmitPayment posts a payment to the given endpoint and returns the
// transaction identifier assigned by the billing system.
func (c *Client) SubmitPayment(ctx context.Context, endpoint PaymentEndpoint, req PaymentRequest) (string, error) {
	name := string(endpoint)
	started := time.Now()

	status, body, err := c.postJSON(ctx, c.paymentURL+pathPaymentEndpoint+name, req)
	if err != nil {
		metrics.BillingRequest(name, "transport_error", started)
		return "", err
	}
	if status < 200 || status >= 300 {
		metrics.BillingRequest(name, "http_error", started)
		return "", &APIError{
			Endpoint: name,
			Status:   status,
			Message:  messageOr(body, ""),
		}
	}

	var resp struct {
		TransactionID flexString `json:"transactionId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.TransactionID == "" {
		metrics.BillingRequest(name, "malformed", started)
		return "", fmt.Errorf("%w: transactionId is missing", ErrMalformedResponse)
	}

	metrics.BillingRequest(name, "success", started)
	return string(resp.TransactionID), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u, bearer string, out interface{}) error {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ngrok-skip-browser-warning", "true")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	status, body, err := c.do(req)
	if err != nil {
		metrics.BillingRequest(endpoint, "transport_error", started)
		return err
	}
	if status < 200 || status >= 300 {
		metrics.BillingRequest(endpoint, "http_error", started)
		return &APIError{
			Endpoint: endpoint,
			Status:   status,
			Message:  messageOr(body, http.StatusText(status)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.BillingRequest(endpoint, "malformed", started)
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}

	metrics.BillingRequest(endpoint, "success", started)
	return nil
}

func (c *Client) postJSON(ctx context.Context, u string, payload interface{}) (int, []byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payloadBytes))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	c.logger.DebugContext(req.Context(), "Calling billing API", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(req.Context(), "Error calling billing API", "path", req.URL.Path, "error", err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, err
	}

	c.logger.DebugContext(req.Context(), "Billing API responded", "path", req.URL.Path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

// messageOr extracts {"message": ...} from an error body.
func messageOr(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
