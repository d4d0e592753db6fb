package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// StatusVerified is the ResponseStatus the billing system returns for an
// account that may be paid.
const StatusVerified = "10"

var (
	ErrMalformedResponse = errors.New("malformed billing response")
	ErrNoCurrency        = errors.New("currency is not set for the service")
)

// APIError is a non-OK response from the billing API. Message carries the
// server-supplied text when there was one.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// PaymentEndpoint selects the billing endpoint a payment is sent to.
type PaymentEndpoint string

const (
	CreatePayment  PaymentEndpoint = "create-payment"
	ProcessPayment PaymentEndpoint = "process-payment"
)

type AccountCheckRequest struct {
	Token            string            `json:"token"`
	SessionID        string            `json:"sessionId"`
	TransactionID    string            `json:"transactionId"`
	Service          string            `json:"service"`
	Amount           string            `json:"amount"`
	Currency         string            `json:"currency"`
	Account          string            `json:"account"`
	AdditionalParams map[string]string `json:"additionalParams"`
}

type PaymentRequest struct {
	Token            string            `json:"token"`
	SessionID        string            `json:"sessionId"`
	Service          string            `json:"service"`
	Amount           string            `json:"amount"`
	Currency         string            `json:"currency"`
	Account          string            `json:"account"`
	AdditionalParams map[string]string `json:"additionalParams"`
}

type Extra struct {
	FieldName  string `json:"FieldName"`
	FieldValue string `json:"FieldValue"`
}

type AccountCheckResponse struct {
	Status string
	Error  string
	Extras []Extra
}

func (r *AccountCheckResponse) Verified() bool {
	return r.Status == StatusVerified
}

func (r *AccountCheckResponse) Extra(name string) (string, bool) {
	for _, e := range r.Extras {
		if e.FieldName == name {
			return e.FieldValue, true
		}
	}
	return "", false
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type responseLog struct {
	ResponseStatus     flexString `json:"ResponseStatus"`
	Error              string     `json:"Error"`
	Extras             []Extra    `json:"Extras"`
	TransactionContent *struct {
		Extras []Extra `json:"Extras"`
	} `json:"TransactionContent"`
}

// parseAccountCheck unwraps ResponseLog, which the billing API sends either
// as an object or as a JSON-encoded string. Without ResponseLog the whole
// body is treated as the log.
func parseAccountCheck(body []byte) (*AccountCheckResponse, error) {
	var envelope struct {
		ResponseLog json.RawMessage `json:"ResponseLog"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw := bytes.TrimSpace(envelope.ResponseLog)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		raw = body
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		raw = []byte(s)
	}

	var rl responseLog
	if err := json.Unmarshal(raw, &rl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rl.ResponseStatus == "" {
		return nil, fmt.Errorf("%w: ResponseStatus is missing", ErrMalformedResponse)
	}

	resp := &AccountCheckResponse{
		Status: string(rl.ResponseStatus),
		Error:  rl.Error,
		Extras: rl.Extras,
	}
	if rl.TransactionContent != nil && len(rl.TransactionContent.Extras) > 0 {
		resp.Extras = rl.TransactionContent.Extras
	}
	return resp, nil
}
