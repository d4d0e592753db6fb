package checkout

import (
	"context"
	"github.com/sebuszqo/PaymentWidget/internal/billing"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"github.com/sebuszqo/PaymentWidget/internal/events"
	"sync"
)

type MockGateway struct {
	mu sync.Mutex

	Service     *catalog.Service
	ServiceErr  error
	SessionID   string
	SessionErr  error
	Currency    string
	CurrencyErr error
	CheckResp   *billing.AccountCheckResponse
	CheckErr    error
	TxID        string
	PayErr      error

	// CheckGate, when set, holds CheckAccount until it is closed.
	CheckGate chan struct{}
	// CheckStarted receives a value when CheckAccount is entered.
	CheckStarted chan struct{}

	CheckRequests   []billing.AccountCheckRequest
	PaymentRequests []billing.PaymentRequest
	Endpoints       []billing.PaymentEndpoint
	SessionCalls    int
	CurrencyCalls   int
}

func (m *MockGateway) GetServiceByID(_ context.Context, _ string, _ int) (*catalog.Service, error) {
	if m.ServiceErr != nil {
		return nil, m.ServiceErr
	}
	service := *m.Service
	return &service, nil
}

func (m *MockGateway) GetSession(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionCalls++
	return m.SessionID, m.SessionErr
}

func (m *MockGateway) GetServiceCurrency(_ context.Context, _ string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrencyCalls++
	return m.Currency, m.CurrencyErr
}

func (m *MockGateway) CheckAccount(_ context.Context, req billing.AccountCheckRequest) (*billing.AccountCheckResponse, error) {
	m.mu.Lock()
	m.CheckRequests = append(m.CheckRequests, req)
	gate, started := m.CheckGate, m.CheckStarted
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return m.CheckResp, m.CheckErr
}

func (m *MockGateway) SubmitPayment(_ context.Context, endpoint billing.PaymentEndpoint, req billing.PaymentRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentRequests = append(m.PaymentRequests, req)
	m.Endpoints = append(m.Endpoints, endpoint)
	return m.TxID, m.PayErr
}

func (m *MockGateway) checkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CheckRequests)
}

func (m *MockGateway) paymentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PaymentRequests)
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []events.PaymentEvent
}

func (m *MockPublisher) Publish(_ context.Context, event events.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }
