package web

import (
	"context"
	"encoding/json"
	"github.com/sebuszqo/PaymentWidget/internal/auth"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const testSecret = "your-secret-key-here-32-chars-long"

type MockLoader struct {
	Snapshot catalog.Snapshot
	AgentID  string
}

func (m *MockLoader) Load(_ context.Context, agentID string) catalog.Snapshot {
	m.AgentID = agentID
	return m.Snapshot
}

type MockNotifier struct {
	mu    sync.Mutex
	Calls []string
}

func (m *MockNotifier) Notify(_ context.Context, transactionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, transactionID)
}

func newTestPages(t *testing.T) (*Pages, *MockLoader, *MockNotifier, string) {
	t.Helper()

	tm, err := auth.NewTokenManager(testSecret)
	require.NoError(t, err)
	token, err := tm.Issue("agent-7", "user-1", "sess-1", 0)
	require.NoError(t, err)

	templates, err := LoadTemplates("")
	require.NoError(t, err)

	loader := &MockLoader{Snapshot: catalog.Snapshot{
		Categories: []catalog.Category{
			{ID: 7, Name: "Vouchers", OrderID: 2},
			{ID: 1, Name: "Mobile", OrderID: 1},
		},
		Services: []catalog.Service{
			{ID: 10, Name: "Beeline", CategoryID: 1},
			{ID: 11, Name: "Kcell", CategoryID: 1},
			{ID: 13, Name: "Steam Wallet Code", CategoryID: 7},
		},
	}}
	notifier := &MockNotifier{}

	return NewPages(loader, tm, notifier, templates, nil), loader, notifier, token
}

func TestServicesPage(t *testing.T) {
	pages, loader, _, token := newTestPages(t)

	req := httptest.NewRequest(http.MethodGet, "/services?token="+token+"&q=kce", nil)
	w := httptest.NewRecorder()
	pages.Services(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "agent-7", loader.AgentID)
	assert.Contains(t, string(body), "Kcell")
	assert.NotContains(t, string(body), "Beeline")
	assert.NotContains(t, string(body), "Steam Wallet Code")
	assert.Contains(t, string(body), `/static/checkout.js`)
}

func TestServicesPage_SelectedServiceInBreadcrumb(t *testing.T) {
	pages, _, _, token := newTestPages(t)

	req := httptest.NewRequest(http.MethodGet, "/services?token="+token+"&categoryId=7&serviceId=13", nil)
	w := httptest.NewRecorder()
	pages.Services(w, req)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, `data-service-id="13"`)
	assert.Contains(t, body, "<span>Steam Wallet Code</span>")
}

func TestServicesPage_TokenErrors(t *testing.T) {
	pages, _, _, _ := newTestPages(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantText   string
	}{
		{name: "missing token", query: "", wantStatus: http.StatusBadRequest, wantText: "Token not provided"},
		{name: "invalid token", query: "?token=garbage", wantStatus: http.StatusUnauthorized, wantText: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/services"+tt.query, nil)
			w := httptest.NewRecorder()
			pages.Services(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantText)
		})
	}
}

func TestCatalogJSON(t *testing.T) {
	pages, _, _, token := newTestPages(t)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog?token="+token, nil)
	w := httptest.NewRecorder()
	pages.Catalog(w, req)

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var response catalogResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, 1, response.ActiveCategoryID, "defaults to the first category by OrderId")
	require.Len(t, response.Categories, 2)
	assert.Equal(t, "Mobile", response.Categories[0].Name)
	assert.Len(t, response.Services, 2)
	require.Len(t, response.Breadcrumb, 2)
	assert.Equal(t, "Services", response.Breadcrumb[0].Label)
}

func TestCatalogJSON_Unauthorized(t *testing.T) {
	pages, _, _, _ := newTestPages(t)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog?token=garbage", nil)
	w := httptest.NewRecorder()
	pages.Catalog(w, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", response["status"])
	assert.Equal(t, "Invalid token", response["message"])
}

func TestSuccessPage_NotifiesOnce(t *testing.T) {
	pages, _, notifier, _ := newTestPages(t)

	req := httptest.NewRequest(http.MethodGet, "/success?transactionId=123456789012", nil)
	w := httptest.NewRecorder()
	pages.Success(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "123456789012")
	assert.Equal(t, []string{"123456789012"}, notifier.Calls)
}

func TestStaticHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/static/checkout.js", nil)
	w := httptest.NewRecorder()
	StaticHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/checkout")
}
