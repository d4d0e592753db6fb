package checkout

import (
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"sync"
	"time"
)

type State string

const (
	StateIdle            State = "idle"
	StateSessionLoading  State = "session_loading"
	StateReady           State = "ready"
	StateAccountChecking State = "account_checking"
	StateAccountVerified State = "account_verified"
	StateAccountRejected State = "account_rejected"
	StateSubmitting      State = "submitting"
	StateSubmitted       State = "submitted"
	StateSubmitFailed    State = "submit_failed"
	StateBlocked         State = "blocked"
)

type CheckStatus string

const (
	CheckUnknown CheckStatus = "unknown"
	CheckSuccess CheckStatus = "success"
	CheckError   CheckStatus = "error"
)

type AccountCheck struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Checkout is one open checkout form. All fields behind mu change only
// through Service.
type Checkout struct {
	ID      string
	Owner   string
	Service catalog.Service
	Fields  []Field

	mu            sync.Mutex
	state         State
	token         string
	values        map[string]string
	errors        ValidationErrors
	sessionID     string
	currency      string
	check         AccountCheck
	amountLocked  bool
	busy          bool
	closed        bool
	revision      uint64
	transactionID string
	expiresAt     time.Time
}

func newCheckout(id, token string, service catalog.Service, ttl time.Duration) *Checkout {
	c := &Checkout{
		ID:        id,
		Owner:     token,
		Service:   service,
		Fields:    BuildFields(service),
		state:     StateIdle,
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	c.reset()
	return c
}

// reset clears the form to empty values keyed by the declared fields.
func (c *Checkout) reset() {
	c.values = make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		c.values[f.Name] = ""
	}
	c.errors = ValidationErrors{}
	c.check = AccountCheck{Status: CheckUnknown}
	c.amountLocked = false
	c.transactionID = ""
}

// begin marks the checkout busy. The caller must hold mu.
func (c *Checkout) begin() error {
	switch {
	case c.closed:
		return ErrCheckoutClosed
	case c.busy:
		return ErrCheckoutBusy
	}
	c.busy = true
	return nil
}

func (c *Checkout) additionalParams() map[string]string {
	params := make(map[string]string)
	for _, f := range c.Fields {
		if f.Name == FieldAccount || f.Name == FieldAmount {
			continue
		}
		params[f.Name] = c.values[f.Name]
	}
	return params
}

func (c *Checkout) expired(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.After(c.expiresAt)
}

func (c *Checkout) close() {
	c.mu.Lock()
	c.closed = true
	c.revision++
	c.mu.Unlock()
}

type FieldView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
	Disabled    bool   `json:"disabled"`
	Error       string `json:"error,omitempty"`
}

type ServiceView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IconURL     string `json:"iconUrl"`
	CategoryID  int    `json:"categoryId"`
	Description string `json:"description"`
}

// View is the client-facing snapshot of a checkout.
type View struct {
	CheckoutID      string           `json:"checkoutId"`
	State           State            `json:"state"`
	Service         ServiceView      `json:"service"`
	Fields          []FieldView      `json:"fields"`
	Currency        string           `json:"currency,omitempty"`
	AccountCheck    AccountCheck     `json:"accountCheck"`
	Errors          ValidationErrors `json:"errors"`
	AmountLocked    bool             `json:"amountLocked"`
	TransactionID   string           `json:"transactionId,omitempty"`
	RedirectURL     string           `json:"redirectUrl,omitempty"`
	RedirectAfterMs int64            `json:"redirectAfterMs,omitempty"`
}

// view must be called with mu held.
func (c *Checkout) view(redirectDelay time.Duration) View {
	submitted := c.state == StateSubmitted
	blocked := c.state == StateBlocked

	errs := c.errors.clone()
	fields := make([]FieldView, 0, len(c.Fields))
	for _, f := range c.Fields {
		fields = append(fields, FieldView{
			Name:        f.Name,
			Description: f.Description,
			Value:       c.values[f.Name],
			Disabled:    submitted || blocked || (f.Name == FieldAmount && c.amountLocked),
			Error:       errs[f.Name],
		})
	}

	v := View{
		CheckoutID: c.ID,
		State:      c.state,
		Service: ServiceView{
			ID:          c.Service.ID,
			Name:        c.Service.Name,
			IconURL:     c.Service.IconURL,
			CategoryID:  c.Service.CategoryID,
			Description: c.Service.Description,
		},
		Fields:        fields,
		Currency:      c.currency,
		AccountCheck:  c.check,
		Errors:        errs,
		AmountLocked:  c.amountLocked,
		TransactionID: c.transactionID,
	}
	if submitted {
		v.RedirectURL = SuccessURL(c.transactionID)
		v.RedirectAfterMs = redirectDelay.Milliseconds()
	}
	return v
}
