package checkout

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/sebuszqo/PaymentWidget/internal/billing"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"github.com/sebuszqo/PaymentWidget/internal/events"
	"github.com/sebuszqo/PaymentWidget/internal/journal"
	"github.com/sebuszqo/PaymentWidget/internal/logging"
	"github.com/sebuszqo/PaymentWidget/internal/metrics"
	"github.com/shopspring/decimal"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRedirectDelay = 2 * time.Second
	recordTimeout        = 5 * time.Second
	transactionIDLength  = 12

	msgSessionUnavailable  = "Failed to initialize the form: payment session is unavailable. Contact support."
	msgCurrencyUnavailable = "Failed to load the service currency. Check the service settings or contact support."
	msgMissingPrecondition = "Token, session or currency is missing"
	msgAccountRequired     = "Account is required"
	msgCheckFailed         = "Account check failed. Try again later or contact support."
	msgMalformedResponse   = "Invalid server response format"
	msgAmountMissing       = "Amount was not returned by the service"
	msgCheckNotPassed      = "Account check has not passed"
	msgPaymentFailed       = "Failed to create payment"
)

// Gateway is the billing system as seen by a checkout.
type Gateway interface {
	GetServiceByID(ctx context.Context, token string, serviceID int) (*catalog.Service, error)
	GetSession(ctx context.Context, token string) (string, error)
	GetServiceCurrency(ctx context.Context, token string, serviceID int) (string, error)
	CheckAccount(ctx context.Context, req billing.AccountCheckRequest) (*billing.AccountCheckResponse, error)
	SubmitPayment(ctx context.Context, endpoint billing.PaymentEndpoint, req billing.PaymentRequest) (string, error)
}

type Options struct {
	RedirectDelay    time.Duration
	TTL              time.Duration
	Journal          journal.Repository
	Publisher        events.Publisher
	NewID            func() string
	NewTransactionID func() string
	Logger           *slog.Logger
}

type Service struct {
	gateway          Gateway
	registry         RegistryInterface
	journal          journal.Repository
	publisher        events.Publisher
	redirectDelay    time.Duration
	ttl              time.Duration
	newID            func() string
	newTransactionID func() string
	logger           *slog.Logger
}

func NewService(gateway Gateway, registry RegistryInterface, opts Options) *Service {
	if gateway == nil || registry == nil {
		panic("Gateway and registry must not be nil")
	}

	s := &Service{
		gateway:          gateway,
		registry:         registry,
		journal:          opts.Journal,
		publisher:        opts.Publisher,
		redirectDelay:    opts.RedirectDelay,
		ttl:              opts.TTL,
		newID:            opts.NewID,
		newTransactionID: opts.NewTransactionID,
		logger:           opts.Logger,
	}
	if s.journal == nil {
		s.journal = journal.NewMemoryRepository()
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.redirectDelay <= 0 {
		s.redirectDelay = defaultRedirectDelay
	}
	if s.ttl <= 0 {
		s.ttl = defaultCheckoutTTL
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	if s.newTransactionID == nil {
		s.newTransactionID = GenerateTransactionID
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GenerateTransactionID returns 12 random decimal digits. The value only
// identifies one account-check probe.
func GenerateTransactionID() string {
	var sb strings.Builder
	sb.Grow(transactionIDLength)
	for i := 0; i < transactionIDLength; i++ {
		sb.WriteByte(byte('0' + rand.IntN(10)))
	}
	return sb.String()
}

func SuccessURL(transactionID string) string {
	return "/success?" + url.Values{"transactionId": {transactionID}}.Encode()
}

// Open loads the service, acquires a payment session and resolves the
// currency. Session or currency failures leave the checkout Blocked; only a
// failure to load the service itself is returned as an error.
func (s *Service) Open(ctx context.Context, token string, serviceID int) (View, error) {
	service, err := s.gateway.GetServiceByID(ctx, token, serviceID)
	if err != nil {
		metrics.CheckoutStep("open", "service_error")
		s.logger.ErrorContext(ctx, "Error loading service", "serviceId", serviceID, "error", err)
		return View{}, fmt.Errorf("loading service %d: %w", serviceID, err)
	}

	c := newCheckout(s.newID(), token, *service, s.ttl)
	ctx = logging.AppendCtx(ctx, slog.String("checkoutId", c.ID))

	c.state = StateSessionLoading
	s.acquire(ctx, c)
	s.registry.Put(c)

	s.logger.InfoContext(ctx, "Checkout opened", "serviceId", service.ID, "state", c.state)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(s.redirectDelay), nil
}

// acquire runs before the checkout is registered, so nothing else can
// reach c yet.
func (s *Service) acquire(ctx context.Context, c *Checkout) {
	sessionID, err := s.gateway.GetSession(ctx, c.token)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error acquiring payment session", "error", err)
		metrics.CheckoutStep("open", "session_error")
		c.state = StateBlocked
		c.errors.Add(SubmitErrorKey, msgSessionUnavailable)
		return
	}
	c.sessionID = sessionID

	currency, err := s.gateway.GetServiceCurrency(ctx, c.token, c.Service.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error resolving service currency", "error", err)
		metrics.CheckoutStep("open", "currency_error")
		c.state = StateBlocked
		c.errors.Add(SubmitErrorKey, currencyMessage(err))
		return
	}
	c.currency = currency
	c.state = StateReady
	metrics.CheckoutStep("open", "success")
}

func (s *Service) Get(_ context.Context, id, owner string) (View, error) {
	c, err := s.registry.Get(id, owner)
	if err != nil {
		return View{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view(s.redirectDelay), nil
}

func (s *Service) Close(ctx context.Context, id, owner string) error {
	if err := s.registry.Remove(id, owner); err != nil {
		return err
	}
	s.logger.InfoContext(logging.AppendCtx(ctx, slog.String("checkoutId", id)), "Checkout closed")
	return nil
}

// EditField stores a field value. Changing the account invalidates the
// previous account check together with any amount it derived.
func (s *Service) EditField(_ context.Context, id, owner, name, value string) (View, error) {
	c, err := s.registry.Get(id, owner)
	if err != nil {
		return View{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return View{}, ErrCheckoutClosed
	case c.state == StateSubmitted:
		return View{}, ErrSubmitted
	case c.state == StateSubmitting:
		return View{}, ErrCheckoutBusy
	}

	if _, ok := findField(c.Fields, name); !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if name == FieldAmount && c.amountLocked {
		return View{}, ErrFieldLocked
	}

	c.values[name] = value

	if name == FieldAccount {
		c.revision++
		c.check = AccountCheck{Status: CheckUnknown}
		delete(c.errors, FieldAccount)
		if c.amountLocked {
			c.amountLocked = false
			c.values[FieldAmount] = ""
		}
		if c.state != StateBlocked {
			c.state = StateReady
		}
	}

	return c.view(s.redirectDelay), nil
}

// CheckAccount verifies the current account value with the billing system.
// Local precondition failures are reported in the view without a network
// call. A response that arrives after the account changed is dropped.
func (s *Service) CheckAccount(ctx context.Context, id, owner string) (View, error) {
	c, err := s.registry.Get(id, owner)
	if err != nil {
		return View{}, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("checkoutId", c.ID))

	c.mu.Lock()
	if c.state == StateSubmitted {
		c.mu.Unlock()
		return View{}, ErrSubmitted
	}
	if err := c.begin(); err != nil {
		c.mu.Unlock()
		return View{}, err
	}
	if c.state == StateBlocked {
		c.busy = false
		defer c.mu.Unlock()
		return c.view(s.redirectDelay), nil
	}

	if strings.TrimSpace(c.values[FieldAccount]) == "" {
		c.busy = false
		c.errors = ValidationErrors{FieldAccount: msgAccountRequired}
		c.check = AccountCheck{Status: CheckUnknown}
		defer c.mu.Unlock()
		metrics.CheckoutStep("account_check", "invalid")
		return c.view(s.redirectDelay), nil
	}
	if c.token == "" || c.sessionID == "" || c.currency == "" {
		c.busy = false
		c.errors = ValidationErrors{SubmitErrorKey: msgMissingPrecondition}
		c.check = AccountCheck{Status: CheckUnknown}
		defer c.mu.Unlock()
		metrics.CheckoutStep("account_check", "precondition")
		return c.view(s.redirectDelay), nil
	}

	revision := c.revision
	c.state = StateAccountChecking
	c.check = AccountCheck{Status: CheckUnknown}
	delete(c.errors, FieldAccount)
	delete(c.errors, SubmitErrorKey)

	req := billing.AccountCheckRequest{
		Token:            c.token,
		SessionID:        c.sessionID,
		TransactionID:    s.newTransactionID(),
		Service:          strconv.Itoa(c.Service.ID),
		Amount:           "0",
		Currency:         c.currency,
		Account:          c.values[FieldAccount],
		AdditionalParams: c.additionalParams(),
	}
	c.mu.Unlock()

	resp, err := s.gateway.CheckAccount(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if c.closed || c.revision != revision {
		s.logger.InfoContext(ctx, "Discarding superseded account check", "transactionId", req.TransactionID)
		metrics.CheckoutStep("account_check", "superseded")
		return c.view(s.redirectDelay), nil
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Account check failed", "error", err)
		metrics.CheckoutStep("account_check", "error")
		s.reject(c, checkErrorMessage(err))
		return c.view(s.redirectDelay), nil
	}

	if !resp.Verified() {
		message := resp.Error
		if message == "" {
			message = fmt.Sprintf("Service unavailable or account is invalid (ResponseStatus: %s)", resp.Status)
		}
		metrics.CheckoutStep("account_check", "rejected")
		s.reject(c, message)
		return c.view(s.redirectDelay), nil
	}

	if c.Service.IsVoucher() {
		amount, ok := orderAmount(resp)
		if !ok {
			metrics.CheckoutStep("account_check", "amount_missing")
			s.reject(c, msgAmountMissing)
			return c.view(s.redirectDelay), nil
		}
		c.values[FieldAmount] = amount
		c.amountLocked = true
		c.check = AccountCheck{
			Status:  CheckSuccess,
			Message: fmt.Sprintf("Voucher price: %s %s", amount, c.currency),
		}
	} else {
		c.values[FieldAmount] = ""
		c.amountLocked = false
		c.check = AccountCheck{Status: CheckSuccess}
	}

	c.state = StateAccountVerified
	metrics.CheckoutStep("account_check", "success")
	s.logger.InfoContext(ctx, "Account verified", "serviceId", c.Service.ID)
	return c.view(s.redirectDelay), nil
}

func (s *Service) reject(c *Checkout, message string) {
	c.state = StateAccountRejected
	c.check = AccountCheck{Status: CheckError, Message: message}
	if c.amountLocked {
		c.amountLocked = false
		c.values[FieldAmount] = ""
	}
}

// Submit validates the form and sends the payment. Voucher services go to
// process-payment, every other category to create-payment.
func (s *Service) Submit(ctx context.Context, id, owner string) (View, error) {
	c, err := s.registry.Get(id, owner)
	if err != nil {
		return View{}, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("checkoutId", c.ID))

	c.mu.Lock()
	if c.state == StateSubmitted {
		c.mu.Unlock()
		return View{}, ErrSubmitted
	}
	if err := c.begin(); err != nil {
		c.mu.Unlock()
		return View{}, err
	}
	if c.state == StateBlocked {
		c.busy = false
		defer c.mu.Unlock()
		return c.view(s.redirectDelay), nil
	}

	if c.check.Status != CheckSuccess {
		c.busy = false
		message := c.check.Message
		if message == "" {
			message = msgCheckNotPassed
		}
		c.errors = ValidationErrors{SubmitErrorKey: message}
		defer c.mu.Unlock()
		metrics.CheckoutStep("submit", "check_not_passed")
		return c.view(s.redirectDelay), nil
	}

	if errs := Validate(c.Fields, c.values); len(errs) > 0 {
		c.busy = false
		c.errors = errs
		defer c.mu.Unlock()
		metrics.CheckoutStep("submit", "invalid")
		return c.view(s.redirectDelay), nil
	}

	if c.token == "" || c.sessionID == "" || c.currency == "" {
		c.busy = false
		c.errors = ValidationErrors{SubmitErrorKey: msgMissingPrecondition}
		defer c.mu.Unlock()
		metrics.CheckoutStep("submit", "precondition")
		return c.view(s.redirectDelay), nil
	}

	c.errors = ValidationErrors{}
	c.state = StateSubmitting

	endpoint := billing.CreatePayment
	if c.Service.IsVoucher() {
		endpoint = billing.ProcessPayment
	}
	req := billing.PaymentRequest{
		Token:            c.token,
		SessionID:        c.sessionID,
		Service:          strconv.Itoa(c.Service.ID),
		Amount:           c.values[FieldAmount],
		Currency:         c.currency,
		Account:          c.values[FieldAccount],
		AdditionalParams: c.additionalParams(),
	}
	c.mu.Unlock()

	transactionID, err := s.gateway.SubmitPayment(ctx, endpoint, req)

	c.mu.Lock()
	c.busy = false
	entry := &journal.Entry{
		CheckoutID: c.ID,
		ServiceID:  c.Service.ID,
		CategoryID: c.Service.CategoryID,
		Account:    req.Account,
		Amount:     journal.ParseAmount(req.Amount),
		Currency:   req.Currency,
	}
	if err != nil {
		message := paymentErrorMessage(err)
		c.state = StateSubmitFailed
		c.errors = ValidationErrors{SubmitErrorKey: message}
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		s.logger.ErrorContext(ctx, "Payment submission failed", "endpoint", endpoint, "error", err)
		metrics.CheckoutStep("submit", "error")
	} else {
		c.state = StateSubmitted
		c.transactionID = transactionID
		entry.Status = journal.StatusSubmitted
		entry.TransactionID = transactionID
		s.logger.InfoContext(ctx, "Payment submitted", "endpoint", endpoint, "transactionId", transactionID)
		metrics.CheckoutStep("submit", "success")
	}
	view := c.view(s.redirectDelay)
	c.mu.Unlock()

	s.record(ctx, entry)
	return view, nil
}

// record writes the journal entry and, for accepted payments, publishes an
// event. Neither outcome reaches the payer.
func (s *Service) record(ctx context.Context, entry *journal.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.journal.Save(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Error writing payment journal", "error", err)
	}

	if entry.Status != journal.StatusSubmitted {
		return
	}
	err := s.publisher.Publish(ctx, events.PaymentEvent{
		ID:            uuid.New(),
		CheckoutID:    entry.CheckoutID,
		TransactionID: entry.TransactionID,
		ServiceID:     entry.ServiceID,
		CategoryID:    entry.CategoryID,
		Amount:        entry.Amount.StringFixed(2),
		Currency:      entry.Currency,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error publishing payment event", "error", err)
	}
}

// orderAmount reads OrderAmount from the check extras with two decimals.
func orderAmount(resp *billing.AccountCheckResponse) (string, bool) {
	raw, ok := resp.Extra("OrderAmount")
	if !ok {
		return "", false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return amount.StringFixed(2), true
}

func checkErrorMessage(err error) string {
	var apiErr *billing.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Account check failed: %d", apiErr.Status)
	case errors.Is(err, billing.ErrMalformedResponse):
		return msgMalformedResponse
	default:
		return msgCheckFailed
	}
}

func paymentErrorMessage(err error) string {
	var apiErr *billing.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgPaymentFailed
}

func currencyMessage(err error) string {
	var apiErr *billing.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return fmt.Sprintf("Failed to load the service currency: %s. Check the service settings or contact support.", apiErr.Message)
	case errors.Is(err, billing.ErrNoCurrency):
		return fmt.Sprintf("Failed to load the service currency: %s. Check the service settings or contact support.", err)
	default:
		return msgCurrencyUnavailable
	}
}
