package checkout

import (
	"context"
	"github.com/h2non/gock"
	"github.com/sebuszqo/PaymentWidget/internal/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

const (
	catalogHost = "http://catalog.example.com"
	paymentHost = "http://payment.example.com"
)

func newWireService() *Service {
	client := billing.NewClient(catalogHost, paymentHost, time.Second, nil)
	return NewService(client, NewRegistry(), Options{RedirectDelay: 2 * time.Second})
}

func mockOpen(serviceID, categoryID int) {
	gock.New(catalogHost).
		Get("/Api/GetServiceById").
		MatchHeader("Authorization", "Bearer "+testToken).
		Reply(200).
		JSON(map[string]interface{}{"id": serviceID, "name": "Service", "categoryId": categoryID})
	gock.New(paymentHost).
		Get("/api/payment/get-session").
		MatchParam("token", testToken).
		Reply(200).
		JSON(map[string]string{"sessionId": "abc"})
	gock.New(paymentHost).
		Get("/api/payment/GetServiceById").
		MatchHeader("Authorization", "Bearer "+testToken).
		Reply(200).
		JSON(map[string]interface{}{"id": serviceID, "currencyISO": "USD"})
}

func TestWire_CreatePaymentScenario(t *testing.T) {
	defer gock.Off()
	mockOpen(42, 1)
	gock.New(paymentHost).
		Post("/api/payment/account-check").
		Reply(200).
		JSON(map[string]interface{}{"ResponseLog": map[string]interface{}{"ResponseStatus": 10}})
	gock.New(paymentHost).
		Post("/api/payment/create-payment").
		BodyString(`"currency":"USD"`).
		Reply(200).
		JSON(map[string]string{"transactionId": "123456789012"})

	s := newWireService()
	ctx := context.Background()

	view, err := s.Open(ctx, testToken, 42)
	require.NoError(t, err)
	require.Equal(t, StateReady, view.State)
	id := view.CheckoutID

	_, err = s.EditField(ctx, id, testToken, FieldAccount, "user1")
	require.NoError(t, err)
	view, err = s.CheckAccount(ctx, id, testToken)
	require.NoError(t, err)
	assert.Equal(t, CheckSuccess, view.AccountCheck.Status)
	assert.False(t, view.AmountLocked)

	_, err = s.EditField(ctx, id, testToken, FieldAmount, "25.00")
	require.NoError(t, err)
	view, err = s.Submit(ctx, id, testToken)
	require.NoError(t, err)

	assert.Equal(t, StateSubmitted, view.State)
	assert.Equal(t, "123456789012", view.TransactionID)
	assert.Equal(t, "/success?transactionId=123456789012", view.RedirectURL)
	assert.Equal(t, int64(2000), view.RedirectAfterMs)
	assert.True(t, gock.IsDone())
}

func TestWire_BlockedScenario(t *testing.T) {
	defer gock.Off()
	mockOpen(42, 1)
	gock.New(paymentHost).
		Post("/api/payment/account-check").
		Reply(200).
		JSON(map[string]interface{}{"ResponseLog": map[string]interface{}{"ResponseStatus": 20, "Error": "blocked"}})

	s := newWireService()
	ctx := context.Background()

	view, err := s.Open(ctx, testToken, 42)
	require.NoError(t, err)
	id := view.CheckoutID

	_, err = s.EditField(ctx, id, testToken, FieldAccount, "user1")
	require.NoError(t, err)
	view, err = s.CheckAccount(ctx, id, testToken)
	require.NoError(t, err)
	assert.Equal(t, CheckError, view.AccountCheck.Status)
	assert.Equal(t, "blocked", view.AccountCheck.Message)

	_, err = s.EditField(ctx, id, testToken, FieldAmount, "25.00")
	require.NoError(t, err)
	view, err = s.Submit(ctx, id, testToken)
	require.NoError(t, err)
	assert.Equal(t, "blocked", view.Errors[SubmitErrorKey])
	assert.True(t, gock.IsDone(), "no payment endpoint was called")
}

func TestWire_VoucherScenario(t *testing.T) {
	defer gock.Off()
	mockOpen(13, 7)
	gock.New(paymentHost).
		Post("/api/payment/account-check").
		Reply(200).
		JSON(map[string]interface{}{
			"ResponseLog": map[string]interface{}{
				"ResponseStatus": "10",
				"TransactionContent": map[string]interface{}{
					"Extras": []map[string]string{{"FieldName": "OrderAmount", "FieldValue": "19.5"}},
				},
			},
		})

	s := newWireService()
	ctx := context.Background()

	view, err := s.Open(ctx, testToken, 13)
	require.NoError(t, err)
	id := view.CheckoutID

	_, err = s.EditField(ctx, id, testToken, FieldAccount, "user@example.com")
	require.NoError(t, err)
	view, err = s.CheckAccount(ctx, id, testToken)
	require.NoError(t, err)

	amount := fieldView(t, view, FieldAmount)
	assert.Equal(t, "19.50", amount.Value)
	assert.True(t, amount.Disabled)
	assert.Equal(t, "Voucher price: 19.50 USD", view.AccountCheck.Message)
}
