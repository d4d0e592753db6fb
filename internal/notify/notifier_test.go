package notify

import (
	"context"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

const callbackURL = "http://partner.example.com/payment/partner-callback"

func TestNotifier_Send(t *testing.T) {
	tests := []struct {
		name           string
		mockResponse   func()
		expectedError  bool
		expectedErrMsg string
	}{
		{
			name: "Success",
			mockResponse: func() {
				gock.New("http://partner.example.com").
					Post("/payment/partner-callback").
					MatchType("json").
					JSON(map[string]string{"transactionId": "tx-1"}).
					Reply(200)
			},
		},
		{
			name: "Error",
			mockResponse: func() {
				gock.New("http://partner.example.com").
					Post("/payment/partner-callback").
					Reply(500).
					JSON(map[string]string{"error": "internal server error"})
			},
			expectedError:  true,
			expectedErrMsg: "500",
		},
		{
			name: "Timeout",
			mockResponse: func() {
				gock.New("http://partner.example.com").
					Post("/payment/partner-callback").
					Reply(200).
					Delay(2 * time.Second)
			},
			expectedError:  true,
			expectedErrMsg: "Client.Timeout exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mockResponse()

			notifier := NewNotifier(callbackURL, 200*time.Millisecond, nil)
			err := notifier.Send(context.Background(), "tx-1")
			if tt.expectedError {
				assert.Error(t, err)
				if tt.expectedErrMsg != "" {
					assert.Contains(t, err.Error(), tt.expectedErrMsg)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, gock.IsDone())
		})
	}
}

func TestNotifier_NotifyFiresOnceAndSwallowsErrors(t *testing.T) {
	defer gock.Off()
	gock.New("http://partner.example.com").
		Post("/payment/partner-callback").
		Times(1).
		Reply(502)

	notifier := NewNotifier(callbackURL, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	notifier.Notify(ctx, "tx-1")
	cancel()
	notifier.Wait()

	assert.True(t, gock.IsDone(), "callback is sent even after the request context ends")
}

func TestNotifier_NotifySkipsEmptyTransaction(t *testing.T) {
	defer gock.Off()
	gock.New("http://partner.example.com").
		Post("/payment/partner-callback").
		Reply(200)

	notifier := NewNotifier(callbackURL, time.Second, nil)
	notifier.Notify(context.Background(), "")
	notifier.Wait()

	assert.False(t, gock.IsDone())
	assert.True(t, gock.IsPending())
}
