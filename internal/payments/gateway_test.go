package payments_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-service/internal/payments"
	"commerce-service/internal/payments/paymentstest"
)

const secret = "whsec_gateway_test"

func TestVerifyEventCompletedSession(t *testing.T) {
	payload := paymentstest.CompletedSessionPayload("evt_1", "cs_1", 2500, map[string]string{"user": "4"})

	event, err := payments.VerifyEvent(payload, paymentstest.SignatureHeader(payload, secret, time.Now()), secret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, payments.EventCheckoutSessionCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_1", event.Session.ID)
	assert.Equal(t, int64(2500), event.Session.AmountTotal)
	assert.Equal(t, "buyer@example.com", event.Session.CustomerEmail)
	assert.Equal(t, "4", event.Session.Metadata["user"])
}

func TestVerifyEventOtherType(t *testing.T) {
	payload := paymentstest.EventPayload("evt_2", "charge.refunded")

	event, err := payments.VerifyEvent(payload, paymentstest.SignatureHeader(payload, secret, time.Now()), secret)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Nil(t, event.Session)
}

func TestVerifyEventRejects(t *testing.T) {
	payload := paymentstest.CompletedSessionPayload("evt_1", "cs_1", 2500, nil)

	tests := []struct {
		name    string
		payload []byte
		header  string
		want    error
	}{
		{name: "unsigned", payload: payload, header: "", want: payments.ErrInvalidSignature},
		{name: "wrong secret", payload: payload, header: paymentstest.SignatureHeader(payload, "whsec_other", time.Now()), want: payments.ErrInvalidSignature},
		{name: "stale", payload: payload, header: paymentstest.SignatureHeader(payload, secret, time.Now().Add(-time.Hour)), want: payments.ErrInvalidSignature},
		{name: "malformed header", payload: payload, header: "garbage", want: payments.ErrInvalidSignature},
		{name: "not json", payload: []byte("{"), header: paymentstest.SignatureHeader([]byte("{"), secret, time.Now()), want: payments.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payments.VerifyEvent(tt.payload, tt.header, secret)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
