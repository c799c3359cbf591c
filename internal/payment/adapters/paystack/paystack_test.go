package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_paystack"

const chargeSuccessPayload = `{
  "event": "charge.success",
  "data": {
    "id": 302961,
    "status": "success",
    "reference": "qTPrJoy9Bx",
    "amount": 1000000,
    "currency": "NGN",
    "paid_at": "2024-05-10T09:00:00.000Z",
    "metadata": {"orgId": "org-1", "planCode": "pro"},
    "customer": {"id": 68324, "customer_code": "CUS_qo38as2hpsgk2r0", "email": "ops@acme.test"},
    "plan": {}
  }
}`

const invoiceFailedPayload = `{
  "event": "invoice.payment_failed",
  "data": {
    "id": 4192,
    "invoice_code": "INV_9lkzddwvzhgkp3n",
    "amount": 500000,
    "currency": "NGN",
    "status": "failed",
    "paid": false,
    "period_start": "2024-05-01T00:00:00.000Z",
    "period_end": "2024-06-01T00:00:00.000Z",
    "customer": {"customer_code": "CUS_qo38as2hpsgk2r0"},
    "plan": {"plan_code": "PLN_pro"},
    "subscription": {"subscription_code": "SUB_vsyqdmlzble3uii", "status": "attention"},
    "transaction": {}
  }
}`

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newAdapter(t *testing.T, secret string) paymentdomain.PaymentAdapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{Secret: secret})
	require.NoError(t, err)
	return adapter
}

func TestVerify(t *testing.T) {
	payload := []byte(chargeSuccessPayload)

	tests := []struct {
		name    string
		secret  string
		header  string
		body    []byte
		wantErr error
	}{
		{name: "valid", secret: testSecret, header: sign(testSecret, payload), body: payload},
		{name: "uppercase hex", secret: testSecret, header: hexUpper(sign(testSecret, payload)), body: payload},
		{name: "wrong secret", secret: testSecret, header: sign("other", payload), body: payload, wantErr: paymentdomain.ErrInvalidSignature},
		{name: "tampered body", secret: testSecret, header: sign(testSecret, payload), body: append([]byte(" "), payload...), wantErr: paymentdomain.ErrInvalidSignature},
		{name: "missing header", secret: testSecret, body: payload, wantErr: paymentdomain.ErrInvalidSignature},
		{name: "missing secret fails closed", secret: "", header: sign("", payload), body: payload, wantErr: paymentdomain.ErrMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set("X-Paystack-Signature", tt.header)
			}
			err := newAdapter(t, tt.secret).Verify(context.Background(), tt.body, headers)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseChargeSuccess(t *testing.T) {
	adapter := newAdapter(t, testSecret)

	eventType, err := adapter.EventType(context.Background(), []byte(chargeSuccessPayload))
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, eventType)

	evt, err := adapter.Parse(context.Background(), []byte(chargeSuccessPayload))
	require.NoError(t, err)

	assert.Equal(t, "paystack", evt.Provider)
	assert.Equal(t, "charge.success:qTPrJoy9Bx", evt.EventID())
	assert.Equal(t, "qTPrJoy9Bx", evt.LedgerReference())
	assert.Equal(t, "org-1", evt.OrgID)
	assert.Equal(t, "pro", evt.PlanCode)
	assert.Equal(t, "CUS_qo38as2hpsgk2r0", evt.ExternalCustomerID)
	assert.Equal(t, "success", evt.ProviderStatus)
	assert.True(t, evt.Amount.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, evt.AmountInMinorUnits)
	assert.Equal(t, "NGN", evt.Currency)
	assert.Equal(t, 2024, evt.OccurredAt.Year())
}

func TestParseInvoiceFailedWithoutMetadata(t *testing.T) {
	evt, err := newAdapter(t, testSecret).Parse(context.Background(), []byte(invoiceFailedPayload))
	require.NoError(t, err)

	assert.Empty(t, evt.OrgID)
	assert.Equal(t, "PLN_pro", evt.PlanCode)
	assert.Equal(t, "invoice.payment_failed:INV_9lkzddwvzhgkp3n", evt.EventID())
	assert.Equal(t, "INV_9lkzddwvzhgkp3n", evt.ExternalInvoiceID)
	assert.Equal(t, "INV_9lkzddwvzhgkp3n", evt.LedgerReference())
	assert.Equal(t, "SUB_vsyqdmlzble3uii", evt.ExternalSubscriptionID)
	assert.Equal(t, "failed", evt.ProviderStatus)
	require.NotNil(t, evt.PeriodStart)
	require.NotNil(t, evt.PeriodEnd)
	assert.Equal(t, 6, int(evt.PeriodEnd.Month()))
}

func TestParseMetadataAsEncodedString(t *testing.T) {
	payload := `{"event":"charge.success","data":{"reference":"ref-1","status":"success","amount":"2500","currency":"ngn","metadata":"{\"orgId\":\"org-9\"}","plan":""}}`
	evt, err := newAdapter(t, testSecret).Parse(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "org-9", evt.OrgID)
	assert.True(t, evt.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "NGN", evt.Currency)
	assert.True(t, evt.OccurredAt.IsZero())
}

func TestParseRejections(t *testing.T) {
	adapter := newAdapter(t, testSecret)

	_, err := adapter.Parse(context.Background(), []byte(`{"event":`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Parse(context.Background(), []byte(`{"event":"transfer.success","data":{}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrUnsupportedEventType)

	_, err = adapter.Parse(context.Background(), []byte(`{"event":"charge.success","data":{"status":"success"}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrMissingTransactionID)

	_, err = adapter.EventType(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func hexUpper(value string) string {
	out := []byte(value)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 32
		}
	}
	return string(out)
}
