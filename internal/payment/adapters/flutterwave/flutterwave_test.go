package flutterwave

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "flw-secret-hash"

const chargeCompletedPayload = `{
  "event": "charge.completed",
  "data": {
    "id": 285959875,
    "tx_ref": "Links-616626414629",
    "flw_ref": "PeterEkene/FLW270177170",
    "amount": 49.99,
    "currency": "USD",
    "status": "successful",
    "created_at": "2020-07-06T19:17:04.000Z",
    "payment_plan": 3807,
    "customer": {"id": 215604089, "email": "user@acme.test"}
  },
  "meta_data": {"orgId": "org-7", "planCode": "team"}
}`

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newAdapter(t *testing.T, secret string) paymentdomain.PaymentAdapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{Secret: secret})
	require.NoError(t, err)
	return adapter
}

func TestVerify(t *testing.T) {
	payload := []byte(chargeCompletedPayload)
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("Flutterwave-Signature", sign(testSecret, payload))
	assert.NoError(t, newAdapter(t, testSecret).Verify(ctx, payload, headers))

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	assert.ErrorIs(t, newAdapter(t, testSecret).Verify(ctx, tampered, headers), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, newAdapter(t, testSecret).Verify(ctx, payload, http.Header{}), paymentdomain.ErrInvalidSignature)
	assert.ErrorIs(t, newAdapter(t, "").Verify(ctx, payload, headers), paymentdomain.ErrMissingSecret)
}

func TestParseChargeCompleted(t *testing.T) {
	evt, err := newAdapter(t, testSecret).Parse(context.Background(), []byte(chargeCompletedPayload))
	require.NoError(t, err)

	assert.Equal(t, "flutterwave", evt.Provider)
	assert.Equal(t, "charge.completed:285959875", evt.EventID())
	assert.Equal(t, "Links-616626414629", evt.LedgerReference())
	assert.Equal(t, "org-7", evt.OrgID)
	assert.Equal(t, "team", evt.PlanCode)
	assert.Equal(t, "215604089", evt.ExternalCustomerID)
	assert.Equal(t, "3807", evt.ExternalSubscriptionID)
	assert.Equal(t, "successful", evt.ProviderStatus)
	assert.False(t, evt.AmountInMinorUnits)
	assert.True(t, evt.Amount.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, 2020, evt.OccurredAt.Year())
}

func TestParseDataMetaTakesPrecedence(t *testing.T) {
	payload := `{"event":"charge.completed","data":{"tx_ref":"tx-1","status":"failed","amount":10,"currency":"NGN","meta":{"orgId":"org-data"}},"meta_data":{"orgId":"org-top"}}`
	evt, err := newAdapter(t, testSecret).Parse(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "org-data", evt.OrgID)
	assert.Equal(t, "charge.completed:tx-1", evt.EventID())
}

func TestParseLegacyEventTypeField(t *testing.T) {
	payload := []byte(`{"event.type":"charge.completed","data":{"id":1,"status":"successful"}}`)
	adapter := newAdapter(t, testSecret)

	eventType, err := adapter.EventType(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, EventChargeCompleted, eventType)
}

func TestParseRejections(t *testing.T) {
	adapter := newAdapter(t, testSecret)

	_, err := adapter.Parse(context.Background(), []byte(`{"event":"transfer.completed","data":{}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrUnsupportedEventType)

	_, err = adapter.Parse(context.Background(), []byte(`{"event":"charge.completed","data":{"status":"successful"}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrMissingTransactionID)

	_, err = adapter.Parse(context.Background(), []byte(`[`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}
