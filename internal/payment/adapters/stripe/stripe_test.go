package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"charge.succeeded","data":{"object":{}}}`)
	timestamp := time.Now().Unix()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, timestamp))

	adapter := &Adapter{webhookSecret: secret}
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	reqHeader.Set("Stripe-Signature", "garbage")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for malformed header, got %v", err)
	}

	unconfigured := &Adapter{}
	if err := unconfigured.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestParsePaymentEvent(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC).Unix()

	tests := []struct {
		name        string
		event       any
		wantEventID string
		wantOrg     string
		wantStatus  string
		wantInvoice string
		wantSub     string
		amount      int64
	}{{
		name: "charge.succeeded",
		event: map[string]any{
			"id":      "evt_charge",
			"type":    "charge.succeeded",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":       "ch_1",
					"amount":   2500,
					"currency": "usd",
					"status":   "succeeded",
					"customer": "cus_1",
					"created":  created,
					"metadata": map[string]any{"orgId": "org-1", "planCode": "pro"},
				},
			},
		},
		wantEventID: "charge.succeeded:ch_1",
		wantOrg:     "org-1",
		wantStatus:  "succeeded",
		amount:      2500,
	}, {
		name: "invoice.payment_failed",
		event: map[string]any{
			"id":      "evt_inv",
			"type":    "invoice.payment_failed",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":             "in_1",
					"status":         "open",
					"paid":           false,
					"amount_due":     9900,
					"currency":       "usd",
					"customer":       "cus_1",
					"subscription":   "sub_1",
					"payment_intent": "pi_1",
					"period_start":   created,
					"period_end":     created + 30*24*3600,
					"subscription_details": map[string]any{
						"metadata": map[string]any{"orgId": "org-2"},
					},
				},
			},
		},
		wantEventID: "invoice.payment_failed:pi_1",
		wantOrg:     "org-2",
		wantStatus:  "open",
		wantInvoice: "in_1",
		wantSub:     "sub_1",
		amount:      9900,
	}, {
		name: "invoice.payment_succeeded",
		event: map[string]any{
			"id":   "evt_inv_ok",
			"type": "invoice.payment_succeeded",
			"data": map[string]any{
				"object": map[string]any{
					"id":           "in_2",
					"status":       "paid",
					"paid":         true,
					"amount_paid":  9900,
					"currency":     "usd",
					"customer":     "cus_2",
					"subscription": "sub_2",
					"charge":       "ch_2",
				},
			},
		},
		wantEventID: "invoice.payment_succeeded:ch_2",
		wantStatus:  "paid",
		wantInvoice: "in_2",
		wantSub:     "sub_2",
		amount:      9900,
	}}

	adapter := &Adapter{webhookSecret: "whsec_test"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			evt, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if evt.EventID() != tt.wantEventID {
				t.Fatalf("expected event id %q, got %q", tt.wantEventID, evt.EventID())
			}
			if evt.OrgID != tt.wantOrg {
				t.Fatalf("expected org %q, got %q", tt.wantOrg, evt.OrgID)
			}
			if evt.ProviderStatus != tt.wantStatus {
				t.Fatalf("expected status %q, got %q", tt.wantStatus, evt.ProviderStatus)
			}
			if evt.ExternalInvoiceID != tt.wantInvoice {
				t.Fatalf("expected invoice %q, got %q", tt.wantInvoice, evt.ExternalInvoiceID)
			}
			if evt.ExternalSubscriptionID != tt.wantSub {
				t.Fatalf("expected subscription %q, got %q", tt.wantSub, evt.ExternalSubscriptionID)
			}
			if evt.Amount.IntPart() != tt.amount || !evt.AmountInMinorUnits {
				t.Fatalf("expected minor amount %d, got %s", tt.amount, evt.Amount)
			}
			if evt.Currency != "USD" {
				t.Fatalf("expected USD, got %s", evt.Currency)
			}
			if evt.OccurredAt.IsZero() && tt.name != "invoice.payment_succeeded" {
				t.Fatalf("expected occurred at to be set")
			}
		})
	}
}

func TestParseUnsupportedEvent(t *testing.T) {
	adapter := &Adapter{webhookSecret: "whsec_test"}
	payload := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported event type, got %v", err)
	}
	eventType, err := adapter.EventType(context.Background(), payload)
	if err != nil || eventType != "customer.created" {
		t.Fatalf("expected event type customer.created, got %q (%v)", eventType, err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

func TestParseOccurredAtPrefersEventCreated(t *testing.T) {
	eventCreated := time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC)
	invoiceCreated := eventCreated.Add(-72 * time.Hour)

	payload := []byte(fmt.Sprintf(`{
  "id": "evt_retry",
  "type": "invoice.payment_failed",
  "created": %d,
  "data": {"object": {"id": "in_9", "status": "open", "amount_due": 9900, "currency": "usd", "charge": "ch_9", "created": %d}}
}`, eventCreated.Unix(), invoiceCreated.Unix()))

	adapter := &Adapter{webhookSecret: "whsec_test"}
	evt, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !evt.OccurredAt.Equal(eventCreated) {
		t.Fatalf("expected occurred at %s, got %s", eventCreated, evt.OccurredAt)
	}

	withoutEnvelope := []byte(fmt.Sprintf(`{
  "id": "evt_old",
  "type": "charge.succeeded",
  "data": {"object": {"id": "ch_10", "status": "succeeded", "amount": 100, "currency": "usd", "created": %d}}
}`, invoiceCreated.Unix()))
	evt, err = adapter.Parse(context.Background(), withoutEnvelope)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !evt.OccurredAt.Equal(invoiceCreated) {
		t.Fatalf("expected fallback to object created %s, got %s", invoiceCreated, evt.OccurredAt)
	}
}
