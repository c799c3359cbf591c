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
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
)

const (
	EventChargeSucceeded         = "charge.succeeded"
	EventChargeFailed            = "charge.failed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderStripe
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	return &Adapter{webhookSecret: strings.TrimSpace(cfg.Secret)}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return paymentdomain.ErrMissingSecret
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) EventType(ctx context.Context, payload []byte) (string, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", paymentdomain.ErrInvalidPayload
	}
	return strings.TrimSpace(event.Type), nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var (
		evt *paymentdomain.PaymentEvent
		err error
	)
	switch strings.TrimSpace(event.Type) {
	case EventChargeSucceeded, EventChargeFailed:
		evt, err = parseCharge(event)
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		evt, err = parseInvoice(event)
	default:
		return nil, paymentdomain.ErrUnsupportedEventType
	}
	if err != nil {
		return nil, err
	}
	if evt.TransactionID == "" {
		return nil, paymentdomain.ErrMissingTransactionID
	}

	evt.Provider = paymentdomain.ProviderStripe
	evt.EventType = strings.TrimSpace(event.Type)
	evt.AmountInMinorUnits = true
	evt.RawPayload = payload
	// The event envelope carries the generation time; object timestamps are
	// shared by every attempt against the same invoice.
	if event.Created > 0 {
		evt.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	return evt, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCharge struct {
	ID        string            `json:"id"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Customer  string            `json:"customer"`
	Invoice   string            `json:"invoice"`
	Created   int64             `json:"created"`
	Metadata  adapters.Metadata `json:"metadata"`
	ReceiptTo string            `json:"receipt_email"`
}

type stripeInvoice struct {
	ID                  string            `json:"id"`
	Status              string            `json:"status"`
	Paid                bool              `json:"paid"`
	AmountPaid          decimal.Decimal   `json:"amount_paid"`
	AmountDue           decimal.Decimal   `json:"amount_due"`
	Currency            string            `json:"currency"`
	Customer            string            `json:"customer"`
	CustomerEmail       string            `json:"customer_email"`
	Subscription        string            `json:"subscription"`
	Charge              string            `json:"charge"`
	PaymentIntent       string            `json:"payment_intent"`
	PeriodStart         int64             `json:"period_start"`
	PeriodEnd           int64             `json:"period_end"`
	Created             int64             `json:"created"`
	Metadata            adapters.Metadata `json:"metadata"`
	SubscriptionDetails struct {
		Metadata adapters.Metadata `json:"metadata"`
	} `json:"subscription_details"`
}

func parseCharge(event stripeEvent) (*paymentdomain.PaymentEvent, error) {
	var charge stripeCharge
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	evt := &paymentdomain.PaymentEvent{
		TransactionID:      strings.TrimSpace(charge.ID),
		Reference:          strings.TrimSpace(charge.ID),
		ExternalInvoiceID:  strings.TrimSpace(charge.Invoice),
		OrgID:              charge.Metadata.Get(paymentdomain.MetadataOrgID),
		PlanCode:           charge.Metadata.Get(paymentdomain.MetadataPlanCode),
		ExternalCustomerID: strings.TrimSpace(charge.Customer),
		CustomerEmail:      strings.TrimSpace(charge.ReceiptTo),
		ProviderStatus:     strings.TrimSpace(charge.Status),
		Amount:             charge.Amount,
		Currency:           strings.ToUpper(strings.TrimSpace(charge.Currency)),
	}
	if created := adapters.UnixTime(charge.Created); created != nil {
		evt.OccurredAt = *created
	}
	return evt, nil
}

func parseInvoice(event stripeEvent) (*paymentdomain.PaymentEvent, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	metadata := invoice.Metadata
	if metadata.Get(paymentdomain.MetadataOrgID) == "" {
		metadata = invoice.SubscriptionDetails.Metadata
	}

	amount := invoice.AmountPaid
	if amount.IsZero() {
		amount = invoice.AmountDue
	}

	// Invoice status is "paid" or "open"; "open" after a failed attempt means
	// the invoice is still collectible.
	status := strings.TrimSpace(invoice.Status)
	if invoice.Paid {
		status = "paid"
	}

	evt := &paymentdomain.PaymentEvent{
		TransactionID:          adapters.FirstNonEmpty(invoice.Charge, invoice.PaymentIntent, invoice.ID),
		Reference:              adapters.FirstNonEmpty(invoice.Charge, invoice.PaymentIntent),
		ExternalInvoiceID:      strings.TrimSpace(invoice.ID),
		OrgID:                  metadata.Get(paymentdomain.MetadataOrgID),
		PlanCode:               metadata.Get(paymentdomain.MetadataPlanCode),
		ExternalCustomerID:     strings.TrimSpace(invoice.Customer),
		ExternalSubscriptionID: strings.TrimSpace(invoice.Subscription),
		CustomerEmail:          strings.TrimSpace(invoice.CustomerEmail),
		ProviderStatus:         status,
		Amount:                 amount,
		Currency:               strings.ToUpper(strings.TrimSpace(invoice.Currency)),
		PeriodStart:            adapters.UnixTime(invoice.PeriodStart),
		PeriodEnd:              adapters.UnixTime(invoice.PeriodEnd),
	}
	if created := adapters.UnixTime(invoice.Created); created != nil {
		evt.OccurredAt = *created
	}
	return evt, nil
}

func parseStripeSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		keyValue := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}
