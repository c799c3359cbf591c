package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
)

const signatureHeader = "X-Paystack-Signature"

const (
	EventChargeSuccess        = "charge.success"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventInvoiceUpdate        = "invoice.update"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderPaystack
}

// NewAdapter never fails; a missing secret yields an adapter that rejects
// every signature.
func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	return &Adapter{secret: strings.TrimSpace(cfg.Secret)}, nil
}

type Adapter struct {
	secret string
}

// Verify compares the hex HMAC-SHA512 of the raw body against the
// X-Paystack-Signature header.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.secret == "" {
		return paymentdomain.ErrMissingSecret
	}
	signature := strings.ToLower(strings.TrimSpace(headers.Get(signatureHeader)))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(a.secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) EventType(ctx context.Context, payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", paymentdomain.ErrInvalidPayload
	}
	return strings.TrimSpace(env.Event), nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var (
		evt *paymentdomain.PaymentEvent
		err error
	)
	switch strings.TrimSpace(env.Event) {
	case EventChargeSuccess:
		evt, err = parseCharge(env)
	case EventInvoicePaymentFailed, EventInvoiceUpdate:
		evt, err = parseInvoice(env)
	default:
		return nil, paymentdomain.ErrUnsupportedEventType
	}
	if err != nil {
		return nil, err
	}
	if evt.TransactionID == "" {
		return nil, paymentdomain.ErrMissingTransactionID
	}
	evt.Provider = paymentdomain.ProviderPaystack
	evt.EventType = strings.TrimSpace(env.Event)
	evt.AmountInMinorUnits = true
	evt.RawPayload = payload
	return evt, nil
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type customer struct {
	ID           adapters.ID `json:"id"`
	CustomerCode string      `json:"customer_code"`
	Email        string      `json:"email"`
}

type plan struct {
	PlanCode string `json:"plan_code"`
}

// planRef tolerates "plan": {} and "plan": "" which Paystack sends for
// one-off charges.
type planRef struct {
	plan
}

func (p *planRef) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	return json.Unmarshal(b, &p.plan)
}

type subscription struct {
	SubscriptionCode string `json:"subscription_code"`
	Status           string `json:"status"`
	NextPaymentDate  string `json:"next_payment_date"`
}

type chargeData struct {
	ID               adapters.ID       `json:"id"`
	Status           string            `json:"status"`
	Reference        string            `json:"reference"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	PaidAt           string            `json:"paid_at"`
	CreatedAt        string            `json:"created_at"`
	Metadata         adapters.Metadata `json:"metadata"`
	Customer         customer          `json:"customer"`
	Plan             planRef           `json:"plan"`
	SubscriptionCode string            `json:"subscription_code"`
	InvoiceCode      string            `json:"invoice_code"`
}

type invoiceTransaction struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type invoiceData struct {
	ID           adapters.ID        `json:"id"`
	InvoiceCode  string             `json:"invoice_code"`
	Status       string             `json:"status"`
	Paid         bool               `json:"paid"`
	Amount       decimal.Decimal    `json:"amount"`
	Currency     string             `json:"currency"`
	PeriodStart  string             `json:"period_start"`
	PeriodEnd    string             `json:"period_end"`
	PaidAt       string             `json:"paid_at"`
	CreatedAt    string             `json:"created_at"`
	Metadata     adapters.Metadata  `json:"metadata"`
	Customer     customer           `json:"customer"`
	Plan         planRef            `json:"plan"`
	Subscription subscription       `json:"subscription"`
	Transaction  invoiceTransaction `json:"transaction"`
}

func parseCharge(env envelope) (*paymentdomain.PaymentEvent, error) {
	var data chargeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	reference := adapters.FirstNonEmpty(data.Reference, data.ID.String())
	evt := &paymentdomain.PaymentEvent{
		TransactionID:          adapters.FirstNonEmpty(data.Reference, data.ID.String(), data.InvoiceCode),
		Reference:              reference,
		ExternalInvoiceID:      strings.TrimSpace(data.InvoiceCode),
		OrgID:                  data.Metadata.Get(paymentdomain.MetadataOrgID),
		PlanCode:               adapters.FirstNonEmpty(data.Metadata.Get(paymentdomain.MetadataPlanCode), data.Plan.PlanCode),
		ExternalCustomerID:     strings.TrimSpace(data.Customer.CustomerCode),
		ExternalSubscriptionID: strings.TrimSpace(data.SubscriptionCode),
		CustomerEmail:          strings.TrimSpace(data.Customer.Email),
		ProviderStatus:         strings.TrimSpace(data.Status),
		Amount:                 data.Amount,
		Currency:               strings.ToUpper(strings.TrimSpace(data.Currency)),
	}
	if occurred := adapters.ParseTime(adapters.FirstNonEmpty(data.PaidAt, data.CreatedAt)); occurred != nil {
		evt.OccurredAt = *occurred
	}
	return evt, nil
}

func parseInvoice(env envelope) (*paymentdomain.PaymentEvent, error) {
	var data invoiceData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	status := adapters.FirstNonEmpty(data.Transaction.Status, data.Status)
	if strings.TrimSpace(env.Event) == EventInvoicePaymentFailed && status == "" {
		status = "failed"
	}

	evt := &paymentdomain.PaymentEvent{
		TransactionID:          adapters.FirstNonEmpty(data.Transaction.Reference, data.InvoiceCode, data.ID.String()),
		Reference:              strings.TrimSpace(data.Transaction.Reference),
		ExternalInvoiceID:      strings.TrimSpace(data.InvoiceCode),
		OrgID:                  data.Metadata.Get(paymentdomain.MetadataOrgID),
		PlanCode:               adapters.FirstNonEmpty(data.Metadata.Get(paymentdomain.MetadataPlanCode), data.Plan.PlanCode),
		ExternalCustomerID:     strings.TrimSpace(data.Customer.CustomerCode),
		ExternalSubscriptionID: strings.TrimSpace(data.Subscription.SubscriptionCode),
		CustomerEmail:          strings.TrimSpace(data.Customer.Email),
		ProviderStatus:         status,
		Amount:                 data.Amount,
		Currency:               strings.ToUpper(strings.TrimSpace(data.Currency)),
		PeriodStart:            adapters.ParseTime(data.PeriodStart),
		PeriodEnd:              adapters.ParseTime(adapters.FirstNonEmpty(data.PeriodEnd, data.Subscription.NextPaymentDate)),
	}
	if occurred := adapters.ParseTime(adapters.FirstNonEmpty(data.PaidAt, data.CreatedAt)); occurred != nil {
		evt.OccurredAt = *occurred
	}
	return evt, nil
}
