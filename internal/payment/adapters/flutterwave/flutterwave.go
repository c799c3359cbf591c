package flutterwave

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/billingrelay/internal/payment/domain"
)

const signatureHeader = "Flutterwave-Signature"

const EventChargeCompleted = "charge.completed"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderFlutterwave
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	return &Adapter{secretHash: strings.TrimSpace(cfg.Secret)}, nil
}

type Adapter struct {
	secretHash string
}

// Verify compares the base64 HMAC-SHA256 of the raw body against the
// Flutterwave-Signature header.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.secretHash == "" {
		return paymentdomain.ErrMissingSecret
	}
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.secretHash))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
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
	return env.eventType(), nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if env.eventType() != EventChargeCompleted {
		return nil, paymentdomain.ErrUnsupportedEventType
	}

	var data chargeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	meta := data.Meta
	if len(meta) == 0 {
		meta = env.MetaData
	}
	if len(meta) == 0 {
		meta = env.Meta
	}

	evt := &paymentdomain.PaymentEvent{
		Provider:               paymentdomain.ProviderFlutterwave,
		EventType:              EventChargeCompleted,
		TransactionID:          adapters.FirstNonEmpty(data.ID.String(), data.TxRef, data.FlwRef),
		Reference:              adapters.FirstNonEmpty(data.TxRef, data.FlwRef, data.ID.String()),
		OrgID:                  meta.Get(paymentdomain.MetadataOrgID),
		PlanCode:               meta.Get(paymentdomain.MetadataPlanCode),
		ExternalCustomerID:     data.Customer.ID.String(),
		ExternalSubscriptionID: data.PaymentPlan.String(),
		CustomerEmail:          strings.TrimSpace(data.Customer.Email),
		ProviderStatus:         strings.TrimSpace(data.Status),
		Amount:                 data.Amount,
		Currency:               strings.ToUpper(strings.TrimSpace(data.Currency)),
		RawPayload:             payload,
	}
	if evt.TransactionID == "" {
		return nil, paymentdomain.ErrMissingTransactionID
	}
	if occurred := adapters.ParseTime(data.CreatedAt); occurred != nil {
		evt.OccurredAt = *occurred
	}
	return evt, nil
}

// envelope covers both the v3 "event" field and the legacy "event.type" one.
type envelope struct {
	Event     string            `json:"event"`
	EventType string            `json:"event.type"`
	Data      json.RawMessage   `json:"data"`
	Meta      adapters.Metadata `json:"meta"`
	MetaData  adapters.Metadata `json:"meta_data"`
}

func (e envelope) eventType() string {
	return adapters.FirstNonEmpty(e.Event, e.EventType)
}

type customer struct {
	ID    adapters.ID `json:"id"`
	Email string      `json:"email"`
}

type chargeData struct {
	ID          adapters.ID       `json:"id"`
	TxRef       string            `json:"tx_ref"`
	FlwRef      string            `json:"flw_ref"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"created_at"`
	PaymentPlan adapters.ID       `json:"payment_plan"`
	Customer    customer          `json:"customer"`
	Meta        adapters.Metadata `json:"meta"`
}
