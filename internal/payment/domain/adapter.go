package domain

import (
	"context"
	"net/http"
)

// PaymentAdapter verifies and translates one provider's webhook envelopes.
type PaymentAdapter interface {
	// Verify checks the provider signature over the exact request bytes.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// EventType reads the envelope event type without interpreting the data.
	EventType(ctx context.Context, payload []byte) (string, error)
	// Parse maps an allowed envelope into a PaymentEvent.
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterConfig struct {
	Secret string
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
