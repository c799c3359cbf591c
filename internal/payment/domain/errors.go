package domain

import "errors"

var (
	ErrProviderNotFound     = errors.New("provider_not_found")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrMissingSecret        = errors.New("missing_webhook_secret")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrUnsupportedEventType = errors.New("unsupported_event_type")
	ErrMissingTransactionID = errors.New("missing_transaction_id")
)
