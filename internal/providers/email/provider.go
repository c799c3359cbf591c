package email

import "context"

// Provider delivers HTML mail. SendTemplate renders one of the embedded
// templates before sending.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error
}

// NoOpProvider is used when SMTP is not configured. Alerts still reach the
// log sink.
type NoOpProvider struct{}

func (NoOpProvider) Send(context.Context, []string, string, string) error {
	return nil
}

func (NoOpProvider) SendTemplate(context.Context, []string, string, interface{}) error {
	return nil
}
