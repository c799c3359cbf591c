package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/billingrelay/internal/notification/domain"
	orgdomain "github.com/smallbiznis/billingrelay/internal/organization/domain"
	"github.com/smallbiznis/billingrelay/internal/providers/email"
	"go.uber.org/zap"
)

// LogSink writes every alert to the structured log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notification.log")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, alert domain.PaymentAlert) error {
	fields := []zap.Field{
		zap.String("alert_id", alert.ID),
		zap.String("org_id", alert.OrgID),
		zap.String("title", alert.Title),
		zap.String("priority", string(alert.Priority)),
		zap.Any("data", alert.Data),
	}
	if alert.Priority == domain.PriorityHigh {
		s.log.Warn(alert.Message, fields...)
		return nil
	}
	s.log.Info(alert.Message, fields...)
	return nil
}

// EmailSink mails the alert to the organization's admins.
type EmailSink struct {
	orgRepo  orgdomain.Repository
	provider email.Provider
}

func NewEmailSink(orgRepo orgdomain.Repository, provider email.Provider) *EmailSink {
	return &EmailSink{orgRepo: orgRepo, provider: provider}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, alert domain.PaymentAlert) error {
	recipients, err := s.orgRepo.ListMemberEmails(ctx, alert.OrgID, orgdomain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	data := map[string]interface{}{
		"subject": alert.Title,
		"title":   alert.Title,
		"message": alert.Message,
	}
	for k, v := range alert.Data {
		if _, exists := data[k]; !exists {
			data[k] = v
		}
	}
	return s.provider.SendTemplate(ctx, recipients, "payment_alert", data)
}
