package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookConfigDefaultsWhenFileMissing(t *testing.T) {
	holder, err := newWebhookConfigHolder(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 5*time.Minute, cfg.AllowedSkew)
	assert.Equal(t, 10*time.Minute, cfg.ReplayTTL)
	assert.Equal(t, 72*time.Hour, cfg.GracePeriod)
	assert.Equal(t, "X-Event-Timestamp", cfg.TimestampHeader)
	assert.Equal(t, "X-Event-Id", cfg.EventIDHeader)
	assert.False(t, cfg.AcceptUnknownOrganizations)
	assert.True(t, cfg.IsAllowed("paystack", "charge.success"))
	assert.True(t, cfg.IsAllowed("Flutterwave", "charge.completed"))
	assert.False(t, cfg.IsAllowed("paystack", "transfer.success"))
	assert.False(t, cfg.IsAllowed("unknown", "charge.success"))
}

func TestWebhookConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`webhook:
  allowedSkew: 2m
  replayTtl: 15m
  gracePeriod: 24h
  acceptUnknownOrganizations: true
  allowedEvents:
    paystack:
      - charge.success
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "webhook.yml"), content, 0o600))

	holder, err := newWebhookConfigHolder(zap.NewNop(), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 2*time.Minute, cfg.AllowedSkew)
	assert.Equal(t, 15*time.Minute, cfg.ReplayTTL)
	assert.Equal(t, 24*time.Hour, cfg.GracePeriod)
	assert.True(t, cfg.AcceptUnknownOrganizations)
	assert.True(t, cfg.IsAllowed("paystack", "charge.success"))
	assert.False(t, cfg.IsAllowed("paystack", "invoice.update"))
}

func TestWebhookConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("webhook:\n  allowedSkew: -1m\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "webhook.yml"), content, 0o600))

	_, err := newWebhookConfigHolder(zap.NewNop(), dir)
	assert.Error(t, err)
}

func TestStaticHolderNormalizesProviders(t *testing.T) {
	cfg := DefaultWebhookConfig()
	cfg.AllowedEvents = map[string][]string{" PayStack ": {"charge.success"}}
	cfg.Notifications = NotificationConfig{}

	holder := NewStaticWebhookConfigHolder(cfg)
	got := holder.Get()
	assert.True(t, got.IsAllowed("paystack", "charge.success"))
	assert.Equal(t, 256, got.Notifications.QueueSize)
}
