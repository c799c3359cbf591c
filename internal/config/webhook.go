package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WebhookConfig is the hot-reloadable policy for webhook ingestion.
type WebhookConfig struct {
	TimestampHeader string        `mapstructure:"timestampHeader"`
	EventIDHeader   string        `mapstructure:"eventIdHeader"`
	AllowedSkew     time.Duration `mapstructure:"allowedSkew"`
	ReplayTTL       time.Duration `mapstructure:"replayTtl"`
	GracePeriod     time.Duration `mapstructure:"gracePeriod"`
	// ProcessingTimeout bounds the reconciliation transaction of one delivery.
	ProcessingTimeout time.Duration `mapstructure:"processingTimeout"`
	// AcceptUnknownOrganizations acknowledges events for missing tenants with
	// 200 instead of 404. Test environments only.
	AcceptUnknownOrganizations bool                `mapstructure:"acceptUnknownOrganizations"`
	AllowedEvents              map[string][]string `mapstructure:"allowedEvents"`
	Notifications              NotificationConfig  `mapstructure:"notifications"`
}

type NotificationConfig struct {
	QueueSize int           `mapstructure:"queueSize"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		TimestampHeader:   "X-Event-Timestamp",
		EventIDHeader:     "X-Event-Id",
		AllowedSkew:       5 * time.Minute,
		ReplayTTL:         10 * time.Minute,
		GracePeriod:       72 * time.Hour,
		ProcessingTimeout: 10 * time.Second,
		AllowedEvents: map[string][]string{
			"paystack":    {"charge.success", "invoice.payment_failed", "invoice.update"},
			"flutterwave": {"charge.completed"},
			"stripe":      {"charge.succeeded", "charge.failed", "invoice.payment_succeeded", "invoice.payment_failed"},
		},
		Notifications: NotificationConfig{
			QueueSize: 256,
			Workers:   2,
			Timeout:   5 * time.Second,
		},
	}
}

// IsAllowed reports whether eventType is on the provider allow-list.
func (c WebhookConfig) IsAllowed(provider, eventType string) bool {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return false
	}
	for _, allowed := range c.AllowedEvents[normalizeProvider(provider)] {
		if strings.TrimSpace(allowed) == eventType {
			return true
		}
	}
	return false
}

type WebhookConfigHolder struct {
	current atomic.Value // holds WebhookConfig
}

// NewStaticWebhookConfigHolder wraps a fixed config without file watching.
func NewStaticWebhookConfigHolder(cfg WebhookConfig) *WebhookConfigHolder {
	holder := &WebhookConfigHolder{}
	holder.current.Store(normalizeWebhookConfig(cfg))
	return holder
}

// NewWebhookConfigHolder loads webhook.yml and watches it for changes.
func NewWebhookConfigHolder(log *zap.Logger) (*WebhookConfigHolder, error) {
	return newWebhookConfigHolder(log, "/etc/billingrelay", ".")
}

func newWebhookConfigHolder(log *zap.Logger, paths ...string) (*WebhookConfigHolder, error) {
	log = log.Named("config.webhook")
	v := viper.New()

	v.SetConfigName("webhook")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("BILLINGRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setWebhookDefaults(v, DefaultWebhookConfig())

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
		log.Info("webhook config file not found, using defaults")
	}

	cfg, err := decodeWebhookConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &WebhookConfigHolder{}
	holder.current.Store(cfg)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeWebhookConfig(v)
			if err != nil {
				log.Warn("webhook config reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("webhook config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *WebhookConfigHolder) Get() WebhookConfig {
	return h.current.Load().(WebhookConfig)
}

func setWebhookDefaults(v *viper.Viper, d WebhookConfig) {
	v.SetDefault("webhook.timestampHeader", d.TimestampHeader)
	v.SetDefault("webhook.eventIdHeader", d.EventIDHeader)
	v.SetDefault("webhook.allowedSkew", d.AllowedSkew)
	v.SetDefault("webhook.replayTtl", d.ReplayTTL)
	v.SetDefault("webhook.gracePeriod", d.GracePeriod)
	v.SetDefault("webhook.processingTimeout", d.ProcessingTimeout)
	v.SetDefault("webhook.acceptUnknownOrganizations", d.AcceptUnknownOrganizations)
	v.SetDefault("webhook.allowedEvents", d.AllowedEvents)
	v.SetDefault("webhook.notifications.queueSize", d.Notifications.QueueSize)
	v.SetDefault("webhook.notifications.workers", d.Notifications.Workers)
	v.SetDefault("webhook.notifications.timeout", d.Notifications.Timeout)
}

func decodeWebhookConfig(v *viper.Viper) (WebhookConfig, error) {
	var cfg WebhookConfig
	if err := v.UnmarshalKey("webhook", &cfg); err != nil {
		return WebhookConfig{}, err
	}
	cfg = normalizeWebhookConfig(cfg)
	if err := validateWebhookConfig(cfg); err != nil {
		return WebhookConfig{}, err
	}
	return cfg, nil
}

func normalizeWebhookConfig(cfg WebhookConfig) WebhookConfig {
	defaults := DefaultWebhookConfig()
	if strings.TrimSpace(cfg.TimestampHeader) == "" {
		cfg.TimestampHeader = defaults.TimestampHeader
	}
	if strings.TrimSpace(cfg.EventIDHeader) == "" {
		cfg.EventIDHeader = defaults.EventIDHeader
	}
	if cfg.AllowedSkew == 0 {
		cfg.AllowedSkew = defaults.AllowedSkew
	}
	if cfg.ReplayTTL == 0 {
		cfg.ReplayTTL = defaults.ReplayTTL
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = defaults.GracePeriod
	}
	if len(cfg.AllowedEvents) == 0 {
		cfg.AllowedEvents = defaults.AllowedEvents
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = defaults.ProcessingTimeout
	}
	if cfg.Notifications.QueueSize <= 0 {
		cfg.Notifications.QueueSize = defaults.Notifications.QueueSize
	}
	if cfg.Notifications.Workers <= 0 {
		cfg.Notifications.Workers = defaults.Notifications.Workers
	}
	if cfg.Notifications.Timeout <= 0 {
		cfg.Notifications.Timeout = defaults.Notifications.Timeout
	}

	allowed := make(map[string][]string, len(cfg.AllowedEvents))
	for provider, events := range cfg.AllowedEvents {
		allowed[normalizeProvider(provider)] = events
	}
	cfg.AllowedEvents = allowed
	return cfg
}

func validateWebhookConfig(cfg WebhookConfig) error {
	if cfg.AllowedSkew <= 0 {
		return errors.New("webhook.allowedSkew must be positive")
	}
	if cfg.ReplayTTL <= 0 {
		return errors.New("webhook.replayTtl must be positive")
	}
	if cfg.GracePeriod <= 0 {
		return errors.New("webhook.gracePeriod must be positive")
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
