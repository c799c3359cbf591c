package webhook

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/billingrelay/internal/config"
)

var (
	ErrMissingEventID   = errors.New("missing_event_id")
	ErrMissingTimestamp = errors.New("missing_event_timestamp")
	ErrInvalidTimestamp = errors.New("invalid_event_timestamp")
	ErrStaleTimestamp   = errors.New("stale_event_timestamp")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05",
}

// CheckReplay validates the delivery timestamp against the allowed skew and
// returns the header event id.
func CheckReplay(headers http.Header, cfg config.WebhookConfig, now time.Time) (string, error) {
	raw := strings.TrimSpace(headers.Get(cfg.TimestampHeader))
	if raw == "" {
		return "", ErrMissingTimestamp
	}
	sentAt, err := parseTimestamp(raw)
	if err != nil {
		return "", err
	}

	skew := now.Sub(sentAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > cfg.AllowedSkew {
		return "", ErrStaleTimestamp
	}

	eventID := strings.TrimSpace(headers.Get(cfg.EventIDHeader))
	if eventID == "" {
		return "", ErrMissingEventID
	}
	return eventID, nil
}

// parseTimestamp accepts unix seconds, unix milliseconds, or a date string.
func parseTimestamp(raw string) (time.Time, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// IsReplayRejection reports whether err came from the timestamp check.
func IsReplayRejection(err error) bool {
	return errors.Is(err, ErrMissingTimestamp) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrStaleTimestamp)
}
