package webhook

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayHeaders(ts, id string) http.Header {
	h := http.Header{}
	if ts != "" {
		h.Set("X-Event-Timestamp", ts)
	}
	if id != "" {
		h.Set("X-Event-Id", id)
	}
	return h
}

func TestCheckReplay(t *testing.T) {
	cfg := config.DefaultWebhookConfig()
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		headers http.Header
		wantErr error
	}{
		{name: "unix seconds", headers: replayHeaders(strconv.FormatInt(now.Add(-time.Minute).Unix(), 10), "evt-1")},
		{name: "unix millis", headers: replayHeaders(strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10), "evt-1")},
		{name: "rfc3339", headers: replayHeaders(now.Add(-2*time.Minute).Format(time.RFC3339), "evt-1")},
		{name: "slight future", headers: replayHeaders(now.Add(time.Minute).Format(time.RFC3339), "evt-1")},
		{name: "stale", headers: replayHeaders(strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10), "evt-1"), wantErr: ErrStaleTimestamp},
		{name: "far future", headers: replayHeaders(now.Add(time.Hour).Format(time.RFC3339), "evt-1"), wantErr: ErrStaleTimestamp},
		{name: "missing timestamp", headers: replayHeaders("", "evt-1"), wantErr: ErrMissingTimestamp},
		{name: "garbage timestamp", headers: replayHeaders("yesterday", "evt-1"), wantErr: ErrInvalidTimestamp},
		{name: "missing id", headers: replayHeaders(strconv.FormatInt(now.Unix(), 10), ""), wantErr: ErrMissingEventID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := CheckReplay(tc.headers, cfg, now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "evt-1", id)
		})
	}
}

func TestIsReplayRejection(t *testing.T) {
	assert.True(t, IsReplayRejection(ErrStaleTimestamp))
	assert.True(t, IsReplayRejection(ErrMissingTimestamp))
	assert.False(t, IsReplayRejection(ErrMissingEventID))
}
