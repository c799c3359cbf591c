package adapters

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Metadata is provider metadata. Some providers send it as an object, others
// as a JSON-encoded string; anything else decodes to nil.
type Metadata map[string]any

func (m *Metadata) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return err
		}
		raw = bytes.TrimSpace([]byte(encoded))
	}
	if len(raw) == 0 || raw[0] != '{' {
		*m = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		// Malformed string metadata is treated as absent.
		*m = nil
		return nil
	}
	*m = out
	return nil
}

// Get returns the first non-empty value among keys.
func (m Metadata) Get(keys ...string) string {
	for _, key := range keys {
		if value := stringify(m[key]); value != "" {
			return value
		}
	}
	return ""
}

// ID is an identifier that providers send either as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		*id = ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	case raw[0] == '{', raw[0] == '[':
		*id = ""
	default:
		*id = ID(string(raw))
	}
	return nil
}

func (id ID) String() string {
	return string(id)
}

// FirstNonEmpty returns the first trimmed non-empty value.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses provider date strings, returning nil when absent or invalid.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

// UnixTime converts epoch seconds, returning nil for zero.
func UnixTime(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}

func stringify(value any) string {
	switch cast := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(cast)
	default:
		return ""
	}
}
