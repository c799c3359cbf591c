package adapters

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataAcceptsObjectAndEncodedString(t *testing.T) {
	cases := map[string]string{
		"object":  `{"metadata":{"orgId":"org-1","planCode":"pro"}}`,
		"encoded": `{"metadata":"{\"orgId\":\"org-1\",\"planCode\":\"pro\"}"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var out struct {
				Metadata Metadata `json:"metadata"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, "org-1", out.Metadata.Get("orgId"))
			assert.Equal(t, "pro", out.Metadata.Get("planCode"))
		})
	}
}

func TestMetadataIgnoresUnusableValues(t *testing.T) {
	for _, body := range []string{`{"metadata":""}`, `{"metadata":null}`, `{"metadata":"not json"}`, `{"metadata":[1,2]}`} {
		var out struct {
			Metadata Metadata `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &out), body)
		assert.Empty(t, out.Metadata.Get("orgId"), body)
	}
}

func TestMetadataNumbersKeepLiteral(t *testing.T) {
	var out struct {
		Metadata Metadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"metadata":{"orgId":12345678901234567}}`), &out))
	assert.Equal(t, "12345678901234567", out.Metadata.Get("org_id", "orgId"))
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":285959875,"b":" tx-1 ","c":null}`), &out))
	assert.Equal(t, "285959875", out.A.String())
	assert.Equal(t, "tx-1", out.B.String())
	assert.Empty(t, out.C.String())
}

func TestParseTime(t *testing.T) {
	got := ParseTime("2020-07-06T19:17:04.000Z")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2020, 7, 6, 19, 17, 4, 0, time.UTC), *got)

	got = ParseTime("2024-02-01 10:00:00")
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Hour())

	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("yesterday"))
	assert.Nil(t, UnixTime(0))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Empty(t, FirstNonEmpty())
}
