package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampDialects(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   string
	}{
		{"rfc3339 zulu", "2024-01-01T10:00:00Z"},
		{"rfc3339 offset", "2024-01-01T11:00:00+01:00"},
		{"space separated", "2024-01-01 10:00:00"},
		{"space separated with zone", "2024-01-01 11:00:00+01:00"},
		{"epoch seconds", "1704103200"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, err := ParseTimestamp(tc.in)
			require.NoError(t, err)
			assert.True(t, ts.Time.Equal(want), "got %s", ts.Time)
		})
	}
}

func TestParseTimestampFractionalEpoch(t *testing.T) {
	ts, err := ParseTimestamp("1704103200.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1704103200), ts.Unix())
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Nanosecond()))
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)
	_, err = ParseTimestamp("")
	require.Error(t, err)
}

func TestTimestampJSONReEmitsRFC3339(t *testing.T) {
	// Whatever dialect comes in, RFC 3339 goes out.
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-01 10:00:00"`), &ts))

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-01T10:00:00Z"`, string(out))

	// Bare epoch numbers are accepted too.
	require.NoError(t, json.Unmarshal([]byte(`1704103200`), &ts))
	out, err = json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-01T10:00:00Z"`, string(out))
}

func TestTimestampJSONNull(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestTimestampPreservesNanos(t *testing.T) {
	in := NewTimestamp(time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC))
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Timestamp
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
}
