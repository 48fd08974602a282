package events

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a time.Time that tolerates the timestamp dialects found in
// producer payloads. Producers written against different provider SDKs emit
// RFC 3339, space-separated date-times, or decimal epoch seconds; consumers
// must accept all three. Serialization always re-emits RFC 3339 with an
// explicit zone so that a value round-trips byte-stable after the first hop.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t as a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Now returns the current UTC instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// acceptedLayouts are tried in order for string-typed timestamps. The
// space-separated forms cover producers that format with SQL-style layouts
// and omit the "T" separator.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a single timestamp string in any accepted dialect.
// Zone-less layouts are interpreted as UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	// Decimal epoch seconds, possibly fractional ("1704103200.25").
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochSeconds(sec), nil
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func fromEpochSeconds(sec float64) Timestamp {
	whole, frac := math.Modf(sec)
	return Timestamp{Time: time.Unix(int64(whole), int64(frac*1e9)).UTC()}
}

// MarshalJSON emits RFC 3339 with nanosecond precision and explicit zone.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(ts.Format(time.RFC3339Nano))), nil
}

// UnmarshalJSON accepts an RFC 3339 string, a space-separated date-time, a
// decimal epoch number, or null.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		ts.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		parsed, err := ParseTimestamp(unquoted)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	}
	sec, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("timestamp: expected string or epoch number, got %s", raw)
	}
	*ts = fromEpochSeconds(sec)
	return nil
}

// Equal reports whether both timestamps name the same instant.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.Time.Equal(other.Time)
}
