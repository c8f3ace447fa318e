package version

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is an RFC3339 instant that tolerates a missing colon in the
// timezone offset on input ("+0000" as well as "+00:00"). It always
// serializes in canonical RFC3339 form.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps an instant.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, normalizeOffset(s))
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// normalizeOffset inserts the colon into a 4-digit timezone offset, turning
// "+0000" into "+00:00". Inputs already carrying a colon or a "Z" suffix are
// returned unchanged.
func normalizeOffset(s string) string {
	if len(s) < 6 {
		return s
	}
	tail := s[len(s)-5:]
	if (tail[0] == '+' || tail[0] == '-') && tail[2] != ':' {
		return s[:len(s)-2] + ":" + s[len(s)-2:]
	}
	return s
}
