package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"clinic-api/internal/apperr"
)

// accepted in order; the zone-less forms are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("invalid datetime " + quote(s) + ", expected ISO 8601")
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// timestamp decodes any of timeLayouts from a JSON string.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Validation("datetime must be a string")
	}
	parsed, err := parseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t *timestamp) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func timeQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	// an unescaped "+01:00" offset arrives as " 01:00"
	if strings.Contains(raw, "T") {
		raw = strings.ReplaceAll(raw, " ", "+")
	}
	t, err := parseTime(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
