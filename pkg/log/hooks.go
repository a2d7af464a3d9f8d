package log

import "strings"

const redacted = "[REDACTED]"

// RedactionHook masks field values whose key names a secret, either exactly
// or by containing one of the configured markers (case-insensitive).
type RedactionHook struct {
	markers []string
}

// NewRedactionHook creates a redaction hook. With no markers it falls back
// to the default set.
func NewRedactionHook(markers ...string) *RedactionHook {
	if len(markers) == 0 {
		markers = []string{"password", "secret", "token", "passphrase"}
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &RedactionHook{markers: lowered}
}

// Levels returns every level.
func (h *RedactionHook) Levels() []Level {
	return []Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel}
}

// Fire masks matching fields in place.
func (h *RedactionHook) Fire(entry *Entry) error {
	for key := range entry.Fields {
		lk := strings.ToLower(key)
		for _, m := range h.markers {
			if strings.Contains(lk, m) {
				entry.Fields[key] = redacted
				break
			}
		}
	}
	return nil
}
