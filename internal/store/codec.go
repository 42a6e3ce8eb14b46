package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Encode marshals an entity to pretty-printed JSON. Indented output is
// deliberate: case files get read by humans during an investigation.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode unmarshals data into a typed entity.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// DecodeRaw unmarshals data into a generic map and restores time values in
// date-named fields, so open payloads (evidence content, case metadata)
// round-trip native timestamps the same way typed fields do.
func DecodeRaw(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	restored, _ := RestoreTimes(m).(map[string]any)
	return restored, nil
}

var dateFieldSuffixes = [...]string{"_at", "_date", "_time", "_timestamp"}

// dateFieldNames are fields that carry timestamps without a conventional suffix.
var dateFieldNames = map[string]bool{
	"timestamp":   true,
	"lastCleanup": true,
}

func isDateField(name string) bool {
	if dateFieldNames[name] {
		return true
	}
	for _, suf := range &dateFieldSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RestoreTimes walks a decoded JSON value and converts date-field strings back
// into time.Time. A field qualifies by name (suffix _at/_date/_time/_timestamp
// or the allow-list) and by parsing as ISO 8601; anything that fails to parse
// stays a plain string. Arrays under a date field convert element-wise; nested
// maps and arrays are processed recursively regardless of their key.
func RestoreTimes(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		if arr, ok := v.([]any); ok {
			for i, elem := range arr {
				arr[i] = RestoreTimes(elem)
			}
			return arr
		}
		return v
	}
	for key, val := range m {
		switch tv := val.(type) {
		case string:
			if isDateField(key) {
				if t, ok := parseTimestamp(tv); ok {
					m[key] = t
				}
			}
		case []any:
			if isDateField(key) {
				for i, elem := range tv {
					if s, ok := elem.(string); ok {
						if t, ok := parseTimestamp(s); ok {
							tv[i] = t
							continue
						}
					}
					tv[i] = RestoreTimes(elem)
				}
			} else {
				for i, elem := range tv {
					tv[i] = RestoreTimes(elem)
				}
			}
		case map[string]any:
			m[key] = RestoreTimes(tv)
		}
	}
	return m
}
