// Package payload turns loosely typed multipart/JSON fields into typed, aligned arrays.
//
// Array-shaped fields arrive as a JSON array, a JSON scalar, a comma-separated
// string, a bare scalar, or repeated form fields. NormalizeStringArray is the single
// implementation every field goes through; field-specific behaviour is supplied as a
// PostProcess.
package payload

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PostProcess rewrites one trimmed element after normalization.
type PostProcess func(string) string

// NormalizeStringArray flattens raw into a sequence of trimmed strings.
//
// raw may be nil, a string, []string (repeated form fields), []any (a decoded JSON
// array) or any scalar. post, when non-nil, is applied to every element.
func NormalizeStringArray(raw any, post PostProcess) []string {
	var items []string

	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		items = parseString(v)
	case []string:
		items = append(items, v...)
	case []any:
		items = flatten(v)
	case json.RawMessage:
		items = parseString(string(v))
	default:
		items = []string{stringify(v)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if post != nil {
			item = post(item)
		}
		out = append(out, item)
	}
	return out
}

// FormValue adapts multipart values for NormalizeStringArray: a single value is
// parsed as a string, repeated values are taken as an already-split sequence.
func FormValue(values []string) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}

func parseString(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	if decoded, ok := decodeJSON(s); ok {
		switch d := decoded.(type) {
		case []any:
			return flatten(d)
		case string:
			return []string{d}
		default:
			// numbers, booleans and null keep their literal text
			return []string{s}
		}
	}

	if strings.Contains(s, ",") {
		return strings.Split(s, ",")
	}
	return []string{s}
}

// decodeJSON reports whether s is exactly one JSON value. Numbers are kept as
// json.Number so ids and decimals survive unchanged.
func decodeJSON(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

// flatten expands one level of nesting and stringifies every element.
func flatten(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if nested, ok := v.([]any); ok {
			for _, n := range nested {
				out = append(out, stringify(n))
			}
			continue
		}
		out = append(out, stringify(v))
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
