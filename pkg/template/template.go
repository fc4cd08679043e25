// Package template resolves dot-path references against trigger payloads and
// renders {{path.to.field}} placeholders.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Resolve descends into payload following the dot-separated path. The second return
// value is false when any segment is absent or the current value is not a container.
func Resolve(payload map[string]any, path string) (any, bool) {
	var current any = payload

	for _, key := range strings.Split(path, ".") {
		next, ok := child(current, key)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func child(current any, key string) (any, bool) {
	switch node := current.(type) {
	case map[string]any:
		value, ok := node[key]

		return value, ok
	case map[string]string:
		value, ok := node[key]

		return value, ok
	case []any:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(node) {
			return nil, false
		}

		return node[index], true
	default:
		return nil, false
	}
}

// Interpolate replaces every {{path}} placeholder with the resolved payload value.
// Placeholders whose path does not resolve are left verbatim; an explicit null
// renders as "null".
func Interpolate(input string, payload map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)

		value, ok := Resolve(payload, groups[1])
		if !ok {
			return match
		}

		if value == nil {
			return "null"
		}

		return Text(value)
	})
}

// Text casts a payload value to its textual form: nil is empty, booleans are "1" or
// empty, numbers use their shortest decimal form and composites are JSON encoded.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}

		return ""
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case []byte:
		return string(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}
