package template

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// Float casts a payload value to float64. Strings use their leading numeric
// prefix ("12abc" is 12); anything unparseable is 0.
func Float(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case bool:
		if v {
			return 1
		}

		return 0
	case json.Number:
		return parseFloat(v.String())
	case string:
		return parseFloat(v)
	default:
		return 0
	}
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}

	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0
	}

	f, err = strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}

	return f
}
