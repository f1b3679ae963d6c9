package activity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// IdentifierOf returns the canonical identifier for a property value.
// Nil, the empty string, booleans and composite values are not identifiers. Integral
// floats lose their fraction so 10 and 10.0 address the same entity.
func IdentifierOf(v any) (string, bool) {
	switch val := v.(type) {
	case nil, bool, map[string]any, []any:
		return "", false
	case string:
		return val, val != ""
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return val.String(), val.String() != ""
	case float64:
		return formatFloat(val), true
	case float32:
		return formatFloat(float64(val)), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case []byte:
		return string(val), len(val) > 0
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}

// ParseRecordID converts a marker value (int, float, numeric string) to a record ID.
func ParseRecordID(v any) (int64, bool) {
	id, ok := IdentifierOf(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
