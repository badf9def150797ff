package sdk

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// stringify renders a script value the way template substitution prints it.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e21 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		out, err := sonic.MarshalString(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return out
	default:
		return fmt.Sprint(val)
	}
}

func stringField(m map[string]any, key string) string {
	return stringify(m[key])
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func stringSliceField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinAny(items []any, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = stringify(item)
	}
	return strings.Join(parts, sep)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func ptrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func marshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}
