package sandbox

import (
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"strings"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// newUtil builds the lodash-style namespace handed to scripts as _.
func newUtil(vm *goja.Runtime) *goja.Object {
	u := vm.NewObject()

	_ = u.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := walkPath(vm, call.Argument(0), call.Argument(1))
		if !ok || goja.IsUndefined(v) {
			return call.Argument(2)
		}
		return v
	})
	_ = u.Set("has", func(call goja.FunctionCall) goja.Value {
		_, ok := walkPath(vm, call.Argument(0), call.Argument(1))
		return vm.ToValue(ok)
	})
	_ = u.Set("isEqual", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(deepEqual(call.Argument(0).Export(), call.Argument(1).Export()))
	})
	_ = u.Set("cloneDeep", func(call goja.FunctionCall) goja.Value {
		v := call.Argument(0)
		if _, isObj := v.(*goja.Object); !isObj {
			return v
		}
		return vm.ToValue(deepCopy(v.Export()))
	})
	_ = u.Set("isEmpty", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(isEmpty(call.Argument(0)))
	})
	_ = u.Set("random", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(random(call.Arguments))
	})
	return u
}

// walkPath resolves a dotted/bracketed path or an array of keys. ok is false
// when a segment is missing.
func walkPath(vm *goja.Runtime, root, path goja.Value) (goja.Value, bool) {
	var keys []string
	if list, isList := path.Export().([]any); isList {
		for _, k := range list {
			keys = append(keys, fmt.Sprint(k))
		}
	} else if !goja.IsUndefined(path) && !goja.IsNull(path) {
		keys = splitPath(path.String())
	}

	cur := root
	for _, key := range keys {
		if cur == nil || goja.IsUndefined(cur) || goja.IsNull(cur) {
			return nil, false
		}
		obj, isObj := cur.(*goja.Object)
		if !isObj {
			obj = cur.ToObject(vm)
		}
		next := obj.Get(key)
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// splitPath turns a.b[0]["c"] into [a b 0 c].
func splitPath(path string) []string {
	fields := strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
	keys := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f != "" {
			keys = append(keys, f)
		}
	}
	return keys
}

func isEmpty(v goja.Value) bool {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return true
	}
	switch val := v.Export().(type) {
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	if obj, ok := v.(*goja.Object); ok {
		return len(obj.Keys()) == 0
	}
	// Numbers and booleans are empty, as with lodash.
	return true
}

// random mirrors _.random([lower=0], [upper=1], [floating]).
func random(args []goja.Value) any {
	var nums []float64
	floating := false
	for _, a := range args {
		if b, isBool := a.Export().(bool); isBool {
			floating = b
			continue
		}
		nums = append(nums, a.ToFloat())
	}

	lower, upper := 0.0, 1.0
	switch len(nums) {
	case 0:
	case 1:
		upper = nums[0]
	default:
		lower, upper = nums[0], nums[1]
	}
	if lower > upper {
		lower, upper = upper, lower
	}
	if floating || lower != math.Trunc(lower) || upper != math.Trunc(upper) {
		return lower + rand.Float64()*(upper-lower)
	}
	lo, hi := int64(lower), int64(upper)
	return lo + rand.Int64N(hi-lo+1)
}

// normalize folds exported numbers to float64 so 1 and 1.0 compare equal.
func normalize(v any) any {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	}
	return v
}

// uuidModule backs require('uuid').
func uuidModule(vm *goja.Runtime, module *goja.Object) {
	exports := vm.NewObject()
	_ = exports.Set("v4", func() string { return uuid.NewString() })
	_ = exports.Set("v1", func() (string, error) {
		id, err := uuid.NewUUID()
		return id.String(), err
	})
	_ = exports.Set("v7", func() (string, error) {
		id, err := uuid.NewV7()
		return id.String(), err
	})
	_ = exports.Set("validate", func(s string) bool {
		return uuid.Validate(s) == nil
	})
	_ = exports.Set("NIL", uuid.Nil.String())
	_ = module.Set("exports", exports)
}

// lodashModule backs require('lodash') with the same namespace as _.
func lodashModule(vm *goja.Runtime, module *goja.Object) {
	_ = module.Set("exports", newUtil(vm))
}
