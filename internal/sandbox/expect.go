package sandbox

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// chainWords are no-op links that return the assertion itself.
var chainWords = []string{"to", "be", "been", "is", "that", "which", "and", "has", "have", "with", "at", "of", "same", "deep", "does", "still"}

// assertion is the state behind one expect(...) chain.
type assertion struct {
	vm     *goja.Runtime
	actual goja.Value
	negate bool
}

// expect implements insomnia.expect(value).
func expect(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		a := &assertion{vm: vm, actual: call.Argument(0)}
		return a.object()
	}
}

func (a *assertion) object() *goja.Object {
	obj := a.vm.NewObject()
	for _, word := range chainWords {
		_ = obj.Set(word, obj)
	}

	a.getter(obj, "not", func() goja.Value {
		return (&assertion{vm: a.vm, actual: a.actual, negate: !a.negate}).object()
	})

	// Property assertions.
	a.check(obj, "ok", func() (bool, string) {
		return a.actual.ToBoolean(), "expected %s to be truthy"
	})
	a.check(obj, "true", func() (bool, string) {
		return a.actual.StrictEquals(a.vm.ToValue(true)), "expected %s to be true"
	})
	a.check(obj, "false", func() (bool, string) {
		return a.actual.StrictEquals(a.vm.ToValue(false)), "expected %s to be false"
	})
	a.check(obj, "null", func() (bool, string) {
		return goja.IsNull(a.actual), "expected %s to be null"
	})
	a.check(obj, "undefined", func() (bool, string) {
		return goja.IsUndefined(a.actual), "expected %s to be undefined"
	})
	a.check(obj, "exist", func() (bool, string) {
		return !goja.IsNull(a.actual) && !goja.IsUndefined(a.actual), "expected %s to exist"
	})
	a.check(obj, "empty", func() (bool, string) {
		return a.length() == 0, "expected %s to be empty"
	})

	// Method assertions.
	equal := a.method(func(expected goja.Value) (bool, string) {
		return a.actual.StrictEquals(expected), "expected %s to equal " + a.inspect(expected)
	})
	for _, name := range []string{"equal", "equals", "eq"} {
		_ = obj.Set(name, equal)
	}
	eql := a.method(func(expected goja.Value) (bool, string) {
		return deepEqual(a.actual.Export(), expected.Export()), "expected %s to deeply equal " + a.inspect(expected)
	})
	_ = obj.Set("eql", eql)
	_ = obj.Set("eqls", eql)

	include := a.method(func(member goja.Value) (bool, string) {
		return a.includes(member), "expected %s to include " + a.inspect(member)
	})
	for _, name := range []string{"include", "includes", "contain", "contains"} {
		_ = obj.Set(name, include)
	}

	_ = obj.Set("above", a.compare(">", func(x, y float64) bool { return x > y }))
	_ = obj.Set("gt", obj.Get("above"))
	_ = obj.Set("below", a.compare("<", func(x, y float64) bool { return x < y }))
	_ = obj.Set("lt", obj.Get("below"))
	_ = obj.Set("least", a.compare(">=", func(x, y float64) bool { return x >= y }))
	_ = obj.Set("gte", obj.Get("least"))
	_ = obj.Set("most", a.compare("<=", func(x, y float64) bool { return x <= y }))
	_ = obj.Set("lte", obj.Get("most"))

	_ = obj.Set("lengthOf", a.method(func(n goja.Value) (bool, string) {
		return int64(a.length()) == n.ToInteger(), fmt.Sprintf("expected %%s to have a length of %d but got %d", n.ToInteger(), a.length())
	}))
	_ = obj.Set("a", a.method(func(typ goja.Value) (bool, string) {
		want := strings.ToLower(typ.String())
		return typeOf(a.actual) == want, "expected %s to be a " + want
	}))
	_ = obj.Set("an", obj.Get("a"))
	_ = obj.Set("oneOf", a.method(func(list goja.Value) (bool, string) {
		items, _ := list.Export().([]any)
		for _, item := range items {
			if a.actual.StrictEquals(a.vm.ToValue(item)) {
				return true, ""
			}
		}
		return false, "expected %s to be one of " + a.inspect(list)
	}))
	_ = obj.Set("match", a.method(func(pattern goja.Value) (bool, string) {
		re, err := toRegexp(pattern)
		if err != nil {
			panic(a.vm.NewGoError(err))
		}
		return re.MatchString(a.actual.String()), "expected %s to match " + pattern.String()
	}))
	_ = obj.Set("property", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		var got goja.Value
		if o, ok := a.actual.(*goja.Object); ok {
			got = o.Get(name)
		}
		pass := got != nil
		msg := "expected %s to have property " + name
		if pass && len(call.Arguments) > 1 {
			pass = got.StrictEquals(call.Argument(1))
			msg += " of " + a.inspect(call.Argument(1))
		}
		a.assert(pass, msg)
		return obj
	})
	return obj
}

func (a *assertion) getter(obj *goja.Object, name string, fn func() goja.Value) {
	get := a.vm.ToValue(func(goja.FunctionCall) goja.Value { return fn() })
	_ = obj.DefineAccessorProperty(name, get, nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// check defines a property assertion evaluated on access.
func (a *assertion) check(obj *goja.Object, name string, fn func() (bool, string)) {
	a.getter(obj, name, func() goja.Value {
		pass, msg := fn()
		a.assert(pass, msg)
		return obj
	})
}

func (a *assertion) method(fn func(goja.Value) (bool, string)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		pass, msg := fn(call.Argument(0))
		a.assert(pass, msg)
		return goja.Undefined()
	}
}

func (a *assertion) compare(op string, fn func(x, y float64) bool) func(goja.FunctionCall) goja.Value {
	return a.method(func(n goja.Value) (bool, string) {
		return fn(a.actual.ToFloat(), n.ToFloat()), "expected %s to be " + op + " " + a.inspect(n)
	})
}

// assert throws an AssertionError unless pass, honouring negation. The first
// %s in msg is replaced by the actual value.
func (a *assertion) assert(pass bool, msg string) {
	if pass != a.negate {
		return
	}
	if a.negate {
		msg = strings.Replace(msg, " to ", " not to ", 1)
	}
	panic(assertionError(a.vm, strings.Replace(msg, "%s", a.inspect(a.actual), 1)))
}

func (a *assertion) inspect(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch v.ExportType().Kind() {
	case reflect.String:
		return "'" + v.String() + "'"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, isFunc := goja.AssertFunction(obj); !isFunc {
			if s, ok := stringify(a.vm, obj, ""); ok {
				return s
			}
		}
	}
	return v.String()
}

func (a *assertion) length() int {
	switch v := a.actual.Export().(type) {
	case string:
		return len([]rune(v))
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	if obj, ok := a.actual.(*goja.Object); ok {
		if l := obj.Get("length"); l != nil && !goja.IsUndefined(l) {
			return int(l.ToInteger())
		}
		return len(obj.Keys())
	}
	return 0
}

func (a *assertion) includes(member goja.Value) bool {
	switch v := a.actual.Export().(type) {
	case string:
		return strings.Contains(v, member.String())
	case []any:
		want := member.Export()
		for _, item := range v {
			if deepEqual(item, want) {
				return true
			}
		}
		return false
	case map[string]any:
		sub, ok := member.Export().(map[string]any)
		if !ok {
			return false
		}
		for k, want := range sub {
			got, exists := v[k]
			if !exists || !deepEqual(got, want) {
				return false
			}
		}
		return true
	}
	return false
}

// assertionError builds an Error whose name is AssertionError.
func assertionError(vm *goja.Runtime, msg string) *goja.Object {
	obj, err := vm.New(vm.GlobalObject().Get("Error"), vm.ToValue(msg))
	if err != nil {
		return vm.NewGoError(errors.New(msg))
	}
	_ = obj.Set("name", "AssertionError")
	return obj
}

func typeOf(v goja.Value) string {
	switch {
	case goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, isFunc := goja.AssertFunction(obj); isFunc {
			return "function"
		}
		if obj.ClassName() == "Array" {
			return "array"
		}
		return "object"
	}
	switch v.ExportType().Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int64, reflect.Float64:
		return "number"
	}
	return strings.ToLower(v.ExportType().Kind().String())
}

func toRegexp(pattern goja.Value) (*regexp.Regexp, error) {
	if obj, ok := pattern.(*goja.Object); ok && obj.ClassName() == "RegExp" {
		src := obj.Get("source").String()
		flags := obj.Get("flags").String()
		if strings.Contains(flags, "i") {
			src = "(?i)" + src
		}
		return regexp.Compile(src)
	}
	return regexp.Compile(pattern.String())
}
