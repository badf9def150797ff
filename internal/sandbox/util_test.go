package sandbox

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUtilVM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	require.NoError(t, vm.Set("_", newUtil(vm)))
	return vm
}

func TestUtil(t *testing.T) {
	vm := newUtilVM(t)

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{"get path", "_.get({a: {b: [1, 2]}}, 'a.b[1]')", int64(2)},
		{"get array path", "_.get({a: {b: 'x'}}, ['a', 'b'])", "x"},
		{"get default", "_.get({a: 1}, 'b.c', 'fallback')", "fallback"},
		{"has", "_.has({a: {b: null}}, 'a.b')", true},
		{"has missing", "_.has({a: 1}, 'b')", false},
		{"isEqual", "_.isEqual({a: [1, {b: 2}]}, {a: [1, {b: 2}]})", true},
		{"isEqual differs", "_.isEqual({a: 1}, {a: '1'})", false},
		{"isEmpty object", "_.isEmpty({})", true},
		{"isEmpty array", "_.isEmpty([1])", false},
		{"isEmpty string", "_.isEmpty('')", true},
		{"isEmpty number", "_.isEmpty(42)", true},
		{"cloneDeep detaches", "const a = {b: {c: 1}}; const c = _.cloneDeep(a); c.b.c = 2; a.b.c", int64(1)},
		{"cloneDeep primitive", "_.cloneDeep('s')", "s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vm.RunString("(function () { " + lastExpr(tt.script) + " })()")
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Export())
		})
	}
}

// lastExpr turns "a; b; c" into "a; b; return c".
func lastExpr(script string) string {
	for i := len(script) - 1; i >= 0; i-- {
		if script[i] == ';' {
			return script[:i+1] + " return " + script[i+1:]
		}
	}
	return "return " + script
}

func TestUtilRandom(t *testing.T) {
	vm := newUtilVM(t)

	for i := 0; i < 50; i++ {
		v, err := vm.RunString("_.random(1, 3)")
		require.NoError(t, err)
		n := v.ToInteger()
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(3))

		v, err = vm.RunString("_.random(5, true)")
		require.NoError(t, err)
		f := v.ToFloat()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 5.0)
	}
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "0", "c"}, splitPath(`a.b[0]["c"]`))
	assert.Empty(t, splitPath(""))
}

func TestUUIDModule(t *testing.T) {
	vm := goja.New()
	module := vm.NewObject()
	uuidModule(vm, module)
	require.NoError(t, vm.Set("uuid", module.Get("exports")))

	v, err := vm.RunString("uuid.v4()")
	require.NoError(t, err)
	_, err = uuid.Parse(v.String())
	assert.NoError(t, err)

	v, err = vm.RunString("uuid.validate(uuid.v7()) && !uuid.validate('nope')")
	require.NoError(t, err)
	assert.True(t, v.ToBoolean())

	v, err = vm.RunString("uuid.NIL")
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", v.String())
}
