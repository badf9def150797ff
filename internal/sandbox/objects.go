package sandbox

import (
	"github.com/bytedance/sonic"
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
)

// requestObject is the script view of the request. Assigning url, body or
// auth goes through the setters so plain strings and objects are accepted;
// everything else is the reflected *sdk.Request.
type requestObject struct {
	vm   *goja.Runtime
	req  *sdk.Request
	self *goja.Object
}

func newRequestObject(vm *goja.Runtime, req *sdk.Request) *goja.Object {
	return vm.NewDynamicObject(&requestObject{vm: vm, req: req, self: vm.ToValue(req).(*goja.Object)})
}

func (o *requestObject) Get(key string) goja.Value {
	if key == "body" {
		if o.req.Body == nil {
			return goja.Undefined()
		}
		return o.vm.NewDynamicObject(&bodyObject{vm: o.vm, req: o.req})
	}
	return o.self.Get(key)
}

func (o *requestObject) Set(key string, val goja.Value) bool {
	var err error
	switch key {
	case "url":
		err = o.req.SetUrl(val.Export())
	case "body":
		if goja.IsUndefined(val) || goja.IsNull(val) {
			err = o.req.SetBody(nil)
		} else {
			err = o.req.SetBody(val.Export())
		}
	case "auth":
		err = o.req.SetAuth(val.Export())
	default:
		return o.self.Set(key, val) == nil
	}
	if err != nil {
		panic(o.vm.NewGoError(err))
	}
	return true
}

func (o *requestObject) Has(key string) bool {
	return key == "body" || o.self.Get(key) != nil
}

func (o *requestObject) Delete(string) bool { return false }

func (o *requestObject) Keys() []string {
	return o.self.Keys()
}

// bodyFields are the payload properties of a body.
var bodyFields = []string{"mode", "raw", "urlencoded", "formdata", "file", "graphql", "options", "disabled"}

// bodyObject is the script view of request.body. It reads through to the
// request so a replaced body is seen by existing references.
type bodyObject struct {
	vm  *goja.Runtime
	req *sdk.Request
}

func (o *bodyObject) body() *sdk.RequestBody {
	if o.req.Body == nil {
		o.req.Body = sdk.NewRequestBody(sdk.RequestBodyOptions{Mode: sdk.ModeRaw})
	}
	return o.req.Body
}

func (o *bodyObject) Get(key string) goja.Value {
	b := o.body()
	switch key {
	case "update":
		return o.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			opts, err := sdk.ParseRequestBodyOptions(call.Argument(0).Export())
			if err != nil {
				panic(o.vm.NewGoError(err))
			}
			b.Update(opts)
			return goja.Undefined()
		})
	case "toString":
		return o.vm.ToValue(func(goja.FunctionCall) goja.Value { return o.vm.ToValue(b.String()) })
	case "isEmpty":
		return o.vm.ToValue(func(goja.FunctionCall) goja.Value { return o.vm.ToValue(b.IsEmpty()) })
	case "toJSON":
		return o.vm.ToValue(func(goja.FunctionCall) goja.Value { return o.vm.ToValue(plain(b.Options())) })
	}

	opts, ok := plain(b.Options()).(map[string]any)
	if !ok {
		return nil
	}
	if v, exists := opts[key]; exists {
		return o.vm.ToValue(v)
	}
	for _, f := range bodyFields {
		if f == key {
			return goja.Undefined()
		}
	}
	return nil
}

func (o *bodyObject) Set(key string, val goja.Value) bool {
	known := false
	for _, f := range bodyFields {
		known = known || f == key
	}
	if !known {
		return false
	}
	opts, err := sdk.ParseRequestBodyOptions(map[string]any{key: val.Export()})
	if err != nil {
		panic(o.vm.NewGoError(err))
	}
	o.body().Update(opts)
	return true
}

func (o *bodyObject) Has(key string) bool {
	return o.Get(key) != nil
}

func (o *bodyObject) Delete(string) bool { return false }

func (o *bodyObject) Keys() []string {
	opts, _ := plain(o.body().Options()).(map[string]any)
	keys := make([]string, 0, len(opts))
	for _, f := range bodyFields {
		if _, ok := opts[f]; ok {
			keys = append(keys, f)
		}
	}
	return keys
}

// plain round-trips v through JSON so scripts see ordinary objects.
func plain(v any) any {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
