package types

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds JSON members a host model does not declare. They are written
// back verbatim so host-only metadata survives a trip through the sandbox.
type Extra map[string]json.RawMessage

var knownKeysCache sync.Map // reflect.Type -> map[string]struct{}

// decodeWithExtra unmarshals data into v (a pointer to an alias type) and
// returns the members that v's type does not declare.
func decodeWithExtra(data []byte, v any) (Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object (e.g. null); nothing left over.
		return nil, nil
	}

	known := knownKeys(reflect.TypeOf(v).Elem())
	for key := range raw {
		if _, ok := known[key]; ok {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return Extra(raw), nil
}

// encodeWithExtra marshals v and folds extra members back in. Declared
// fields always win over extras with the same key.
func encodeWithExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// keepNulls copies the listed members of data that are explicitly null into
// extra. Paired with omitempty fields, a null is written back as null while
// an absent member stays absent.
func keepNulls(data []byte, extra Extra, keys ...string) Extra {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return extra
	}
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || string(value) != "null" {
			continue
		}
		if extra == nil {
			extra = Extra{}
		}
		extra[key] = value
	}
	return extra
}

func knownKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]struct{})
	}

	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		switch name {
		case "-":
			continue
		case "":
			name = field.Name
		}
		keys[name] = struct{}{}
	}

	knownKeysCache.Store(t, keys)
	return keys
}

// Clone returns a shallow copy of the extra members.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
