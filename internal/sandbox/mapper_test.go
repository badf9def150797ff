package sandbox

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Get", "get"},
		{"GetHeaders", "getHeaders"},
		{"ToJSON", "toJSON"},
		{"JSON", "json"},
		{"URLChanged", "urlChanged"},
		{"ID", "id"},
		{"already", "already"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, lowerCamel(tt.in))
		})
	}
}

type mapped struct {
	embedded
	Plain    string
	Tagged   string `json:"tagged_name,omitempty"`
	Override string `json:"header" js:"headers"`
	Hidden   string `json:"-"`
	Empty    string `json:",omitempty"`
}

type embedded struct{}

func (mapped) String() string { return "" }

func (mapped) MarshalJSON() ([]byte, error) { return nil, nil }

func (mapped) URLChanged() bool { return false }

func TestFieldMapper(t *testing.T) {
	typ := reflect.TypeOf(mapped{})
	m := fieldMapper{}

	fields := map[string]string{
		"embedded": "",
		"Plain":    "plain",
		"Tagged":   "tagged_name",
		"Override": "headers",
		"Hidden":   "",
		"Empty":    "empty",
	}
	for name, want := range fields {
		f, ok := typ.FieldByName(name)
		if !ok {
			t.Fatalf("missing field %s", name)
		}
		assert.Equal(t, want, m.FieldName(typ, f), name)
	}

	methods := map[string]string{
		"String":      "toString",
		"MarshalJSON": "",
		"URLChanged":  "urlChanged",
	}
	for name, want := range methods {
		meth, ok := typ.MethodByName(name)
		if !ok {
			t.Fatalf("missing method %s", name)
		}
		assert.Equal(t, want, m.MethodName(typ, meth), name)
	}
}
