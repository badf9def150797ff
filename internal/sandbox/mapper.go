package sandbox

import (
	"reflect"
	"strings"
	"unicode"
)

// fieldMapper exposes Go values to scripts under their JSON names. A js tag
// takes precedence over the json tag; methods are lower-camel-cased with
// leading acronyms folded (ToJSON -> toJSON, URLChanged -> urlChanged).
type fieldMapper struct{}

var hiddenMethods = map[string]bool{
	"MarshalJSON":   true,
	"UnmarshalJSON": true,
}

func (fieldMapper) FieldName(_ reflect.Type, f reflect.StructField) string {
	if f.Anonymous {
		// Promoted fields are still walked.
		return ""
	}
	if tag, ok := f.Tag.Lookup("js"); ok {
		if tag == "-" {
			return ""
		}
		return tag
	}
	if tag, ok := f.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		switch name {
		case "-":
			return ""
		case "":
		default:
			return name
		}
	}
	return lowerCamel(f.Name)
}

func (fieldMapper) MethodName(_ reflect.Type, m reflect.Method) string {
	if hiddenMethods[m.Name] {
		return ""
	}
	if m.Name == "String" {
		return "toString"
	}
	return lowerCamel(m.Name)
}

func lowerCamel(name string) string {
	r := []rune(name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n > 1 && n < len(r):
		// The last capital starts the next word.
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
