package sdk

import (
	"regexp"
	"strings"
)

// maxReplaceDepth bounds nested template expansion so self-referencing
// variables terminate.
const maxReplaceDepth = 10

var templatePattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Environment is one named variable scope.
type Environment struct {
	Name string `json:"name"`

	data map[string]any
}

func NewEnvironment(name string, data map[string]any) *Environment {
	if data == nil {
		data = map[string]any{}
	}
	return &Environment{Name: name, data: copyMap(data)}
}

func (e *Environment) Kind() Kind { return KindEnvironment }

func (e *Environment) Has(key string) bool {
	_, ok := e.data[key]
	return ok
}

// Get returns the value stored under key, or nil.
func (e *Environment) Get(key string) any {
	return e.data[key]
}

func (e *Environment) Set(key string, value any) {
	e.data[key] = value
}

func (e *Environment) Unset(key string) {
	delete(e.data, key)
}

func (e *Environment) Clear() {
	e.data = map[string]any{}
}

// ReplaceIn substitutes {{key}} references from this scope only.
func (e *Environment) ReplaceIn(template string) string {
	return replaceTemplate(template, e.lookup)
}

func (e *Environment) lookup(key string) (any, bool) {
	v, ok := e.data[key]
	return v, ok
}

// ToObject returns a copy of the scope's data.
func (e *Environment) ToObject() map[string]any {
	return copyMap(e.data)
}

// replaceTemplate expands references until the text stops changing or the
// depth bound is hit. Unknown references are left as written.
func replaceTemplate(template string, lookup func(string) (any, bool)) string {
	current := template
	for i := 0; i < maxReplaceDepth; i++ {
		next := templatePattern.ReplaceAllStringFunc(current, func(match string) string {
			key := strings.TrimSpace(templatePattern.FindStringSubmatch(match)[1])
			key = strings.TrimPrefix(key, "_.")
			if v, ok := lookup(key); ok {
				return stringify(v)
			}
			return match
		})
		if next == current {
			break
		}
		current = next
	}
	return current
}
