package sdk

// VariablesOptions wires the five scopes of a Variables chain.
type VariablesOptions struct {
	Globals       *Environment
	Collection    *Environment
	Environment   *Environment
	IterationData *Environment
	Local         *Environment
}

// Variables resolves keys across scopes with the precedence
// local > iteration data > environment > collection > globals.
type Variables struct {
	globals       *Environment
	collection    *Environment
	environment   *Environment
	iterationData *Environment
	local         *Environment
}

func NewVariables(opts VariablesOptions) *Variables {
	orEmpty := func(e *Environment, name string) *Environment {
		if e == nil {
			return NewEnvironment(name, nil)
		}
		return e
	}
	return &Variables{
		globals:       orEmpty(opts.Globals, "globals"),
		collection:    orEmpty(opts.Collection, "collection"),
		environment:   orEmpty(opts.Environment, "environment"),
		iterationData: orEmpty(opts.IterationData, "iterationData"),
		local:         orEmpty(opts.Local, "transientVariables"),
	}
}

func (v *Variables) Kind() Kind { return KindVariables }

// chain lists the scopes from highest to lowest precedence.
func (v *Variables) chain() []*Environment {
	return []*Environment{v.local, v.iterationData, v.environment, v.collection, v.globals}
}

func (v *Variables) lookup(key string) (any, bool) {
	for _, scope := range v.chain() {
		if val, ok := scope.lookup(key); ok {
			return val, true
		}
	}
	return nil, false
}

func (v *Variables) Has(key string) bool {
	_, ok := v.lookup(key)
	return ok
}

// Get returns the highest-precedence value for key, or nil.
func (v *Variables) Get(key string) any {
	val, _ := v.lookup(key)
	return val
}

// Set writes to the local scope.
func (v *Variables) Set(key string, value any) {
	v.local.Set(key, value)
}

// ReplaceIn substitutes {{key}} references across the whole chain.
func (v *Variables) ReplaceIn(template string) string {
	return replaceTemplate(template, v.lookup)
}

// ToObject merges every scope, higher precedence winning.
func (v *Variables) ToObject() map[string]any {
	out := map[string]any{}
	scopes := v.chain()
	for i := len(scopes) - 1; i >= 0; i-- {
		for k, val := range scopes[i].data {
			out[k] = val
		}
	}
	return out
}

// LocalVarsToObject returns the local scope only.
func (v *Variables) LocalVarsToObject() map[string]any {
	return v.local.ToObject()
}
