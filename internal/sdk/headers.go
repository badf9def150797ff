package sdk

import (
	"fmt"
	"strings"
)

// Header is one key/value header line.
type Header struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

func (h *Header) Kind() Kind { return KindHeader }

func (h *Header) String() string {
	return h.Key + ": " + h.Value
}

// ParseHeader accepts a *Header, a {key, value, disabled} object or a
// "Key: Value" line.
func ParseHeader(v any) (*Header, error) {
	switch val := v.(type) {
	case *Header:
		h := *val
		return &h, nil
	case Header:
		return &val, nil
	case map[string]any:
		return &Header{
			Key:      stringField(val, "key"),
			Value:    stringField(val, "value"),
			Disabled: boolField(val, "disabled"),
		}, nil
	case string:
		key, value, ok := strings.Cut(val, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header %q has no separator", ErrInvalidArgument, val)
		}
		return &Header{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported header %T", ErrInvalidArgument, v)
	}
}

// HeaderRemoveOptions controls key matching on removal.
type HeaderRemoveOptions struct {
	IgnoreCase bool `json:"ignoreCase"`
}

// HeaderObjectOptions shapes HeaderList.ToObject.
type HeaderObjectOptions struct {
	IgnoreCase   bool `json:"ignoreCase"`
	Enabled      bool `json:"enabled"`
	MultiValue   bool `json:"multiValue"`
	SanitizeKeys bool `json:"sanitizeKeys"`
}

// HeaderList is an ordered header collection. Lookups ignore case.
type HeaderList struct {
	list *PropertyList[*Header]
}

func headerKey(h *Header) string { return h.Key }

func NewHeaderList(headers ...*Header) *HeaderList {
	return &HeaderList{list: NewPropertyList(headerKey, nil, headers...)}
}

func (l *HeaderList) Kind() Kind { return KindHeaderList }

func (l *HeaderList) Add(v any) error {
	h, err := ParseHeader(v)
	if err != nil {
		return err
	}
	return l.list.Add(h)
}

// Upsert replaces the value of an existing header with the same key
// (case-insensitive) or appends a new one.
func (l *HeaderList) Upsert(v any) error {
	h, err := ParseHeader(v)
	if err != nil {
		return err
	}
	if existing, ok := l.list.Find(h.Key, true); ok {
		existing.Value = h.Value
		existing.Disabled = h.Disabled
		return nil
	}
	return l.list.Add(h)
}

// Remove drops headers with the given key.
func (l *HeaderList) Remove(key string, opts ...HeaderRemoveOptions) int {
	ignoreCase := len(opts) > 0 && opts[0].IgnoreCase
	return l.list.Remove(key, ignoreCase)
}

// Get returns the value of the first header named key, or nil.
func (l *HeaderList) Get(key string) any {
	if h, ok := l.list.Find(key, true); ok {
		return h.Value
	}
	return nil
}

// One returns the first header named key, or nil.
func (l *HeaderList) One(key string) *Header {
	h, _ := l.list.Find(key, true)
	return h
}

func (l *HeaderList) Has(key string) bool {
	return l.list.Has(key, true)
}

func (l *HeaderList) Count() int { return l.list.Count() }

func (l *HeaderList) Idx(i int) *Header {
	h, _ := l.list.Idx(i)
	return h
}

func (l *HeaderList) All() []*Header { return l.list.All() }

func (l *HeaderList) Each(fn func(*Header)) { l.list.Each(fn) }

func (l *HeaderList) Clear() { l.list.Clear() }

// ToObject flattens the list into key -> value, or key -> []value with MultiValue.
func (l *HeaderList) ToObject(opts ...HeaderObjectOptions) map[string]any {
	var o HeaderObjectOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	out := make(map[string]any)
	l.list.Each(func(h *Header) {
		if o.Enabled && h.Disabled {
			return
		}
		key := h.Key
		if o.SanitizeKeys {
			key = sanitizeHeaderKey(key)
			if key == "" {
				return
			}
		}
		if o.IgnoreCase {
			key = strings.ToLower(key)
		}
		if !o.MultiValue {
			out[key] = h.Value
			return
		}
		values, _ := out[key].([]string)
		out[key] = append(values, h.Value)
	})
	return out
}

// String renders "Key: Value\r\n" for every enabled header.
func (l *HeaderList) String() string {
	var b strings.Builder
	l.list.Each(func(h *Header) {
		if h.Disabled {
			return
		}
		b.WriteString(h.String())
		b.WriteString("\r\n")
	})
	return b.String()
}

// Clone returns a deep copy.
func (l *HeaderList) Clone() *HeaderList {
	return &HeaderList{list: l.list.Clone(func(h *Header) *Header {
		c := *h
		return &c
	})}
}

func (l *HeaderList) MarshalJSON() ([]byte, error) {
	return marshalJSON(l.snapshot())
}

func (l *HeaderList) snapshot() []Header {
	out := make([]Header, 0, l.list.Count())
	l.list.Each(func(h *Header) { out = append(out, *h) })
	return out
}

// sanitizeHeaderKey drops characters that are not valid in an HTTP token.
func sanitizeHeaderKey(key string) string {
	return strings.Map(func(r rune) rune {
		if isTokenRune(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(key))
}

func isTokenRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}
