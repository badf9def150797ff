package sdk

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// BodyMode names the active payload of a RequestBody.
type BodyMode string

const (
	ModeRaw        BodyMode = "raw"
	ModeURLEncoded BodyMode = "urlencoded"
	ModeFormData   BodyMode = "formdata"
	ModeFile       BodyMode = "file"
	ModeGraphQL    BodyMode = "graphql"
)

// Host MIME types the body transform understands.
const (
	MimeTextPlain      = "text/plain"
	MimeJSON           = "application/json"
	MimeOctetStream    = "application/octet-stream"
	MimeFormURLEncoded = "application/x-www-form-urlencoded"
	MimeMultipart      = "multipart/form-data"
	MimeGraphQL        = "application/graphql"
)

// FormParam is one urlencoded or multipart entry. Type is "text" or "file"
// for multipart; Src carries the host file name of a file entry.
type FormParam struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type,omitempty"`
	Src      string `json:"src,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Payload is the data of one body mode.
type Payload interface {
	Mode() BodyMode
	String() string
	clone() Payload
}

type RawPayload struct{ Raw string }

type URLEncodedPayload struct{ Params []FormParam }

type FormDataPayload struct{ Params []FormParam }

type FilePayload struct{ Src string }

type GraphQLPayload struct{ Query map[string]any }

func (RawPayload) Mode() BodyMode        { return ModeRaw }
func (URLEncodedPayload) Mode() BodyMode { return ModeURLEncoded }
func (FormDataPayload) Mode() BodyMode   { return ModeFormData }
func (FilePayload) Mode() BodyMode       { return ModeFile }
func (GraphQLPayload) Mode() BodyMode    { return ModeGraphQL }

func (p RawPayload) String() string { return p.Raw }

func (p URLEncodedPayload) String() string { return encodeParams(p.Params) }

func (p FormDataPayload) String() string { return encodeParams(p.Params) }

func (p FilePayload) String() string { return p.Src }

func (p GraphQLPayload) String() string {
	if len(p.Query) == 0 {
		return ""
	}
	out, err := sonic.MarshalString(p.Query)
	if err != nil {
		return ""
	}
	return out
}

func (p RawPayload) clone() Payload        { return p }
func (p URLEncodedPayload) clone() Payload { return URLEncodedPayload{Params: cloneParams(p.Params)} }
func (p FormDataPayload) clone() Payload   { return FormDataPayload{Params: cloneParams(p.Params)} }
func (p FilePayload) clone() Payload       { return p }
func (p GraphQLPayload) clone() Payload    { return GraphQLPayload{Query: copyMap(p.Query)} }

func encodeParams(params []FormParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Disabled {
			continue
		}
		parts = append(parts, encodeQueryComponent(p.Key)+"="+encodeQueryComponent(p.Value))
	}
	return strings.Join(parts, "&")
}

func cloneParams(params []FormParam) []FormParam {
	if params == nil {
		return nil
	}
	return append([]FormParam{}, params...)
}

func emptyPayload(mode BodyMode) Payload {
	switch mode {
	case ModeURLEncoded:
		return URLEncodedPayload{}
	case ModeFormData:
		return FormDataPayload{}
	case ModeFile:
		return FilePayload{}
	case ModeGraphQL:
		return GraphQLPayload{}
	default:
		return RawPayload{}
	}
}

// RequestBodyOptions is the plain shape of a body. Only the member named by
// Mode is active; the others are kept for round trips.
type RequestBodyOptions struct {
	Mode       BodyMode       `json:"mode"`
	Raw        *string        `json:"raw,omitempty"`
	URLEncoded []FormParam    `json:"urlencoded,omitempty"`
	FormData   []FormParam    `json:"formdata,omitempty"`
	File       *string        `json:"file,omitempty"`
	GraphQL    map[string]any `json:"graphql,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
}

// RequestBody holds exactly one active payload plus the payloads of modes
// that were set and then switched away from.
type RequestBody struct {
	active   Payload
	stash    map[BodyMode]Payload
	options  map[string]any
	disabled bool
}

func NewRequestBody(opts RequestBodyOptions) *RequestBody {
	b := &RequestBody{stash: map[BodyMode]Payload{}}
	b.apply(opts)
	return b
}

func (b *RequestBody) Kind() Kind { return KindRequestBody }

func (b *RequestBody) apply(opts RequestBodyOptions) {
	if opts.Raw != nil {
		b.stash[ModeRaw] = RawPayload{Raw: *opts.Raw}
	}
	if opts.URLEncoded != nil {
		b.stash[ModeURLEncoded] = URLEncodedPayload{Params: cloneParams(opts.URLEncoded)}
	}
	if opts.FormData != nil {
		b.stash[ModeFormData] = FormDataPayload{Params: cloneParams(opts.FormData)}
	}
	if opts.File != nil {
		b.stash[ModeFile] = FilePayload{Src: *opts.File}
	}
	if opts.GraphQL != nil {
		b.stash[ModeGraphQL] = GraphQLPayload{Query: copyMap(opts.GraphQL)}
	}
	if opts.Options != nil {
		b.options = copyMap(opts.Options)
	}
	b.disabled = opts.Disabled

	mode := opts.Mode
	if mode == "" {
		mode = ModeRaw
	}
	if b.active != nil && b.active.Mode() != mode {
		if _, replaced := b.stash[b.active.Mode()]; !replaced {
			b.stash[b.active.Mode()] = b.active
		}
	}
	if p, ok := b.stash[mode]; ok {
		b.active = p
		delete(b.stash, mode)
	} else if b.active == nil || b.active.Mode() != mode {
		b.active = emptyPayload(mode)
	}
}

// Update switches mode and replaces the payloads present in opts.
func (b *RequestBody) Update(opts RequestBodyOptions) {
	if opts.Mode == "" && b.active != nil {
		opts.Mode = b.active.Mode()
	}
	if b.active != nil && b.active.Mode() == opts.Mode && payloadProvided(opts) {
		// The new payload for the active mode replaces it outright.
		b.active = nil
	}
	b.apply(opts)
}

func payloadProvided(opts RequestBodyOptions) bool {
	switch opts.Mode {
	case ModeRaw:
		return opts.Raw != nil
	case ModeURLEncoded:
		return opts.URLEncoded != nil
	case ModeFormData:
		return opts.FormData != nil
	case ModeFile:
		return opts.File != nil
	case ModeGraphQL:
		return opts.GraphQL != nil
	}
	return false
}

// Mode returns the active body mode.
func (b *RequestBody) Mode() BodyMode { return b.active.Mode() }

// Payload returns the active payload.
func (b *RequestBody) Payload() Payload { return b.active }

func (b *RequestBody) IsDisabled() bool { return b.disabled }

// IsEmpty reports whether the active payload carries no content.
func (b *RequestBody) IsEmpty() bool {
	switch p := b.active.(type) {
	case URLEncodedPayload:
		return len(p.Params) == 0
	case FormDataPayload:
		return len(p.Params) == 0
	default:
		return b.active.String() == ""
	}
}

// String serializes the active payload.
func (b *RequestBody) String() string {
	if b.active == nil {
		return ""
	}
	return b.active.String()
}

// Options returns a snapshot including stashed payloads.
func (b *RequestBody) Options() RequestBodyOptions {
	opts := RequestBodyOptions{Mode: b.active.Mode(), Disabled: b.disabled}
	if b.options != nil {
		opts.Options = copyMap(b.options)
	}
	all := []Payload{b.active}
	for _, p := range b.stash {
		all = append(all, p)
	}
	for _, p := range all {
		switch v := p.(type) {
		case RawPayload:
			raw := v.Raw
			opts.Raw = &raw
		case URLEncodedPayload:
			opts.URLEncoded = cloneParams(v.Params)
			if opts.URLEncoded == nil {
				opts.URLEncoded = []FormParam{}
			}
		case FormDataPayload:
			opts.FormData = cloneParams(v.Params)
			if opts.FormData == nil {
				opts.FormData = []FormParam{}
			}
		case FilePayload:
			src := v.Src
			opts.File = &src
		case GraphQLPayload:
			opts.GraphQL = copyMap(v.Query)
		}
	}
	return opts
}

func (b *RequestBody) ToJSON() RequestBodyOptions { return b.Options() }

func (b *RequestBody) MarshalJSON() ([]byte, error) {
	return marshalJSON(b.Options())
}

func (b *RequestBody) Clone() *RequestBody {
	out := &RequestBody{
		active:   b.active.clone(),
		stash:    make(map[BodyMode]Payload, len(b.stash)),
		disabled: b.disabled,
	}
	for mode, p := range b.stash {
		out.stash[mode] = p.clone()
	}
	if b.options != nil {
		out.options = copyMap(b.options)
	}
	return out
}

// ToScriptRequestBody maps the host body shape, keyed by MIME type, into
// body options.
func ToScriptRequestBody(body types.RequestBody) RequestBodyOptions {
	mime := ptrValue(body.MimeType)

	switch {
	case body.FileName != nil:
		src := *body.FileName
		return RequestBodyOptions{Mode: ModeFile, File: &src}
	case body.Params != nil || mime == MimeFormURLEncoded || mime == MimeMultipart:
		params := make([]FormParam, 0, len(body.Params))
		for _, p := range body.Params {
			fp := FormParam{Key: p.Name, Value: p.Value, Disabled: p.Disabled}
			if mime != MimeFormURLEncoded {
				fp.Type = p.Type
				fp.Src = p.FileName
			}
			params = append(params, fp)
		}
		if mime == MimeFormURLEncoded {
			return RequestBodyOptions{Mode: ModeURLEncoded, URLEncoded: params}
		}
		return RequestBodyOptions{Mode: ModeFormData, FormData: params}
	case mime == MimeGraphQL:
		var query map[string]any
		if err := sonic.UnmarshalString(ptrValue(body.Text), &query); err == nil && query != nil {
			return RequestBodyOptions{Mode: ModeGraphQL, GraphQL: query}
		}
	}

	raw := ptrValue(body.Text)
	return RequestBodyOptions{Mode: ModeRaw, Raw: &raw}
}

// MergeRequestBody folds a script body back into the host body. A body the
// script did not change comes back equal to original.
func MergeRequestBody(body *RequestBody, original types.RequestBody) types.RequestBody {
	out := original
	out.Extra = original.Extra.Clone()
	if body == nil {
		return out
	}

	origMode := ToScriptRequestBody(original).Mode
	mode := body.Mode()
	if mode != origMode {
		out.Text, out.FileName, out.Params = nil, nil, nil
		mime := defaultMimeType(mode, ptrValue(original.MimeType))
		out.MimeType = &mime
	}

	switch p := body.Payload().(type) {
	case RawPayload:
		if out.Text != nil || p.Raw != "" {
			if ptrValue(out.Text) != p.Raw || out.Text == nil {
				out.Text = types.Ptr(p.Raw)
			}
		}
	case FilePayload:
		if ptrValue(out.FileName) != p.Src || out.FileName == nil {
			out.FileName = types.Ptr(p.Src)
		}
	case URLEncodedPayload:
		out.Params = mergeBodyParams(p.Params, original.Params, false)
	case FormDataPayload:
		out.Params = mergeBodyParams(p.Params, original.Params, true)
	case GraphQLPayload:
		var origQuery map[string]any
		_ = sonic.UnmarshalString(ptrValue(original.Text), &origQuery)
		if original.Text == nil || !reflect.DeepEqual(origQuery, p.Query) {
			out.Text = types.Ptr(p.String())
		}
	}
	return out
}

func defaultMimeType(mode BodyMode, current string) string {
	switch mode {
	case ModeURLEncoded:
		return MimeFormURLEncoded
	case ModeFormData:
		return MimeMultipart
	case ModeFile:
		return MimeOctetStream
	case ModeGraphQL:
		return MimeGraphQL
	default:
		if current == "" || current == MimeFormURLEncoded || current == MimeMultipart || current == MimeGraphQL {
			return MimeTextPlain
		}
		return current
	}
}

// mergeBodyParams rebuilds host params by position so host-only members of
// existing entries survive.
func mergeBodyParams(params []FormParam, original []types.BodyParam, multipart bool) []types.BodyParam {
	if len(params) == 0 && original == nil {
		return nil
	}
	out := make([]types.BodyParam, 0, len(params))
	for i, p := range params {
		var bp types.BodyParam
		if i < len(original) {
			bp = original[i]
			bp.Extra = original[i].Extra.Clone()
		}
		bp.Name = p.Key
		bp.Value = p.Value
		bp.Disabled = p.Disabled
		if multipart {
			bp.Type = p.Type
			bp.FileName = p.Src
		}
		out = append(out, bp)
	}
	return out
}

// RequestSize is the byte size of a serialized request.
type RequestSize struct {
	Body   int `json:"body"`
	Header int `json:"header"`
	Total  int `json:"total"`
}

// CalculateRequestSize counts UTF-8 bytes of the serialized body and headers.
func CalculateRequestSize(body *RequestBody, headers *HeaderList) RequestSize {
	var size RequestSize
	if body != nil {
		size.Body = len(body.String())
	}
	if headers != nil {
		size.Header = len(headers.String())
	}
	size.Total = size.Body + size.Header
	return size
}

// ParseRequestBodyOptions converts a script object into body options.
func ParseRequestBodyOptions(v any) (RequestBodyOptions, error) {
	m, ok := v.(map[string]any)
	if !ok {
		if s, isString := v.(string); isString {
			return RequestBodyOptions{Mode: ModeRaw, Raw: &s}, nil
		}
		return RequestBodyOptions{}, fmt.Errorf("%w: unsupported body %T", ErrInvalidArgument, v)
	}

	opts := RequestBodyOptions{
		Mode:     BodyMode(stringField(m, "mode")),
		Disabled: boolField(m, "disabled"),
	}
	if raw, ok := m["raw"]; ok {
		s := stringify(raw)
		opts.Raw = &s
	}
	if file, ok := m["file"]; ok {
		var src string
		if fm, isMap := file.(map[string]any); isMap {
			src = stringField(fm, "src")
		} else {
			src = stringify(file)
		}
		opts.File = &src
	}
	if _, ok := m["urlencoded"]; ok {
		opts.URLEncoded = formParamsField(m, "urlencoded")
	}
	if _, ok := m["formdata"]; ok {
		opts.FormData = formParamsField(m, "formdata")
	}
	if gql, ok := m["graphql"].(map[string]any); ok {
		opts.GraphQL = copyMap(gql)
	}
	if o, ok := m["options"].(map[string]any); ok {
		opts.Options = copyMap(o)
	}
	return opts, nil
}

func formParamsField(m map[string]any, key string) []FormParam {
	out := []FormParam{}
	switch list := m[key].(type) {
	case []any:
		for _, item := range list {
			p, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, FormParam{
				Key:      stringField(p, "key"),
				Value:    stringField(p, "value"),
				Type:     stringField(p, "type"),
				Src:      stringField(p, "src"),
				Disabled: boolField(p, "disabled"),
			})
		}
	case map[string]any:
		for _, k := range sortedKeys(list) {
			out = append(out, FormParam{Key: k, Value: stringify(list[k])})
		}
	case string:
		for _, q := range parseQuery(list) {
			out = append(out, FormParam{Key: q.Key, Value: q.Value})
		}
	}
	return out
}
