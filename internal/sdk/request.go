package sdk

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// RequestOptions describes a request to build. URL is a string or *Url.
type RequestOptions struct {
	ID             string
	Name           string
	URL            any
	Method         string
	Header         []*Header
	Body           *RequestBodyOptions
	Auth           *RequestAuth
	Proxy          *ProxyConfigOptions
	Certificate    *Certificate
	PathParameters []types.PathParameter
}

// Request is the script-side request model.
type Request struct {
	Property
	Url            *Url                  `json:"url"`
	Method         string                `json:"method"`
	Headers        *HeaderList           `json:"header" js:"headers"`
	Body           *RequestBody          `json:"body,omitempty"`
	Auth           *RequestAuth          `json:"auth"`
	Proxy          *ProxyConfig          `json:"proxy,omitempty"`
	Certificate    *Certificate          `json:"certificate,omitempty"`
	PathParameters []types.PathParameter `json:"pathParameters,omitempty"`

	// originalURL is the rendering of Url at construction, used by the
	// merge to tell whether the script changed the URL.
	originalURL string
}

func NewRequest(opts RequestOptions) (*Request, error) {
	r := &Request{
		Property:       Property{ID: opts.ID, Name: opts.Name},
		Method:         opts.Method,
		Headers:        NewHeaderList(),
		PathParameters: append([]types.PathParameter(nil), opts.PathParameters...),
	}

	switch u := opts.URL.(type) {
	case *Url:
		r.Url = u.Clone()
	case string:
		parsed, err := ParseURL(u)
		if err != nil {
			return nil, err
		}
		r.Url = parsed
	case nil:
		return nil, &URLParseError{Raw: "", Reason: "url is missing"}
	default:
		return nil, fmt.Errorf("%w: unsupported url %T", ErrInvalidArgument, opts.URL)
	}
	r.originalURL = r.Url.String()

	for _, h := range opts.Header {
		if err := r.Headers.Add(h); err != nil {
			return nil, err
		}
	}
	if opts.Body != nil {
		r.Body = NewRequestBody(*opts.Body)
	}
	r.Auth = opts.Auth
	if r.Auth == nil {
		r.Auth = NewRequestAuth(AuthNoAuth, nil)
	}
	if opts.Proxy != nil {
		r.Proxy = NewProxyConfig(*opts.Proxy)
	}
	if opts.Certificate != nil {
		r.Certificate = opts.Certificate.Clone()
	}
	return r, nil
}

// ParseRequest accepts a URL string, a *Request, or a script request object.
func ParseRequest(v any) (*Request, error) {
	switch val := v.(type) {
	case *Request:
		return val, nil
	case string:
		return NewRequest(RequestOptions{URL: val, Method: "GET"})
	case map[string]any:
		opts := RequestOptions{
			Name:   stringField(val, "name"),
			Method: strings.ToUpper(stringField(val, "method")),
		}
		if opts.Method == "" {
			opts.Method = "GET"
		}
		switch u := val["url"].(type) {
		case *Url:
			opts.URL = u
		default:
			opts.URL = stringify(u)
		}
		headers, _ := val["header"].([]any)
		if headers == nil {
			headers, _ = val["headers"].([]any)
		}
		for _, item := range headers {
			h, err := ParseHeader(item)
			if err != nil {
				return nil, err
			}
			opts.Header = append(opts.Header, h)
		}
		if body, ok := val["body"]; ok && body != nil {
			bodyOpts, err := ParseRequestBodyOptions(body)
			if err != nil {
				return nil, err
			}
			opts.Body = &bodyOpts
		}
		if auth, ok := val["auth"]; ok {
			parsed, err := ParseRequestAuth(auth)
			if err != nil {
				return nil, err
			}
			opts.Auth = parsed
		}
		return NewRequest(opts)
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidArgument, v)
	}
}

func (r *Request) Kind() Kind { return KindRequest }

func (r *Request) AddHeader(h any) error {
	return r.Headers.Add(h)
}

func (r *Request) RemoveHeader(key string, opts ...HeaderRemoveOptions) {
	r.Headers.Remove(key, opts...)
}

func (r *Request) UpsertHeader(h any) error {
	return r.Headers.Upsert(h)
}

func (r *Request) GetHeaders(opts ...HeaderObjectOptions) map[string]any {
	return r.Headers.ToObject(opts...)
}

// AddQueryParams appends params to the URL query.
func (r *Request) AddQueryParams(params any) error {
	return r.Url.AddQueryParams(params)
}

// RemoveQueryParams removes params from the URL query by key.
func (r *Request) RemoveQueryParams(keys any) error {
	return r.Url.RemoveQueryParams(keys)
}

// SetUrl replaces the URL from a string, *Url or URL object.
func (r *Request) SetUrl(v any) error {
	if r.Url == nil {
		r.Url = &Url{}
	}
	return r.Url.Update(v)
}

// SetBody replaces the body from body options or a raw string.
func (r *Request) SetBody(v any) error {
	if v == nil {
		r.Body = nil
		return nil
	}
	if b, ok := v.(*RequestBody); ok {
		r.Body = b.Clone()
		return nil
	}
	opts, err := ParseRequestBodyOptions(v)
	if err != nil {
		return err
	}
	r.Body = NewRequestBody(opts)
	return nil
}

// SetAuth replaces the auth descriptor.
func (r *Request) SetAuth(v any) error {
	auth, err := ParseRequestAuth(v)
	if err != nil {
		return err
	}
	r.Auth = auth
	return nil
}

// AuthorizeUsing switches the auth type, optionally replacing its parameters.
func (r *Request) AuthorizeUsing(authType string, params ...any) error {
	if r.Auth == nil {
		r.Auth = NewRequestAuth(AuthNoAuth, nil)
	}
	return r.Auth.Use(authType, params...)
}

// Size returns the UTF-8 byte size of the serialized body and headers.
func (r *Request) Size() RequestSize {
	return CalculateRequestSize(r.Body, r.Headers)
}

// URLChanged reports whether the URL differs from its construction value.
func (r *Request) URLChanged() bool {
	return r.Url == nil || r.Url.String() != r.originalURL
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	out := &Request{
		Property:       r.Property,
		Method:         r.Method,
		PathParameters: append([]types.PathParameter(nil), r.PathParameters...),
		originalURL:    r.originalURL,
	}
	if r.Url != nil {
		out.Url = r.Url.Clone()
	}
	if r.Headers != nil {
		out.Headers = r.Headers.Clone()
	}
	if r.Body != nil {
		out.Body = r.Body.Clone()
	}
	if r.Auth != nil {
		out.Auth = r.Auth.Clone()
	}
	if r.Proxy != nil {
		out.Proxy = r.Proxy.Clone()
	}
	if r.Certificate != nil {
		out.Certificate = r.Certificate.Clone()
	}
	return out
}

// RequestJSON is the plain snapshot of a Request.
type RequestJSON struct {
	ID             string                `json:"id,omitempty"`
	Name           string                `json:"name,omitempty"`
	URL            string                `json:"url"`
	Method         string                `json:"method"`
	Header         []Header              `json:"header"`
	Body           *RequestBodyOptions   `json:"body,omitempty"`
	Auth           map[string]any        `json:"auth,omitempty"`
	Proxy          *ProxyConfigOptions   `json:"proxy,omitempty"`
	Certificate    *Certificate          `json:"certificate,omitempty"`
	PathParameters []types.PathParameter `json:"pathParameters,omitempty"`
}

func (r *Request) ToJSON() RequestJSON {
	out := RequestJSON{
		ID:             r.ID,
		Name:           r.Name,
		Method:         r.Method,
		PathParameters: r.PathParameters,
	}
	if r.Url != nil {
		out.URL = r.Url.String()
	}
	if r.Headers != nil {
		out.Header = r.Headers.snapshot()
	}
	if r.Body != nil {
		opts := r.Body.Options()
		out.Body = &opts
	}
	if r.Auth != nil {
		out.Auth = r.Auth.ToJSON()
	}
	if r.Proxy != nil {
		opts := r.Proxy.Options()
		out.Proxy = &opts
	}
	if r.Certificate != nil {
		out.Certificate = r.Certificate.Clone()
	}
	return out
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return marshalJSON(r.ToJSON())
}
