package sdk

import (
	"fmt"
	"net/url"
	"strings"
)

// QueryParam is one key/value pair of a URL query.
type QueryParam struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

func (q *QueryParam) Kind() Kind { return KindQueryParam }

func (q QueryParam) String() string {
	if q.Value == "" {
		return q.Key
	}
	return q.Key + "=" + q.Value
}

// UrlAuth is the userinfo part of a URL.
type UrlAuth struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Url is a structured URL that tolerates unrendered {{templates}}. Values are
// kept as written so String reproduces the input.
type Url struct {
	Protocol string       `json:"protocol,omitempty"`
	Auth     *UrlAuth     `json:"auth,omitempty"`
	Host     string       `json:"host"`
	Port     string       `json:"port,omitempty"`
	Path     []string     `json:"path,omitempty"`
	Query    []QueryParam `json:"query,omitempty"`
	Hash     string       `json:"hash,omitempty"`
}

func (u *Url) Kind() Kind { return KindUrl }

// ParseURL parses raw leniently. It fails only on empty input, an invalid
// port, or whitespace in a literal host.
func ParseURL(raw string) (*Url, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, &URLParseError{Raw: raw, Reason: "url is empty"}
	}

	u := &Url{}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		u.Hash = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		u.Query = parseQuery(s[i+1:])
		s = s[:i]
	}
	if i := strings.Index(s, "://"); i >= 0 {
		u.Protocol = strings.ToLower(s[:i])
		s = s[i+3:]
	}

	authority, path := s, ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		authority, path = s[:i], s[i:]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		user, pass, _ := strings.Cut(authority[:i], ":")
		u.Auth = &UrlAuth{Username: user, Password: pass}
		authority = authority[i+1:]
	}

	host, port := splitHostPort(authority)
	if port != "" && !isDigits(port) && !isTemplate(port) {
		return nil, &URLParseError{Raw: raw, Reason: fmt.Sprintf("invalid port %q", port)}
	}
	if !isTemplate(host) && strings.ContainsAny(host, " \t\r\n") {
		return nil, &URLParseError{Raw: raw, Reason: fmt.Sprintf("invalid host %q", host)}
	}
	u.Host = host
	u.Port = port
	if path != "" {
		u.Path = strings.Split(path[1:], "/")
	}
	return u, nil
}

// MustParseURL is ParseURL for literals known to be valid.
func MustParseURL(raw string) *Url {
	u, err := ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func splitHostPort(authority string) (string, string) {
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return authority, ""
		}
		host, rest := authority[:end+1], authority[end+1:]
		return host, strings.TrimPrefix(rest, ":")
	}
	// A colon inside a template belongs to the template.
	i := strings.LastIndexByte(authority, ':')
	if i < 0 || strings.Contains(authority[i:], "}}") && !strings.Contains(authority[i:], "{{") {
		return authority, ""
	}
	return authority[:i], authority[i+1:]
}

func parseQuery(raw string) []QueryParam {
	if raw == "" {
		return nil
	}
	var params []QueryParam
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params = append(params, QueryParam{Key: key, Value: value})
	}
	return params
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// String renders the URL. Disabled query params are omitted.
func (u *Url) String() string {
	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol)
		b.WriteString("://")
	}
	if u.Auth != nil {
		b.WriteString(u.Auth.Username)
		if u.Auth.Password != "" {
			b.WriteByte(':')
			b.WriteString(u.Auth.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.GetRemote())
	b.WriteString(u.GetPathWithQuery())
	if u.Hash != "" {
		b.WriteByte('#')
		b.WriteString(u.Hash)
	}
	return b.String()
}

func (u *Url) GetHost() string { return u.Host }

// GetRemote returns host[:port].
func (u *Url) GetRemote() string {
	if u.Port == "" {
		return u.Host
	}
	return u.Host + ":" + u.Port
}

// GetPath returns the path with its leading slash, or "" when there is none.
func (u *Url) GetPath() string {
	if len(u.Path) == 0 {
		return ""
	}
	return "/" + strings.Join(u.Path, "/")
}

func (u *Url) GetPathWithQuery() string {
	if q := u.GetQueryString(); q != "" {
		return u.GetPath() + "?" + q
	}
	return u.GetPath()
}

// GetQueryString joins the enabled params without re-encoding them.
func (u *Url) GetQueryString() string {
	parts := make([]string, 0, len(u.Query))
	for _, q := range u.Query {
		if !q.Disabled {
			parts = append(parts, q.String())
		}
	}
	return strings.Join(parts, "&")
}

// EffectivePort returns the explicit port or the scheme default.
func (u *Url) EffectivePort() string {
	if u.Port != "" {
		return u.Port
	}
	switch u.Protocol {
	case "https", "wss":
		return "443"
	case "http", "ws", "":
		return "80"
	}
	return ""
}

// GetBaseUrl returns protocol://host[:port], defaulting the protocol to http.
func (u *Url) GetBaseUrl() string {
	protocol := u.Protocol
	if protocol == "" {
		protocol = "http"
	}
	return protocol + "://" + u.GetRemote()
}

// AddQueryParams appends params given as a query string, an object, or a list of objects.
func (u *Url) AddQueryParams(params any) error {
	parsed, err := toQueryParams(params)
	if err != nil {
		return err
	}
	u.Query = append(u.Query, parsed...)
	return nil
}

// RemoveQueryParams drops params by key; keys is a string or a list of strings.
func (u *Url) RemoveQueryParams(keys any) error {
	var names []string
	switch v := keys.(type) {
	case string:
		names = []string{v}
	case []string:
		names = v
	case []any:
		for _, k := range v {
			s, ok := k.(string)
			if !ok {
				return fmt.Errorf("%w: query param key must be a string", ErrInvalidArgument)
			}
			names = append(names, s)
		}
	default:
		return fmt.Errorf("%w: unsupported query key list %T", ErrInvalidArgument, keys)
	}

	kept := u.Query[:0]
	for _, q := range u.Query {
		if !containsString(names, q.Key) {
			kept = append(kept, q)
		}
	}
	u.Query = kept
	return nil
}

// Update replaces the URL with a string or overwrites the members present in an object.
func (u *Url) Update(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := ParseURL(val)
		if err != nil {
			return err
		}
		*u = *parsed
		return nil
	case *Url:
		*u = *val.Clone()
		return nil
	case map[string]any:
		return u.updateFields(val)
	default:
		return fmt.Errorf("%w: cannot update url from %T", ErrInvalidArgument, v)
	}
}

func (u *Url) updateFields(fields map[string]any) error {
	for key, value := range fields {
		switch key {
		case "protocol":
			u.Protocol = strings.TrimSuffix(fmt.Sprint(value), ":")
		case "host":
			switch h := value.(type) {
			case []any:
				u.Host = joinAny(h, ".")
			default:
				u.Host = fmt.Sprint(h)
			}
		case "port":
			u.Port = fmt.Sprint(value)
		case "path":
			switch p := value.(type) {
			case []any:
				u.Path = strings.Split(joinAny(p, "/"), "/")
			default:
				u.Path = strings.Split(strings.TrimPrefix(fmt.Sprint(p), "/"), "/")
			}
		case "query":
			params, err := toQueryParams(value)
			if err != nil {
				return err
			}
			u.Query = params
		case "hash":
			u.Hash = fmt.Sprint(value)
		case "auth":
			m, ok := value.(map[string]any)
			if !ok {
				u.Auth = nil
				continue
			}
			u.Auth = &UrlAuth{Username: stringField(m, "username"), Password: stringField(m, "password")}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (u *Url) Clone() *Url {
	out := *u
	if u.Auth != nil {
		auth := *u.Auth
		out.Auth = &auth
	}
	out.Path = append([]string(nil), u.Path...)
	out.Query = append([]QueryParam(nil), u.Query...)
	return &out
}

func toQueryParams(v any) ([]QueryParam, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return parseQuery(strings.TrimPrefix(val, "?")), nil
	case []QueryParam:
		return append([]QueryParam(nil), val...), nil
	case map[string]any:
		if _, ok := val["key"]; ok {
			return []QueryParam{queryParamFromMap(val)}, nil
		}
		params := make([]QueryParam, 0, len(val))
		for _, key := range sortedKeys(val) {
			params = append(params, QueryParam{Key: key, Value: stringify(val[key])})
		}
		return params, nil
	case []any:
		params := make([]QueryParam, 0, len(val))
		for _, item := range val {
			switch p := item.(type) {
			case map[string]any:
				params = append(params, queryParamFromMap(p))
			case string:
				params = append(params, parseQuery(p)...)
			default:
				return nil, fmt.Errorf("%w: unsupported query param %T", ErrInvalidArgument, item)
			}
		}
		return params, nil
	default:
		return nil, fmt.Errorf("%w: unsupported query params %T", ErrInvalidArgument, v)
	}
}

func queryParamFromMap(m map[string]any) QueryParam {
	return QueryParam{
		Key:      stringField(m, "key"),
		Value:    stringField(m, "value"),
		Disabled: boolField(m, "disabled"),
	}
}

// encodeQueryComponent escapes a value for an x-www-form-urlencoded body.
func encodeQueryComponent(s string) string {
	return url.QueryEscape(s)
}
