package sdk

import (
	"fmt"
	"sort"
)

// Script-side auth types.
const (
	AuthNoAuth = "noauth"
	AuthAPIKey = "apikey"
	AuthBasic  = "basic"
	AuthBearer = "bearer"
	AuthDigest = "digest"
	AuthNTLM   = "ntlm"
	AuthOAuth1 = "oauth1"
	AuthOAuth2 = "oauth2"
	AuthHawk   = "hawk"
	AuthAWSV4  = "awsv4"
	AuthASAP   = "asap"
	AuthNetrc  = "netrc"
)

// authMapping pairs a host auth type with its script type and the member
// renames between the two shapes (host key -> script key).
type authMapping struct {
	host    string
	script  string
	renames map[string]string
	order   []string
}

var authMappings = []authMapping{
	{host: "none", script: AuthNoAuth},
	{host: "apikey", script: AuthAPIKey, renames: map[string]string{"addTo": "in"}, order: []string{"key", "value", "in"}},
	{host: "basic", script: AuthBasic, order: []string{"username", "password"}},
	{host: "bearer", script: AuthBearer, order: []string{"token", "prefix"}},
	{host: "digest", script: AuthDigest, order: []string{"username", "password"}},
	{host: "ntlm", script: AuthNTLM, order: []string{"username", "password"}},
	{host: "oauth1", script: AuthOAuth1, renames: map[string]string{"tokenKey": "token"},
		order: []string{"consumerKey", "consumerSecret", "token", "tokenSecret", "signatureMethod", "timestamp", "nonce", "version", "realm", "callback", "verifier", "privateKey", "includeBodyHash"}},
	{host: "oauth2", script: AuthOAuth2, renames: map[string]string{"authorizationUrl": "authUrl", "redirectUrl": "redirect_uri", "tokenPrefix": "headerPrefix"},
		order: []string{"grantType", "accessTokenUrl", "authUrl", "clientId", "clientSecret", "scope", "state", "redirect_uri", "headerPrefix", "username", "password", "audience", "resource", "credentialsInBody"}},
	{host: "hawk", script: AuthHawk, renames: map[string]string{"id": "authId", "key": "authKey"}, order: []string{"authId", "authKey", "algorithm", "ext", "validatePayload"}},
	{host: "iam", script: AuthAWSV4, renames: map[string]string{"accessKeyId": "accessKey", "secretAccessKey": "secretKey"},
		order: []string{"accessKey", "secretKey", "sessionToken", "region", "service"}},
	{host: "asap", script: AuthASAP, renames: map[string]string{"issuer": "iss", "subject": "sub", "audience": "aud", "keyId": "kid", "additionalClaims": "claims"},
		order: []string{"iss", "sub", "aud", "kid", "privateKey", "claims"}},
	{host: "netrc", script: AuthNetrc},
}

func mappingForHost(hostType string) (authMapping, bool) {
	if hostType == "" {
		hostType = "none"
	}
	for _, m := range authMappings {
		if m.host == hostType {
			return m, true
		}
	}
	return authMapping{}, false
}

func mappingForScript(scriptType string) (authMapping, bool) {
	for _, m := range authMappings {
		if m.script == scriptType {
			return m, true
		}
	}
	return authMapping{}, false
}

// AuthParam is one key/value member of an auth configuration.
type AuthParam struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

// RequestAuth is a script-side auth descriptor: the active type plus the
// parameters recorded for every type that was configured.
type RequestAuth struct {
	Type string `json:"type"`

	params map[string][]AuthParam
}

func NewRequestAuth(authType string, params map[string][]AuthParam) *RequestAuth {
	a := &RequestAuth{Type: authType, params: map[string][]AuthParam{}}
	for t, p := range params {
		a.params[t] = append([]AuthParam(nil), p...)
	}
	if a.Type == "" {
		a.Type = AuthNoAuth
	}
	return a
}

func (a *RequestAuth) Kind() Kind { return KindRequestAuth }

// Parameters returns the active type's members as key -> value.
func (a *RequestAuth) Parameters() map[string]any {
	out := map[string]any{}
	for _, p := range a.params[a.Type] {
		out[p.Key] = p.Value
	}
	return out
}

// Get returns one member of the active type, or nil.
func (a *RequestAuth) Get(key string) any {
	for _, p := range a.params[a.Type] {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Current returns the active type.
func (a *RequestAuth) Current() string { return a.Type }

// Use switches the active type, optionally replacing its parameters.
func (a *RequestAuth) Use(authType string, params ...any) error {
	if _, ok := mappingForScript(authType); !ok {
		return fmt.Errorf("%w: unknown auth type %q", ErrInvalidArgument, authType)
	}
	a.Type = authType
	if len(params) > 0 && params[0] != nil {
		return a.Update(params[0], authType)
	}
	return nil
}

// Update sets members of authType (the active type when omitted). params is
// a list of {key, value} objects or a plain object.
func (a *RequestAuth) Update(params any, authType ...string) error {
	target := a.Type
	if len(authType) > 0 && authType[0] != "" {
		target = authType[0]
	}
	parsed, err := parseAuthParams(params)
	if err != nil {
		return err
	}
	existing := a.params[target]
	for _, p := range parsed {
		replaced := false
		for i := range existing {
			if existing[i].Key == p.Key {
				existing[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, p)
		}
	}
	a.params[target] = existing
	return nil
}

// Clear drops the parameters recorded for authType.
func (a *RequestAuth) Clear(authType string) {
	delete(a.params, authType)
}

// Params returns the members recorded for authType.
func (a *RequestAuth) Params(authType string) []AuthParam {
	return append([]AuthParam(nil), a.params[authType]...)
}

func (a *RequestAuth) Clone() *RequestAuth {
	return NewRequestAuth(a.Type, a.params)
}

// ToJSON returns {type, <type>: [{key, value}]} for every configured type.
func (a *RequestAuth) ToJSON() map[string]any {
	out := map[string]any{"type": a.Type}
	for t, params := range a.params {
		list := make([]map[string]any, 0, len(params))
		for _, p := range params {
			item := map[string]any{"key": p.Key, "value": p.Value}
			if p.Type != "" {
				item["type"] = p.Type
			}
			list = append(list, item)
		}
		out[t] = list
	}
	return out
}

func (a *RequestAuth) MarshalJSON() ([]byte, error) {
	return marshalJSON(a.ToJSON())
}

func parseAuthParams(v any) ([]AuthParam, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []AuthParam:
		return append([]AuthParam(nil), val...), nil
	case []any:
		out := make([]AuthParam, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: auth param must be an object", ErrInvalidArgument)
			}
			out = append(out, AuthParam{Key: stringField(m, "key"), Value: m["value"], Type: stringField(m, "type")})
		}
		return out, nil
	case map[string]any:
		if _, ok := val["key"]; ok {
			return []AuthParam{{Key: stringField(val, "key"), Value: val["value"], Type: stringField(val, "type")}}, nil
		}
		out := make([]AuthParam, 0, len(val))
		for _, k := range sortedKeys(val) {
			out = append(out, AuthParam{Key: k, Value: val[k]})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported auth params %T", ErrInvalidArgument, v)
	}
}

// ParseRequestAuth converts a script {type, <type>: [...]} object.
func ParseRequestAuth(v any) (*RequestAuth, error) {
	switch val := v.(type) {
	case nil:
		return NewRequestAuth(AuthNoAuth, nil), nil
	case *RequestAuth:
		return val.Clone(), nil
	case map[string]any:
		a := NewRequestAuth(stringField(val, "type"), nil)
		for key, params := range val {
			if key == "type" {
				continue
			}
			if err := a.Update(params, key); err != nil {
				return nil, err
			}
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unsupported auth %T", ErrInvalidArgument, v)
	}
}

// ToScriptAuth maps a host authentication object into a RequestAuth.
func ToScriptAuth(host map[string]any) *RequestAuth {
	hostType, _ := host["type"].(string)
	m, ok := mappingForHost(hostType)
	if !ok {
		// Unknown host types are kept verbatim so they round-trip.
		m = authMapping{host: hostType, script: hostType}
	}

	params := make([]AuthParam, 0, len(host))
	seen := map[string]bool{"type": true}
	add := func(hostKey string) {
		if seen[hostKey] {
			return
		}
		value, present := host[hostKey]
		if !present {
			return
		}
		seen[hostKey] = true
		scriptKey := hostKey
		if renamed, ok := m.renames[hostKey]; ok {
			scriptKey = renamed
		}
		if m.script == AuthAPIKey && hostKey == "addTo" && value == "queryParams" {
			value = "query"
		}
		params = append(params, AuthParam{Key: scriptKey, Value: value})
	}

	for _, scriptKey := range m.order {
		add(hostKeyFor(m, scriptKey))
	}
	rest := make([]string, 0, len(host))
	for k := range host {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}

	auth := NewRequestAuth(m.script, nil)
	if len(params) > 0 {
		auth.params[m.script] = params
	}
	return auth
}

func hostKeyFor(m authMapping, scriptKey string) string {
	for hostKey, renamed := range m.renames {
		if renamed == scriptKey {
			return hostKey
		}
	}
	return scriptKey
}

// MergeAuth folds a script auth descriptor into the host authentication
// object. Members the script model does not carry survive when the type is
// unchanged.
func MergeAuth(original map[string]any, auth *RequestAuth) map[string]any {
	if auth == nil {
		return original
	}
	m, ok := mappingForScript(auth.Type)
	if !ok {
		m = authMapping{host: auth.Type, script: auth.Type}
	}

	origType, _ := original["type"].(string)
	if origType == "" {
		origType = "none"
	}

	var out map[string]any
	if origType == m.host {
		if original != nil {
			out = copyMap(original)
		} else {
			out = map[string]any{}
		}
	} else {
		out = map[string]any{"type": m.host}
	}
	if m.script == AuthNoAuth {
		if origType == m.host {
			return original
		}
		return map[string]any{}
	}

	for _, p := range auth.params[auth.Type] {
		hostKey := hostKeyFor(m, p.Key)
		value := p.Value
		if m.script == AuthAPIKey && p.Key == "in" && value == "query" {
			value = "queryParams"
		}
		out[hostKey] = value
	}
	return out
}
