package sdk

import (
	"reflect"
	"strings"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// DefaultTransientVariablesName names the local scope when the host sent none.
const DefaultTransientVariablesName = "transientVariables"

// MergeRequests folds a script request into the host request. Host members
// the script model does not carry are kept.
func MergeRequests(original *types.Request, updated *Request) *types.Request {
	if original == nil {
		return nil
	}
	out := *original
	out.Extra = original.Extra.Clone()
	if updated == nil {
		return &out
	}

	out.Name = updated.Name
	out.Method = updated.Method

	// The URL was built from the host URL plus its enabled parameters. If the
	// script left it alone, the host split between the two is kept.
	if updated.URLChanged() {
		out.URL = updated.Url.String()
		params := make([]types.RequestParameter, 0, len(original.Parameters))
		for _, p := range original.Parameters {
			if p.Disabled {
				params = append(params, p)
			}
		}
		out.Parameters = params
	}

	if updated.Headers != nil {
		headers := make([]types.RequestHeader, 0, updated.Headers.Count())
		for i, h := range updated.Headers.All() {
			var rh types.RequestHeader
			if i < len(original.Headers) && strings.EqualFold(original.Headers[i].Name, h.Key) {
				rh = original.Headers[i]
				rh.Extra = original.Headers[i].Extra.Clone()
			}
			rh.Name = h.Key
			rh.Value = h.Value
			rh.Disabled = h.Disabled
			headers = append(headers, rh)
		}
		if len(headers) == 0 && original.Headers == nil {
			headers = nil
		}
		out.Headers = headers
	}

	out.Body = MergeRequestBody(updated.Body, original.Body)
	out.Authentication = MergeAuth(original.Authentication, updated.Auth)
	if len(updated.PathParameters) > 0 || len(original.PathParameters) > 0 {
		out.PathParameters = append([]types.PathParameter{}, updated.PathParameters...)
	}
	return &out
}

// MergeSettings writes the script proxy back into the host settings. When
// the proxy is unchanged the original settings are returned untouched.
func MergeSettings(original types.Settings, updated *Request) types.Settings {
	if updated == nil || updated.Proxy == nil {
		return original
	}

	before, err := TransformToSdkProxyOptions(original.HTTPProxy, original.HTTPSProxy, original.ProxyEnabled, original.NoProxy, nil)
	after := updated.Proxy.Options()
	after.ID, after.Name, after.Type = "", "", ""
	if err == nil && reflect.DeepEqual(normalizeProxy(before), normalizeProxy(after)) {
		return original
	}

	out := original
	out.Extra = original.Extra.Clone()
	proxyURL := ""
	if after.Host != "" {
		proxyURL = updated.Proxy.GetProxyUrl()
	}
	if strings.HasPrefix(after.Protocol, "https") {
		out.HTTPSProxy = proxyURL
	} else {
		out.HTTPProxy = proxyURL
		out.HTTPSProxy = ""
	}
	out.NoProxy = strings.Join(after.Bypass, ",")
	out.ProxyEnabled = !after.Disabled
	return out
}

func normalizeProxy(o ProxyConfigOptions) ProxyConfigOptions {
	if o.Bypass == nil {
		o.Bypass = []string{}
	}
	o.Protocol = strings.TrimSuffix(o.Protocol, ":")
	return o
}

// MergeClientCertificates writes the script certificate back into the host
// list. The certificate matching its host is updated, or a new one is
// appended. A placeholder certificate changes nothing.
func MergeClientCertificates(original []types.ClientCertificate, updated *Request) []types.ClientCertificate {
	if updated == nil || updated.Certificate == nil || updated.Certificate.IsPlaceholder() {
		return original
	}
	cert := updated.Certificate
	if len(cert.Matches) == 0 {
		return original
	}
	host := cert.Matches[0]

	srcOf := func(s *CertificateSource) *string {
		if s == nil || s.Src == "" {
			return nil
		}
		src := s.Src
		return &src
	}
	apply := func(c types.ClientCertificate) types.ClientCertificate {
		c.Key = srcOf(cert.Key)
		c.Cert = srcOf(cert.Cert)
		c.Pfx = srcOf(cert.Pfx)
		c.Passphrase = nil
		if cert.Passphrase != nil && *cert.Passphrase != "" {
			pass := *cert.Passphrase
			c.Passphrase = &pass
		}
		c.Disabled = cert.Disabled
		return c
	}

	out := make([]types.ClientCertificate, 0, len(original)+1)
	found := false
	for _, c := range original {
		if !found && c.Host == host {
			found = true
			merged := apply(c)
			if certificateEqual(merged, c) {
				out = append(out, c)
			} else {
				merged.Extra = c.Extra.Clone()
				out = append(out, merged)
			}
			continue
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, apply(types.ClientCertificate{Host: host}))
	}
	return out
}

func certificateEqual(a, b types.ClientCertificate) bool {
	return ptrValue(a.Key) == ptrValue(b.Key) &&
		ptrValue(a.Cert) == ptrValue(b.Cert) &&
		ptrValue(a.Pfx) == ptrValue(b.Pfx) &&
		ptrValue(a.Passphrase) == ptrValue(b.Passphrase) &&
		a.Disabled == b.Disabled
}

// MergeCookieJar writes script cookies back into the host jar. Cookies are
// matched on key, domain and path so host-only members survive; cookies the
// script removed are dropped.
func MergeCookieJar(original types.CookieJar, updated types.CookieJar) types.CookieJar {
	out := original
	out.Extra = original.Extra.Clone()
	out.Cookies = make([]types.Cookie, 0, len(updated.Cookies))

	used := make([]bool, len(original.Cookies))
	for _, c := range updated.Cookies {
		merged := c
		for i, orig := range original.Cookies {
			if used[i] || orig.Key != c.Key || orig.Domain != c.Domain || orig.Path != c.Path {
				continue
			}
			used[i] = true
			merged = orig
			merged.Extra = orig.Extra.Clone()
			merged.Value = c.Value
			merged.Expires = c.Expires
			merged.Secure = c.Secure
			merged.HTTPOnly = c.HTTPOnly
			merged.HostOnly = c.HostOnly
			break
		}
		out.Cookies = append(out.Cookies, merged)
	}
	if len(out.Cookies) == 0 && original.Cookies == nil {
		out.Cookies = nil
	}
	return out
}

// MergeContext folds a flattened script run into the original host context.
func MergeContext(original *types.RequestContext, flat FlatContext, logs []string) *types.RequestContext {
	out := *original
	out.Extra = original.Extra.Clone()

	out.Environment = types.EnvironmentData{
		ID:    original.Environment.ID,
		Name:  original.Environment.Name,
		Data:  flat.Environment,
		Extra: original.Environment.Extra.Clone(),
	}
	out.BaseEnvironment = types.EnvironmentData{
		ID:    original.BaseEnvironment.ID,
		Name:  original.BaseEnvironment.Name,
		Data:  flat.BaseEnvironment,
		Extra: original.BaseEnvironment.Extra.Clone(),
	}
	if original.IterationData != nil {
		out.IterationData = &types.NamedData{Name: original.IterationData.Name, Data: flat.IterationData}
	}
	transientName := DefaultTransientVariablesName
	if original.TransientVariables != nil && original.TransientVariables.Name != "" {
		transientName = original.TransientVariables.Name
	}
	out.TransientVariables = &types.NamedData{Name: transientName, Data: flat.Variables}

	out.Request = MergeRequests(original.Request, flat.Request)
	out.Settings = MergeSettings(original.Settings, flat.Request)
	out.ClientCertificates = MergeClientCertificates(original.ClientCertificates, flat.Request)
	out.CookieJar = MergeCookieJar(original.CookieJar, flat.CookieJar)
	out.Globals = flat.Globals
	out.Execution = flat.Execution
	out.RequestTestResults = flat.RequestTestResults
	out.Logs = logs
	return &out
}
