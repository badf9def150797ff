package sdk

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ProxyConfigOptions is the plain shape of a proxy configuration.
type ProxyConfigOptions struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Type         string   `json:"type,omitempty"`
	Match        string   `json:"match"`
	Host         string   `json:"host"`
	Port         *int     `json:"port,omitempty"`
	Tunnel       bool     `json:"tunnel"`
	Disabled     bool     `json:"disabled"`
	Authenticate bool     `json:"authenticate"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Bypass       []string `json:"bypass"`
	Protocol     string   `json:"protocol"`
}

// ProxyConfig selects a proxy for URLs matching Match, except those in Bypass.
type ProxyConfig struct {
	Property
	Type         string   `json:"type,omitempty"`
	Match        string   `json:"match"`
	Host         string   `json:"host"`
	Port         *int     `json:"port,omitempty"`
	Tunnel       bool     `json:"tunnel"`
	Authenticate bool     `json:"authenticate"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Bypass       []string `json:"bypass"`
	Protocol     string   `json:"protocol"`

	matcher *UrlMatchPattern
}

func NewProxyConfig(opts ProxyConfigOptions) *ProxyConfig {
	p := &ProxyConfig{
		Property:     Property{ID: opts.ID, Name: opts.Name, Disabled: opts.Disabled},
		Type:         opts.Type,
		Match:        opts.Match,
		Host:         opts.Host,
		Tunnel:       opts.Tunnel,
		Authenticate: opts.Authenticate,
		Username:     opts.Username,
		Password:     opts.Password,
		Bypass:       append([]string{}, opts.Bypass...),
		Protocol:     opts.Protocol,
	}
	if opts.Port != nil {
		port := *opts.Port
		p.Port = &port
	}
	return p
}

func (p *ProxyConfig) Kind() Kind { return KindProxyConfig }

// pattern returns the compiled Match, recompiling if Match was reassigned.
func (p *ProxyConfig) pattern() *UrlMatchPattern {
	if p.matcher == nil || p.matcher.Pattern != p.Match {
		p.matcher = NewUrlMatchPattern(p.Match)
	}
	return p.matcher
}

func (p *ProxyConfig) GetProtocols() []string {
	return p.pattern().GetProtocols()
}

// GetProxyUrl renders protocol//[user:pass@]host[:port].
func (p *ProxyConfig) GetProxyUrl() string {
	protocol := p.Protocol
	if protocol != "" && !strings.HasSuffix(protocol, ":") {
		protocol += ":"
	}
	port := ""
	if p.Port != nil {
		port = ":" + strconv.Itoa(*p.Port)
	}
	if p.Authenticate {
		return fmt.Sprintf("%s//%s:%s@%s%s", protocol, p.Username, p.Password, p.Host, port)
	}
	return fmt.Sprintf("%s//%s%s", protocol, p.Host, port)
}

// Test reports whether rawURL should go through this proxy. An empty URL or
// one listed in Bypass (as the full URL, its host, or host:port) never does.
func (p *ProxyConfig) Test(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	if p.bypassed(rawURL) {
		return false
	}
	return p.pattern().Test(rawURL)
}

func (p *ProxyConfig) bypassed(rawURL string) bool {
	if containsString(p.Bypass, rawURL) {
		return true
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}
	return containsString(p.Bypass, u.Host) || containsString(p.Bypass, u.GetRemote())
}

// Update overwrites the endpoint fields. Bypass and Protocol are kept.
func (p *ProxyConfig) Update(opts ProxyConfigOptions) {
	p.Host = opts.Host
	p.Match = opts.Match
	p.Port = nil
	if opts.Port != nil {
		port := *opts.Port
		p.Port = &port
	}
	p.Tunnel = opts.Tunnel
	p.Authenticate = opts.Authenticate
	p.Username = opts.Username
	p.Password = opts.Password
}

// UpdateProtocols always fails: only a bypass deny-list exists, there is no
// protocol allow-list to update.
func (p *ProxyConfig) UpdateProtocols(_ []string) error {
	return fmt.Errorf("%w: updateProtocols is not supported", ErrUnsupportedOperation)
}

// Options returns a plain snapshot of the configuration.
func (p *ProxyConfig) Options() ProxyConfigOptions {
	opts := ProxyConfigOptions{
		ID:           p.ID,
		Name:         p.Name,
		Type:         p.Type,
		Match:        p.Match,
		Host:         p.Host,
		Tunnel:       p.Tunnel,
		Disabled:     p.Disabled,
		Authenticate: p.Authenticate,
		Username:     p.Username,
		Password:     p.Password,
		Bypass:       append([]string{}, p.Bypass...),
		Protocol:     p.Protocol,
	}
	if p.Port != nil {
		port := *p.Port
		opts.Port = &port
	}
	return opts
}

func (p *ProxyConfig) ToJSON() ProxyConfigOptions { return p.Options() }

func (p *ProxyConfig) Clone() *ProxyConfig {
	return NewProxyConfig(p.Options())
}

// ProxyConfigList is an ordered list of proxy configurations.
type ProxyConfigList struct {
	list *PropertyList[*ProxyConfig]
}

func NewProxyConfigList(configs ...*ProxyConfig) *ProxyConfigList {
	return &ProxyConfigList{list: NewPropertyList(
		func(p *ProxyConfig) string { return p.Match },
		func(p *ProxyConfig) string { return p.ID },
		configs...,
	)}
}

func (l *ProxyConfigList) Kind() Kind { return KindProxyConfigList }

func (l *ProxyConfigList) Add(p *ProxyConfig) error { return l.list.Add(p) }

func (l *ProxyConfigList) Count() int { return l.list.Count() }

func (l *ProxyConfigList) Idx(i int) *ProxyConfig {
	p, _ := l.list.Idx(i)
	return p
}

// Resolve returns a snapshot of the first config, in list order, whose Test
// accepts u. It returns nil for a nil URL or when nothing matches.
func (l *ProxyConfigList) Resolve(u *Url) *ProxyConfigOptions {
	if u == nil {
		return nil
	}
	target := u.String()
	match, ok := l.list.FindFunc(func(p *ProxyConfig) bool { return p.Test(target) })
	if !ok {
		return nil
	}
	opts := match.Options()
	return &opts
}

// TransformToSdkProxyOptions converts the persisted proxy settings into a
// proxy configuration matching every URL. The https proxy wins over the http
// one; a proxy without a scheme is assumed to be https and warn is told so.
func TransformToSdkProxyOptions(httpProxy, httpsProxy string, proxyEnabled bool, noProxy string, warn LogFunc) (ProxyConfigOptions, error) {
	best := httpsProxy
	if best == "" {
		best = httpProxy
	}

	opts := ProxyConfigOptions{
		Disabled: !(proxyEnabled && strings.TrimSpace(best) != ""),
		Match:    AllURLs,
		Bypass:   splitBypass(noProxy),
		Protocol: "http:",
	}
	if best == "" {
		return opts, nil
	}

	sanitized := best
	if !strings.Contains(best, "://") {
		if warn != nil {
			warn(fmt.Sprintf("The protocol is missing and adding 'https:' protocol: %s", best))
		}
		sanitized = "https://" + best
	}

	parsed, err := url.Parse(sanitized)
	if err != nil {
		return opts, &ProxyParseError{Proxy: sanitized, Err: err}
	}
	if parsed.Hostname() == "" {
		return opts, &ProxyParseError{Proxy: sanitized, Err: fmt.Errorf("missing host")}
	}
	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return opts, &ProxyParseError{Proxy: sanitized, Err: err}
		}
		opts.Port = &port
	}

	opts.Protocol = parsed.Scheme + ":"
	opts.Host = parsed.Hostname()
	if parsed.User != nil {
		opts.Username = parsed.User.Username()
		opts.Password, _ = parsed.User.Password()
	}
	opts.Authenticate = opts.Username != "" || opts.Password != ""
	return opts, nil
}

func splitBypass(noProxy string) []string {
	out := []string{}
	for _, entry := range strings.Split(noProxy, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
