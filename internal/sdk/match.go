package sdk

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AllURLs is the pattern that matches every URL.
const AllURLs = "<all_urls>"

// UrlMatchPattern matches URLs against `scheme[+scheme]://host[:port]/path`.
// The pattern is compiled once on construction and on Update.
type UrlMatchPattern struct {
	Pattern string `json:"pattern"`

	compiled *compiledPattern
}

type compiledPattern struct {
	all       bool
	protocols []string
	host      string
	port      string
	path      string
}

func NewUrlMatchPattern(pattern string) *UrlMatchPattern {
	m := &UrlMatchPattern{Pattern: pattern}
	m.compiled = compilePattern(pattern)
	return m
}

func (m *UrlMatchPattern) Kind() Kind { return KindUrlMatchPattern }

// Update replaces and recompiles the pattern.
func (m *UrlMatchPattern) Update(pattern string) {
	m.Pattern = pattern
	m.compiled = compilePattern(pattern)
}

// IsValid reports whether the pattern compiled.
func (m *UrlMatchPattern) IsValid() bool {
	return m.compiled != nil
}

// compilePattern returns nil for a pattern that cannot match anything.
func compilePattern(pattern string) *compiledPattern {
	pattern = strings.TrimSpace(pattern)
	if pattern == AllURLs {
		return &compiledPattern{all: true}
	}

	schemes, rest, ok := strings.Cut(pattern, "://")
	if !ok || schemes == "" {
		return nil
	}

	c := &compiledPattern{}
	for _, scheme := range strings.Split(strings.ToLower(schemes), "+") {
		if scheme == "" {
			return nil
		}
		if !containsString(c.protocols, scheme) {
			c.protocols = append(c.protocols, scheme)
		}
	}

	hostPort, path := rest, "*"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostPort, path = rest[:i], rest[i:]
	}
	c.host, c.port = splitHostPort(strings.ToLower(hostPort))
	if c.host == "" {
		return nil
	}
	if strings.Contains(c.host, "*") && c.host != "*" &&
		(!strings.HasPrefix(c.host, "*.") || strings.Contains(c.host[2:], "*")) {
		return nil
	}
	c.path = path
	return c
}

// GetProtocols returns the declared schemes in order without duplicates.
// It returns nil for <all_urls>, which covers every scheme.
func (m *UrlMatchPattern) GetProtocols() []string {
	if m.compiled == nil || m.compiled.all {
		return nil
	}
	return append([]string(nil), m.compiled.protocols...)
}

// Test reports whether rawURL matches. Unparsable input never matches.
func (m *UrlMatchPattern) Test(rawURL string) bool {
	if m.compiled == nil {
		return false
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}
	return m.compiled.match(u)
}

// TestUrl is Test for a parsed URL.
func (m *UrlMatchPattern) TestUrl(u *Url) bool {
	if m.compiled == nil || u == nil {
		return false
	}
	return m.compiled.match(u)
}

func (c *compiledPattern) match(u *Url) bool {
	if c.all {
		return true
	}
	if !c.matchProtocol(u.Protocol) || !c.matchHost(strings.ToLower(u.Host)) {
		return false
	}
	if c.port != "" && c.port != "*" && c.port != u.EffectivePort() {
		return false
	}
	target := u.GetPath()
	if target == "" {
		target = "/"
	}
	if q := u.GetQueryString(); q != "" {
		target += "?" + q
	}
	return wildcardMatch(c.path, target)
}

func (c *compiledPattern) matchProtocol(protocol string) bool {
	protocol = strings.ToLower(protocol)
	for _, p := range c.protocols {
		if p == "*" && (protocol == "http" || protocol == "https") {
			return true
		}
		if p == protocol {
			return true
		}
	}
	return false
}

// matchHost globs wildcard hosts. Literal hosts compare exactly so IPv6
// brackets are not read as character classes.
func (c *compiledPattern) matchHost(host string) bool {
	if !strings.Contains(c.host, "*") {
		return host == c.host
	}
	if strings.HasPrefix(c.host, "*.") && host == c.host[2:] {
		return true
	}
	ok, err := doublestar.Match(c.host, host)
	return err == nil && ok
}

// wildcardMatch matches s against pattern where '*' spans any run of
// characters, '/' included. The match is anchored at both ends.
func wildcardMatch(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case p < len(pattern) && pattern[p] == s[i]:
			p++
			i++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// UrlMatchPatternList matches when any of its patterns matches.
type UrlMatchPatternList struct {
	patterns []*UrlMatchPattern
}

func NewUrlMatchPatternList(patterns ...string) *UrlMatchPatternList {
	l := &UrlMatchPatternList{}
	for _, p := range patterns {
		l.patterns = append(l.patterns, NewUrlMatchPattern(p))
	}
	return l
}

func (l *UrlMatchPatternList) Kind() Kind { return KindUrlMatchPatternList }

func (l *UrlMatchPatternList) Add(pattern string) {
	l.patterns = append(l.patterns, NewUrlMatchPattern(pattern))
}

func (l *UrlMatchPatternList) Count() int { return len(l.patterns) }

func (l *UrlMatchPatternList) Test(rawURL string) bool {
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}
	for _, p := range l.patterns {
		if p.TestUrl(u) {
			return true
		}
	}
	return false
}
