package sdk

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// Cookie is a script-side cookie.
type Cookie struct {
	ID       string `json:"id,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expires  any    `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	HostOnly bool   `json:"hostOnly,omitempty"`
}

func (c *Cookie) Kind() Kind { return KindCookie }

func (c *Cookie) String() string {
	return c.Key + "=" + c.Value
}

// matchesHost reports whether the cookie applies to host.
func (c *Cookie) matchesHost(host string) bool {
	domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	host = strings.ToLower(host)
	if domain == "" || domain == host {
		return true
	}
	return !c.HostOnly && strings.HasSuffix(host, "."+domain)
}

func cookieKey(c *Cookie) string { return c.Key }

func cookieFromHost(c types.Cookie) *Cookie {
	return &Cookie{
		ID:       c.ID,
		Key:      c.Key,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		HostOnly: c.HostOnly,
	}
}

// CookieObject is the read view of the workspace cookie jar.
type CookieObject struct {
	cookies *PropertyList[*Cookie]
	jar     *CookieJar
}

// NewCookieObject loads the host jar. The read view and Jar() share storage.
func NewCookieObject(jar types.CookieJar) *CookieObject {
	list := NewPropertyList(cookieKey, nil)
	for _, c := range jar.Cookies {
		_ = list.Add(cookieFromHost(c))
	}
	return &CookieObject{
		cookies: list,
		jar:     &CookieJar{ID: jar.ID, Name: jar.Name, cookies: list},
	}
}

func (o *CookieObject) Kind() Kind { return KindCookieList }

// Get returns the value of the first cookie named key, or nil.
func (o *CookieObject) Get(key string) any {
	if c, ok := o.cookies.Find(key, false); ok {
		return c.Value
	}
	return nil
}

func (o *CookieObject) Has(key string) bool { return o.cookies.Has(key, false) }

func (o *CookieObject) Count() int { return o.cookies.Count() }

// ToObject returns key -> value for every cookie; later duplicates win.
func (o *CookieObject) ToObject() map[string]any {
	out := map[string]any{}
	o.cookies.Each(func(c *Cookie) { out[c.Key] = c.Value })
	return out
}

func (o *CookieObject) Jar() *CookieJar { return o.jar }

// CookieCallback receives (error, result) the way script jar callbacks do.
type CookieCallback func(err any, result any)

// CookieJar mutates cookies scoped by URL host.
type CookieJar struct {
	ID   string
	Name string

	cookies *PropertyList[*Cookie]
}

func (j *CookieJar) Kind() Kind { return KindCookieJar }

func callback(cb []CookieCallback, err error, result any) {
	if len(cb) == 0 || cb[0] == nil {
		return
	}
	if err != nil {
		cb[0](err.Error(), nil)
		return
	}
	cb[0](nil, result)
}

func hostOf(rawURL string) (string, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidArgument, rawURL)
	}
	return u.Host, nil
}

// Set stores a cookie for rawURL's host. value is a string or a cookie object.
func (j *CookieJar) Set(rawURL, name string, value any, cb ...CookieCallback) {
	host, err := hostOf(rawURL)
	if err != nil {
		callback(cb, err, nil)
		return
	}

	c := &Cookie{Key: name, Domain: host, Path: "/"}
	switch v := value.(type) {
	case map[string]any:
		c.Value = stringField(v, "value")
		if d := stringField(v, "domain"); d != "" {
			c.Domain = d
		}
		if p := stringField(v, "path"); p != "" {
			c.Path = p
		}
		c.Expires = v["expires"]
		c.Secure = boolField(v, "secure")
		c.HTTPOnly = boolField(v, "httpOnly")
		c.HostOnly = boolField(v, "hostOnly")
	default:
		c.Value = stringify(v)
	}

	if existing, ok := j.cookies.FindFunc(func(e *Cookie) bool {
		return e.Key == c.Key && e.matchesHost(host) && (e.Path == c.Path || e.Path == "")
	}); ok {
		c.ID = existing.ID
		*existing = *c
	} else {
		_ = j.cookies.Add(c)
	}
	callback(cb, nil, c)
}

// Get returns the value of cookie name for rawURL's host.
func (j *CookieJar) Get(rawURL, name string, cb ...CookieCallback) {
	host, err := hostOf(rawURL)
	if err != nil {
		callback(cb, err, nil)
		return
	}
	c, ok := j.cookies.FindFunc(func(c *Cookie) bool { return c.Key == name && c.matchesHost(host) })
	if !ok {
		callback(cb, nil, nil)
		return
	}
	callback(cb, nil, c.Value)
}

// GetAll returns every cookie applying to rawURL's host.
func (j *CookieJar) GetAll(rawURL string, cb ...CookieCallback) {
	host, err := hostOf(rawURL)
	if err != nil {
		callback(cb, err, nil)
		return
	}
	var out []*Cookie
	j.cookies.Each(func(c *Cookie) {
		if c.matchesHost(host) {
			copied := *c
			out = append(out, &copied)
		}
	})
	callback(cb, nil, out)
}

// Unset removes cookie name for rawURL's host.
func (j *CookieJar) Unset(rawURL, name string, cb ...CookieCallback) {
	host, err := hostOf(rawURL)
	if err != nil {
		callback(cb, err, nil)
		return
	}
	j.cookies.RemoveFunc(func(c *Cookie) bool { return c.Key == name && c.matchesHost(host) })
	callback(cb, nil, nil)
}

// Clear removes every cookie for rawURL's host.
func (j *CookieJar) Clear(rawURL string, cb ...CookieCallback) {
	host, err := hostOf(rawURL)
	if err != nil {
		callback(cb, err, nil)
		return
	}
	j.cookies.RemoveFunc(func(c *Cookie) bool { return c.matchesHost(host) })
	callback(cb, nil, nil)
}

// ToInsomniaCookieJar converts the jar back into the host shape.
func (j *CookieJar) ToInsomniaCookieJar() types.CookieJar {
	out := types.CookieJar{ID: j.ID, Name: j.Name, Cookies: []types.Cookie{}}
	j.cookies.Each(func(c *Cookie) {
		out.Cookies = append(out.Cookies, types.Cookie{
			ID:       c.ID,
			Key:      c.Key,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			HostOnly: c.HostOnly,
		})
	})
	return out
}
