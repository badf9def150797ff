package sdk

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// CertificateSource points at certificate material on disk.
type CertificateSource struct {
	Src string `json:"src"`
}

// Certificate is the client certificate descriptor attached to a request.
type Certificate struct {
	Property
	Matches    []string           `json:"matches,omitempty"`
	Key        *CertificateSource `json:"key,omitempty"`
	Cert       *CertificateSource `json:"cert,omitempty"`
	Pfx        *CertificateSource `json:"pfx,omitempty"`
	Passphrase *string            `json:"passphrase,omitempty"`
}

func (c *Certificate) Kind() Kind { return KindCertificate }

// CanApplyTo reports whether the certificate is enabled and matches rawURL.
func (c *Certificate) CanApplyTo(rawURL string) bool {
	if c.Disabled {
		return false
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}
	for _, host := range c.Matches {
		if certHostMatches(host, u) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether the descriptor stands for "no certificate".
func (c *Certificate) IsPlaceholder() bool {
	return len(c.Matches) == 0 && c.Key == nil && c.Cert == nil && c.Pfx == nil
}

func (c *Certificate) Clone() *Certificate {
	out := *c
	out.Matches = append([]string(nil), c.Matches...)
	if c.Key != nil {
		key := *c.Key
		out.Key = &key
	}
	if c.Cert != nil {
		cert := *c.Cert
		out.Cert = &cert
	}
	if c.Pfx != nil {
		pfx := *c.Pfx
		out.Pfx = &pfx
	}
	if c.Passphrase != nil {
		pass := *c.Passphrase
		out.Passphrase = &pass
	}
	return &out
}

const firstCertificateName = "The first certificate from Settings"

// certificateFor builds the descriptor for the first host certificate
// matching baseURL, or a disabled placeholder when none does.
func certificateFor(certs []types.ClientCertificate, baseURL string) *Certificate {
	filtered := FilterClientCertificates(certs, baseURL)
	if len(filtered) == 0 {
		return &Certificate{Property: Property{Disabled: true}}
	}
	first := filtered[0]
	c := &Certificate{
		Property: Property{Name: firstCertificateName, Disabled: first.Disabled},
		Matches:  []string{first.Host},
		Key:      &CertificateSource{Src: ptrValue(first.Key)},
		Cert:     &CertificateSource{Src: ptrValue(first.Cert)},
		Pfx:      &CertificateSource{Src: ptrValue(first.Pfx)},
	}
	if first.Passphrase != nil && *first.Passphrase != "" {
		pass := *first.Passphrase
		c.Passphrase = &pass
	}
	return c
}

// FilterClientCertificates returns the certificates whose host glob matches
// rawURL. A certificate host with a port only matches that port.
func FilterClientCertificates(certs []types.ClientCertificate, rawURL string) []types.ClientCertificate {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil
	}
	var out []types.ClientCertificate
	for _, c := range certs {
		if certHostMatches(c.Host, u) {
			out = append(out, c)
		}
	}
	return out
}

func certHostMatches(certHost string, u *Url) bool {
	certHost = strings.TrimSpace(strings.ToLower(certHost))
	if certHost == "" {
		return false
	}
	if i := strings.Index(certHost, "://"); i >= 0 {
		certHost = certHost[i+3:]
	}
	certHost = strings.TrimRight(certHost, "/")

	host, port := splitHostPort(certHost)
	if port != "" && port != "*" && port != u.EffectivePort() {
		return false
	}
	ok, err := doublestar.Match(host, strings.ToLower(u.Host))
	return err == nil && ok
}
