package transport

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// loadedCertificate is a client certificate read from disk. key identifies
// its source files.
type loadedCertificate struct {
	key  string
	cert tls.Certificate
}

// loadCertificates reads the enabled certificates whose host matches target.
func loadCertificates(certs []types.ClientCertificate, target string) ([]loadedCertificate, error) {
	var out []loadedCertificate
	for _, c := range sdk.FilterClientCertificates(certs, target) {
		if c.Disabled {
			continue
		}
		loaded, ok, err := loadCertificate(c)
		if err != nil {
			return nil, fmt.Errorf("client certificate for %s: %w", c.Host, err)
		}
		if ok {
			out = append(out, loaded)
		}
	}
	return out, nil
}

func loadCertificate(c types.ClientCertificate) (loadedCertificate, bool, error) {
	pfx, cert, key := deref(c.Pfx), deref(c.Cert), deref(c.Key)
	id := strings.Join([]string{c.Host, pfx, cert, key, deref(c.Passphrase)}, ";")

	switch {
	case pfx != "":
		data, err := os.ReadFile(pfx)
		if err != nil {
			return loadedCertificate{}, false, err
		}
		pair, err := pfxKeyPair(data, deref(c.Passphrase))
		if err != nil {
			return loadedCertificate{}, false, err
		}
		return loadedCertificate{key: id, cert: pair}, true, nil
	case cert != "" && key != "":
		pair, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return loadedCertificate{}, false, err
		}
		return loadedCertificate{key: id, cert: pair}, true, nil
	}
	return loadedCertificate{}, false, nil
}

// pfxKeyPair decodes a PKCS#12 bundle into a key pair.
func pfxKeyPair(data []byte, passphrase string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to decode pfx: %w", err)
	}
	var encoded []byte
	for _, b := range blocks {
		encoded = append(encoded, pem.EncodeToMemory(b)...)
	}
	return tls.X509KeyPair(encoded, encoded)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
