package types

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCertificateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"absent fields stay absent", `{"_id":"crt_1","host":"a.test","cert":"/c.pem","key":"/k.pem","disabled":false}`},
		{"explicit nulls stay null", `{"_id":"crt_2","host":"b.test","cert":null,"key":null,"pfx":"/c.pfx","passphrase":null,"disabled":true}`},
		{"unknown members kept", `{"host":"c.test","pfx":"/c.pfx","disabled":false,"created":1700000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cert ClientCertificate
			require.NoError(t, sonic.Unmarshal([]byte(tt.input), &cert))

			out, err := sonic.Marshal(cert)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestClientCertificateSetOverridesNull(t *testing.T) {
	var cert ClientCertificate
	require.NoError(t, sonic.Unmarshal([]byte(`{"host":"a.test","pfx":null,"disabled":false}`), &cert))
	assert.Nil(t, cert.Pfx)

	cert.Pfx = Ptr("/new.pfx")
	out, err := sonic.Marshal(cert)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"a.test","pfx":"/new.pfx","disabled":false}`, string(out))
}
