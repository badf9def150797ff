package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		host map[string]any
	}{
		{"empty", map[string]any{}},
		{"none", map[string]any{"type": "none"}},
		{"basic", map[string]any{"type": "basic", "username": "u", "password": "p", "disabled": false, "useISO88591": true}},
		{"bearer", map[string]any{"type": "bearer", "token": "t", "prefix": "Bearer"}},
		{"apikey in query", map[string]any{"type": "apikey", "key": "x-api-key", "value": "secret", "addTo": "queryParams"}},
		{"iam", map[string]any{"type": "iam", "accessKeyId": "AK", "secretAccessKey": "SK", "region": "us-east-1"}},
		{"unknown type", map[string]any{"type": "custom", "foo": "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := ToScriptAuth(tt.host)
			assert.Equal(t, tt.host, MergeAuth(tt.host, auth))
		})
	}
}

func TestToScriptAuthRenames(t *testing.T) {
	auth := ToScriptAuth(map[string]any{"type": "iam", "accessKeyId": "AK", "secretAccessKey": "SK", "region": "us-east-1"})
	assert.Equal(t, AuthAWSV4, auth.Type)
	assert.Equal(t, "AK", auth.Get("accessKey"))
	assert.Equal(t, "SK", auth.Get("secretKey"))
	assert.Equal(t, []AuthParam{
		{Key: "accessKey", Value: "AK"},
		{Key: "secretKey", Value: "SK"},
		{Key: "region", Value: "us-east-1"},
	}, auth.Params(AuthAWSV4))

	apiKey := ToScriptAuth(map[string]any{"type": "apikey", "key": "k", "value": "v", "addTo": "queryParams"})
	assert.Equal(t, "query", apiKey.Get("in"))

	assert.Equal(t, AuthNoAuth, ToScriptAuth(nil).Type)
}

func TestMergeAuthChanges(t *testing.T) {
	original := map[string]any{"type": "basic", "username": "u", "password": "p", "useISO88591": true}

	auth := ToScriptAuth(original)
	require.NoError(t, auth.Update(map[string]any{"password": "changed"}))
	assert.Equal(t, map[string]any{
		"type":        "basic",
		"username":    "u",
		"password":    "changed",
		"useISO88591": true,
	}, MergeAuth(original, auth))

	require.NoError(t, auth.Use(AuthBearer, []any{map[string]any{"key": "token", "value": "abc"}}))
	assert.Equal(t, map[string]any{"type": "bearer", "token": "abc"}, MergeAuth(original, auth))

	require.NoError(t, auth.Use(AuthNoAuth))
	assert.Equal(t, map[string]any{}, MergeAuth(original, auth))
}

func TestRequestAuthUse(t *testing.T) {
	auth := NewRequestAuth("", nil)
	assert.Equal(t, AuthNoAuth, auth.Current())

	assert.ErrorIs(t, auth.Use("kerberos"), ErrInvalidArgument)

	require.NoError(t, auth.Use(AuthBasic, map[string]any{"username": "u"}))
	assert.Equal(t, map[string]any{"username": "u"}, auth.Parameters())

	json := auth.ToJSON()
	assert.Equal(t, AuthBasic, json["type"])
	assert.Equal(t, []map[string]any{{"key": "username", "value": "u"}}, json[AuthBasic])

	auth.Clear(AuthBasic)
	assert.Empty(t, auth.Parameters())
}
