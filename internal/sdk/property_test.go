package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id, key string
}

func newItemList(items ...*item) *PropertyList[*item] {
	return NewPropertyList(
		func(i *item) string { return i.key },
		func(i *item) string { return i.id },
		items...,
	)
}

func TestPropertyList(t *testing.T) {
	list := newItemList(&item{id: "1", key: "a"}, &item{id: "2", key: "B"})

	require.NoError(t, list.Add(&item{key: "a"}))
	require.NoError(t, list.Add(&item{key: "c"}))
	assert.ErrorIs(t, list.Add(&item{id: "1", key: "z"}), ErrDuplicateID)
	assert.Equal(t, 4, list.Count())

	found, ok := list.Find("b", true)
	require.True(t, ok)
	assert.Equal(t, "2", found.id)
	assert.False(t, list.Has("b", false))
	assert.Equal(t, 1, list.IndexOf("B", false))
	assert.Equal(t, -1, list.IndexOf("missing", true))

	assert.True(t, list.Upsert(&item{id: "3", key: "c"}))
	last, _ := list.Idx(3)
	assert.Equal(t, "3", last.id)
	_, ok = list.Idx(10)
	assert.False(t, ok)

	assert.Equal(t, 2, list.Remove("a", false))
	assert.Equal(t, 2, list.Count())

	clone := list.Clone(func(i *item) *item { c := *i; return &c })
	clone.Clear()
	assert.Equal(t, 2, list.Count())
	assert.Len(t, list.Filter(func(i *item) bool { return i.id != "" }), 2)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		value any
		want  Kind
	}{
		{&Header{}, KindHeader},
		{NewHeaderList(), KindHeaderList},
		{MustParseURL("http://a.test"), KindUrl},
		{NewUrlMatchPattern(AllURLs), KindUrlMatchPattern},
		{NewProxyConfig(ProxyConfigOptions{}), KindProxyConfig},
		{NewRequestAuth("", nil), KindRequestAuth},
		{&Certificate{}, KindCertificate},
		{NewEnvironment("e", nil), KindEnvironment},
		{"plain string", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.value))
			assert.Equal(t, tt.want != KindUnknown, Is(tt.value, tt.want))
		})
	}
}
