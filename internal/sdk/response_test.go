package sdk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}

func TestToScriptResponseCompressedBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.gz")
	writeGzip(t, path, []byte(`{"ok":true}`))

	resp := ToScriptResponse(nil, &types.Response{
		ID:              "res_1",
		StatusCode:      200,
		StatusMessage:   "OK",
		Headers:         []types.ResponseHeader{{Name: "Content-Type", Value: "application/json; charset=utf-8"}},
		BodyPath:        path,
		BodyCompression: types.Ptr(CompressionZip),
		ElapsedTime:     12.5,
	})

	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "application/json; charset=utf-8", resp.Headers.Get("content-type"))

	body, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, body)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	info, err := resp.ContentInfo()
	require.NoError(t, err)
	assert.Equal(t, ContentInfo{
		Charset:       "utf-8",
		ContentType:   "application/json; charset=utf-8",
		FileExtension: ".json",
		FileName:      "response.json",
		MimeFormat:    "json",
		MimeType:      "application/json",
	}, info)

	size, err := resp.Size()
	require.NoError(t, err)
	assert.Equal(t, len(`{"ok":true}`), size.Body)
	assert.Equal(t, size.Body+size.Header, size.Total)
}

func TestToScriptResponseIsLazy(t *testing.T) {
	resp := ToScriptResponse(nil, &types.Response{
		StatusCode: 404,
		BodyPath:   filepath.Join(t.TempDir(), "missing"),
	})
	assert.Equal(t, 404, resp.Code)

	_, err := resp.Text()
	assert.Error(t, err)
}

func TestResponseContentInfoFallbacks(t *testing.T) {
	headers := NewHeaderList(&Header{Key: "Content-Disposition", Value: `attachment; filename="report.txt"`})
	resp := NewResponse(200, "OK", headers, []byte("hello plain world"), 1, nil)

	info, err := resp.ContentInfo()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.MimeType)
	assert.Equal(t, "text", info.MimeFormat)
	assert.Equal(t, "report.txt", info.FileName)
	assert.NotEmpty(t, info.Charset)
}

func TestResponseEmptyJSON(t *testing.T) {
	resp := NewResponse(204, "No Content", nil, nil, 0, nil)

	body, err := resp.JSON()
	require.NoError(t, err)
	assert.Nil(t, body)

	_, err = NewResponse(200, "OK", nil, []byte("not json"), 0, nil).JSON()
	assert.Error(t, err)
}
