package sdk

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/saintfish/chardet"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// CompressionZip marks a host response body stored gzip-compressed.
const CompressionZip = "zip"

// Response is the script-side response. Host bodies stay on disk until
// the script reads them.
type Response struct {
	ID              string      `json:"id,omitempty"`
	Code            int         `json:"code"`
	Status          string      `json:"status"`
	Headers         *HeaderList `json:"header" js:"headers"`
	ResponseTime    float64     `json:"responseTime"`
	OriginalRequest *Request    `json:"originalRequest,omitempty"`

	mu          sync.Mutex
	body        []byte
	bodyPath    string
	compression string
	loaded      bool
	loadErr     error
}

// NewResponse builds a response around an in-memory body.
func NewResponse(code int, status string, headers *HeaderList, body []byte, responseTime float64, req *Request) *Response {
	if headers == nil {
		headers = NewHeaderList()
	}
	return &Response{
		Code:            code,
		Status:          status,
		Headers:         headers,
		ResponseTime:    responseTime,
		OriginalRequest: req,
		body:            body,
		loaded:          true,
	}
}

// ToScriptResponse wraps a host response. No IO happens until the body is read.
func ToScriptResponse(req *Request, host *types.Response) *Response {
	headers := NewHeaderList()
	for _, h := range host.Headers {
		_ = headers.Add(&Header{Key: h.Name, Value: h.Value})
	}
	r := &Response{
		ID:              host.ID,
		Code:            host.StatusCode,
		Status:          host.StatusMessage,
		Headers:         headers,
		ResponseTime:    host.ElapsedTime,
		OriginalRequest: req,
		bodyPath:        host.BodyPath,
	}
	if host.BodyCompression != nil {
		r.compression = *host.BodyCompression
	}
	if host.BodyPath == "" {
		r.loaded = true
	}
	return r
}

func (r *Response) Kind() Kind { return KindResponse }

// Body returns the raw body bytes, reading them from disk on first use.
func (r *Response) Body() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		r.body, r.loadErr = ReadBodyFromPath(r.bodyPath, r.compression)
		r.loaded = true
	}
	return r.body, r.loadErr
}

// ReadBodyFromPath reads a host response body, decompressing "zip" bodies.
func ReadBodyFromPath(path, compression string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if compression == CompressionZip {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress response body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (r *Response) Text() (string, error) {
	body, err := r.Body()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON parses the body. An empty body yields nil.
func (r *Response) JSON() (any, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var out any
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return out, nil
}

// ResponseSize is the byte size of a response.
type ResponseSize struct {
	Body   int `json:"body"`
	Header int `json:"header"`
	Total  int `json:"total"`
}

func (r *Response) Size() (ResponseSize, error) {
	body, err := r.Body()
	if err != nil {
		return ResponseSize{}, err
	}
	size := ResponseSize{Body: len(body), Header: len(r.Headers.String())}
	size.Total = size.Body + size.Header
	return size, nil
}

// ContentInfo describes the body's media type.
type ContentInfo struct {
	Charset       string `json:"charset"`
	ContentType   string `json:"contentType"`
	FileExtension string `json:"fileExtension"`
	FileName      string `json:"fileName"`
	MimeFormat    string `json:"mimeFormat"`
	MimeType      string `json:"mimeType"`
}

// ContentInfo uses the Content-Type header and falls back to sniffing the body.
func (r *Response) ContentInfo() (ContentInfo, error) {
	body, err := r.Body()
	if err != nil {
		return ContentInfo{}, err
	}

	contentType, _ := r.Headers.Get("Content-Type").(string)
	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}

	info := ContentInfo{ContentType: contentType}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	info.MimeType = mediaType
	info.MimeFormat = mimeFormat(mediaType)
	info.Charset = params["charset"]
	if info.Charset == "" && len(body) > 0 {
		if best, err := chardet.NewTextDetector().DetectBest(body); err == nil {
			info.Charset = best.Charset
		}
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		info.FileExtension = m.Extension()
	}

	info.FileName = "response" + info.FileExtension
	if disposition, _ := r.Headers.Get("Content-Disposition").(string); disposition != "" {
		if _, dparams, err := mime.ParseMediaType(disposition); err == nil && dparams["filename"] != "" {
			info.FileName = dparams["filename"]
		}
	}
	return info, nil
}

func mimeFormat(mediaType string) string {
	switch {
	case strings.HasSuffix(mediaType, "json"):
		return "json"
	case strings.HasSuffix(mediaType, "xml"):
		return "xml"
	case mediaType == "text/html":
		return "html"
	case strings.HasPrefix(mediaType, "text/"):
		return "text"
	case strings.HasPrefix(mediaType, "image/"):
		return "image"
	case strings.HasPrefix(mediaType, "audio/"):
		return "audio"
	case strings.HasPrefix(mediaType, "video/"):
		return "video"
	default:
		return "raw"
	}
}

// ResponseJSON is the plain snapshot of a Response.
type ResponseJSON struct {
	ID           string   `json:"id,omitempty"`
	Code         int      `json:"code"`
	Status       string   `json:"status"`
	Header       []Header `json:"header"`
	ResponseTime float64  `json:"responseTime"`
}

func (r *Response) ToJSON() ResponseJSON {
	return ResponseJSON{
		ID:           r.ID,
		Code:         r.Code,
		Status:       r.Status,
		Header:       r.Headers.snapshot(),
		ResponseTime: r.ResponseTime,
	}
}
