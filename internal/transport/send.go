package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// ErrHostUnavailable is returned while a host's circuit breaker is open.
var ErrHostUnavailable = errors.New("external service unavailable: circuit breaker open")

// Send performs req using the proxy and certificates in opts. It satisfies
// sandbox.Sender.
func (c *Client) Send(ctx context.Context, req *sdk.Request, opts sdk.SendOptions) (resp *sdk.Response, err error) {
	if req == nil || req.Url == nil {
		return nil, fmt.Errorf("%w: request has no url", sdk.ErrInvalidArgument)
	}
	target := targetURL(req.Url)
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}

	proxyURL, err := ProxyFor(opts.Settings, target)
	if err != nil {
		return nil, err
	}
	certs, err := loadCertificates(opts.ClientCertificates, target)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if c.tracer != nil {
		var span *tracing.Span
		span, ctx = c.tracer.StartSpan(ctx, "transport.send")
		span.SetTag("http.method", method)
		span.SetTag("http.url", target)
		defer func() {
			if err != nil {
				span.SetError(err)
			} else {
				span.SetStatus(resp.Code)
			}
			span.Finish()
			c.tracer.Submit(span)
		}()
	}

	r := c.restyFor(proxyURL, certs).R().SetContext(ctx)
	if err := prepare(r, req); err != nil {
		return nil, err
	}
	tracing.InjectTraceContext(ctx, r.Header)

	host := hostKey(req.Url)
	start := time.Now()
	raw, err := resilience.Do(c.breakers.Get(host), func() (*resty.Response, error) {
		return r.Execute(method, target)
	})
	elapsed := time.Since(start)

	if err != nil {
		c.record(method, "error", elapsed)
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrProbeLimit) {
			c.log.Warn("send rejected by open breaker", zap.String("host", host))
			return nil, fmt.Errorf("%w: %s", ErrHostUnavailable, host)
		}
		c.log.Debug("send failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, err
	}

	c.record(method, strconv.Itoa(raw.StatusCode()), elapsed)
	c.log.Debug("send completed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", raw.StatusCode()),
		zap.Duration("duration", elapsed),
	)
	return toResponse(raw, req), nil
}

func (c *Client) record(method, status string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordSend(method, status, d)
	}
}

// targetURL renders u, assuming http when the protocol is missing.
func targetURL(u *sdk.Url) string {
	s := u.String()
	if u.Protocol == "" {
		s = "http://" + s
	}
	return s
}

func hostKey(u *sdk.Url) string {
	if u.Host == "" {
		return "unknown"
	}
	return u.GetRemote()
}

// prepare copies headers, auth and body onto r.
func prepare(r *resty.Request, req *sdk.Request) error {
	if req.Headers != nil {
		for _, h := range req.Headers.All() {
			if h.Disabled || h.Key == "" {
				continue
			}
			r.Header.Add(h.Key, h.Value)
		}
	}
	applyAuth(r, req.Auth)
	return applyBody(r, req.Body)
}

func applyAuth(r *resty.Request, auth *sdk.RequestAuth) {
	if auth == nil {
		return
	}
	param := func(key string) string {
		v := auth.Get(key)
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	switch auth.Type {
	case sdk.AuthBasic:
		r.SetBasicAuth(param("username"), param("password"))
	case sdk.AuthBearer:
		prefix := param("prefix")
		if prefix == "" {
			prefix = "Bearer"
		}
		r.SetHeader("Authorization", prefix+" "+param("token"))
	case sdk.AuthAPIKey:
		key := param("key")
		if key == "" {
			return
		}
		if param("in") == "queryParams" {
			r.SetQueryParam(key, param("value"))
		} else {
			r.SetHeader(key, param("value"))
		}
	}
}

func applyBody(r *resty.Request, body *sdk.RequestBody) error {
	if body == nil || body.IsDisabled() || body.IsEmpty() {
		return nil
	}

	switch p := body.Payload().(type) {
	case sdk.RawPayload:
		r.SetBody(p.Raw)
	case sdk.GraphQLPayload:
		if r.Header.Get("Content-Type") == "" {
			r.SetHeader("Content-Type", sdk.MimeJSON)
		}
		r.SetBody(p.String())
	case sdk.URLEncodedPayload:
		values := url.Values{}
		for _, param := range p.Params {
			if !param.Disabled {
				values.Add(param.Key, param.Value)
			}
		}
		r.SetFormDataFromValues(values)
	case sdk.FormDataPayload:
		fields := map[string]string{}
		for _, param := range p.Params {
			if param.Disabled {
				continue
			}
			if param.Type == "file" {
				r.SetFile(param.Key, param.Src)
				continue
			}
			fields[param.Key] = param.Value
		}
		r.SetMultipartFormData(fields)
	case sdk.FilePayload:
		data, err := os.ReadFile(p.Src)
		if err != nil {
			return fmt.Errorf("failed to read request body file: %w", err)
		}
		if r.Header.Get("Content-Type") == "" {
			r.SetHeader("Content-Type", sdk.MimeOctetStream)
		}
		r.SetBody(data)
	}
	return nil
}

// toResponse converts a resty response into the script response model.
func toResponse(resp *resty.Response, req *sdk.Request) *sdk.Response {
	headers := sdk.NewHeaderList()
	for key, values := range resp.Header() {
		for _, v := range values {
			_ = headers.Add(&sdk.Header{Key: key, Value: v})
		}
	}

	code := resp.StatusCode()
	status := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(code)))
	elapsed := float64(resp.Time()) / float64(time.Millisecond)
	return sdk.NewResponse(code, status, headers, resp.Body(), elapsed, req)
}

// ProxyFor returns the proxy URL settings select for target, or "" for a
// direct connection.
func ProxyFor(settings types.Settings, target string) (string, error) {
	opts, err := sdk.TransformToSdkProxyOptions(settings.HTTPProxy, settings.HTTPSProxy, settings.ProxyEnabled, settings.NoProxy, nil)
	if err != nil {
		return "", err
	}
	proxy := sdk.NewProxyConfig(opts)
	if proxy.Disabled || proxy.Host == "" || !proxy.Test(target) {
		return "", nil
	}
	return proxy.GetProxyUrl(), nil
}
