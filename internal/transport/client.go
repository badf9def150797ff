package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/utils"
)

// Config configures a Client
type Config struct {
	Timeout           time.Duration
	Retries           int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64 // 0 means unlimited
	UserAgent         string
	Logger            *logging.Logger
	Metrics           *monitoring.Metrics
	Tracer            *tracing.Tracer
}

// DefaultConfig returns the transport defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 30 * time.Second,
		UserAgent:    "insomnia-scripting/1.0",
	}
}

// Client sends script requests with rate limiting and a circuit breaker per
// host. Resty clients are built per proxy and certificate combination and
// share one cookie jar.
type Client struct {
	config   Config
	log      *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	limiter  *rate.Limiter
	breakers *resilience.Group
	jar      http.CookieJar

	mu      sync.Mutex
	clients map[string]*resty.Client
}

// NewClient creates a production-ready sender
func NewClient(config Config) (*Client, error) {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RetryWaitMin <= 0 {
		config.RetryWaitMin = defaults.RetryWaitMin
	}
	if config.RetryWaitMax <= 0 {
		config.RetryWaitMax = defaults.RetryWaitMax
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		config:  config,
		log:     logging.OrNop(config.Logger).Component("transport"),
		metrics: config.Metrics,
		tracer:  config.Tracer,
		limiter: rate.NewLimiter(rate.Inf, 0),
		jar:     jar,
		clients: make(map[string]*resty.Client),
	}
	c.SetRateLimit(config.RequestsPerSecond)

	c.breakers = resilience.NewGroup("transport", resilience.Settings{
		Probes:      5,
		Window:      60 * time.Second,
		Cooldown:    30 * time.Second,
		ReadyToTrip: resilience.ShouldTrip,
		IsFailure:   resilience.IsHostFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// BreakerStates reports the breaker state per host
func (c *Client) BreakerStates() map[string]resilience.State {
	return c.breakers.States()
}

// wait blocks on the rate limiter
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	limiter := c.limiter
	c.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

// restyFor returns the resty client for a proxy and certificate set,
// creating it on first use.
func (c *Client) restyFor(proxyURL string, certs []loadedCertificate) *resty.Client {
	keys := make([]string, 0, len(certs)+1)
	keys = append(keys, "proxy="+proxyURL)
	for _, cert := range certs {
		keys = append(keys, "cert="+cert.key)
	}
	// Certificate ids embed passphrases, so only their hash is kept.
	key := utils.DefaultHasher().HashFields(keys...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.clients[key]; ok {
		return rc
	}

	// retryablehttp supplies the pooled transport and the retry policy.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	rc := resty.New()
	rc.SetTransport(retryClient.HTTPClient.Transport).
		SetTimeout(c.config.Timeout).
		SetRetryCount(c.config.Retries).
		SetRetryWaitTime(c.config.RetryWaitMin).
		SetRetryMaxWaitTime(c.config.RetryWaitMax).
		SetHeader("User-Agent", c.config.UserAgent).
		SetCookieJar(c.jar).
		AddRetryCondition(retryPolicy)

	if proxyURL != "" {
		rc.SetProxy(proxyURL)
	}
	if len(certs) > 0 {
		tlsCerts := make([]tls.Certificate, len(certs))
		for i, cert := range certs {
			tlsCerts[i] = cert.cert
		}
		rc.SetCertificates(tlsCerts...)
	}

	c.clients[key] = rc
	return rc
}

// retryPolicy defers to retryablehttp's policy: connection errors and 5xx
// (except 501) are retried, TLS and redirect loop errors are not.
func retryPolicy(r *resty.Response, err error) bool {
	ctx := context.Background()
	var raw *http.Response
	if r != nil {
		raw = r.RawResponse
		if r.Request != nil && r.Request.Context() != nil {
			ctx = r.Request.Context()
		}
	}
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
	return retry
}
