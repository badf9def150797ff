package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/tracing"
)

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.POST("/v1/scripts/run", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func serve(router *gin.Engine, method, remote string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/v1/scripts/run", nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantCORS   bool
	}{
		{"run with origin", http.MethodPost, "http://localhost:3000", http.StatusOK, true},
		{"preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, true},
		{"no origin", http.MethodPost, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			w := serve(router, tt.method, "10.0.0.1:1234", header)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORS {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesTraceHeaders(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	header := http.Header{}
	header.Set("Origin", "http://localhost:3000")
	w := serve(router, http.MethodPost, "10.0.0.1:1234", header)

	exposed := strings.ToLower(w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, exposed, strings.ToLower(tracing.TraceHeader))
	assert.Contains(t, exposed, strings.ToLower(tracing.SpanHeader))
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		w := serve(router, http.MethodPost, "192.168.1.1:1234", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := serve(router, http.MethodPost, "192.168.1.1:1234", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "192.168.1.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "192.168.1.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "192.168.1.1:1234", nil).Code)
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "192.168.1.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "192.168.1.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "192.168.1.3:1234", nil).Code)
}

func TestDefaults(t *testing.T) {
	cors := DefaultCORSConfig()
	assert.Contains(t, cors.AllowOrigins, "*")
	assert.Contains(t, cors.AllowMethods, "POST")
	assert.Equal(t, 12*time.Hour, cors.MaxAge)

	rate := DefaultRateLimitConfig()
	assert.Equal(t, 100, rate.RequestsPerSecond)
	assert.Equal(t, 200, rate.Burst)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serve(router, http.MethodPost, "192.168.1.1:1234", nil)
	}
}
