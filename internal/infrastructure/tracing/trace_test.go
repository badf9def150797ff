package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
)

func newObservedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New("scripting", &logging.Logger{Logger: zap.New(core)}), logs
}

func TestStartSpanNesting(t *testing.T) {
	tracer, _ := newObservedTracer()
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "bridge")
	child, childCtx := tracer.StartSpan(ctx, "script.run")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Empty(t, parent.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Equal(t, parent.TraceID, GetTraceID(childCtx))
}

func TestPropagationHeaders(t *testing.T) {
	tracer, _ := newObservedTracer()
	defer tracer.Close()

	in := http.Header{}
	in.Set(TraceHeader, "trace-1")
	in.Set(SpanHeader, "span-1")
	ctx := ExtractTraceContext(context.Background(), in)

	span, ctx := tracer.StartSpan(ctx, "send")
	assert.Equal(t, TraceID("trace-1"), span.TraceID)
	assert.Equal(t, SpanID("span-1"), span.ParentID)

	out := http.Header{}
	InjectTraceContext(ctx, out)
	assert.Equal(t, "trace-1", out.Get(TraceHeader))
	assert.Equal(t, string(span.SpanID), out.Get(SpanHeader))

	empty := http.Header{}
	InjectTraceContext(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestSubmitLogsSpans(t *testing.T) {
	tracer, logs := newObservedTracer()

	ok, _ := tracer.StartSpan(context.Background(), "ok")
	ok.SetTag("outcome", "completed")
	ok.Finish()
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "failed")
	failed.SetError(errors.New("boom"))
	failed.Finish()
	tracer.Submit(failed)

	tracer.Close()
	tracer.Submit(ok)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "span completed", entries[0].Message)
	assert.Equal(t, "completed", entries[0].ContextMap()["outcome"])
	assert.Equal(t, "span completed with error", entries[1].Message)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}

func TestSubmitConcurrentWithClose(t *testing.T) {
	tracer := New("test", nil)
	span, _ := tracer.StartSpan(context.Background(), "late")
	span.Finish()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				tracer.Submit(span)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		tracer.Close()
	}()
	wg.Wait()

	tracer.Close()
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObservedTracer()

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/health", func(c *gin.Context) {
		assert.NotEmpty(t, GetTraceID(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceHeader, "incoming")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "incoming", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))

	tracer.Close()
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GET /health", entries[0].ContextMap()["operation"])
	assert.Equal(t, "204", entries[0].ContextMap()["http.status"])
}
