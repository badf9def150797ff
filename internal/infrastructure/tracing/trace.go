package tracing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/id"
)

// Propagation headers.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Span represents a single operation in a trace: a bridge request, a
// script run, or a request a script sent.
type Span struct {
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Name       string
	Service    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int

	mu sync.Mutex
}

// Tracer logs finished spans through a buffered collector.
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New creates a new tracer instance
func New(service string, logger *logging.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logging.OrNop(logger).Component("tracing"),
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}

	go t.collectSpans()

	return t
}

// StartSpan creates a span that is a child of the span in ctx, if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(id.Default().GenerateString())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.Default().GenerateString()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, spanIDKey, span.SpanID)

	return span, newCtx
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Error = err
	if s.StatusCode == 0 {
		s.StatusCode = http.StatusInternalServerError
	}
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCode = code
}

func (t *Tracer) collectSpans() {
	defer close(t.done)
	for span := range t.spans {
		t.processSpan(span)
	}
}

func (t *Tracer) processSpan(span *Span) {
	span.mu.Lock()
	defer span.mu.Unlock()

	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", span.Service),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	if span.StatusCode != 0 {
		fields = append(fields, zap.Int("status", span.StatusCode))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("span completed with error", fields...)
	} else {
		t.logger.Debug("span completed", fields...)
	}
}

// Submit sends a finished span to the collector. Spans are dropped when the
// buffer is full or the tracer is closed.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// Close drains the collector and stops it.
func (t *Tracer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.spans)
	t.mu.Unlock()

	<-t.done
}

// ExtractTraceContext returns a context carrying the trace headers of h.
func ExtractTraceContext(ctx context.Context, h http.Header) context.Context {
	if traceID := h.Get(TraceHeader); traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, TraceID(traceID))
	}
	if spanID := h.Get(SpanHeader); spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, SpanID(spanID))
	}
	return ctx
}

// InjectTraceContext writes the trace context of ctx into h.
func InjectTraceContext(ctx context.Context, h http.Header) {
	if traceID := GetTraceID(ctx); traceID != "" {
		h.Set(TraceHeader, string(traceID))
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		h.Set(SpanHeader, string(spanID))
	}
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}

// FormatTrace returns a formatted trace string for logging
func FormatTrace(traceID TraceID, spanID SpanID) string {
	return fmt.Sprintf("[trace:%s span:%s]", traceID, spanID)
}
