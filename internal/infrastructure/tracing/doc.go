/*
Package tracing provides lightweight request tracing.

Every bridge request gets a span; script runs and the requests scripts send
are child spans of it. The trace context travels in the X-Trace-ID and
X-Span-ID headers, both inbound (HTTPMiddleware) and outbound
(InjectTraceContext, used by the transport).

	tracer := tracing.New("scripting", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "script.run")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are written to the logger by a buffered collector.
*/
package tracing
