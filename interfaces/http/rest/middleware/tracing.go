package middleware

import (
	"net/http"

	"causemap/pkg/observability"
)

// Tracing opens an X-Ray segment per request so downstream AWS calls
// attach as subsegments.
func Tracing(tracer *observability.Tracer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), r.Method+" "+r.URL.Path)
			tracer.AddAnnotation(ctx, "method", r.Method)
			tracer.AddAnnotation(ctx, "path", r.URL.Path)

			next.ServeHTTP(w, r.WithContext(ctx))
			seg.Close(nil)
		})
	}
}
