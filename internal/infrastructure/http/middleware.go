package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopvn-labs/commerce-core/internal/observability"
	"github.com/shopvn-labs/commerce-core/internal/observability/logctx"
)

// Observe times every request, counts it by route pattern, and plants a
// request-scoped logger into the context so the layers below log with the
// request id attached.
func Observe(tel observability.Observability) func(http.Handler) http.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	requests := tel.Metrics().Counter(observability.MHTTPRequests)
	duration := tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	base := tel.Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := base.With(
				observability.F("request_id", middleware.GetReqID(r.Context())),
				observability.F("method", r.Method),
				observability.F("path", r.URL.Path),
			)
			ctx := logctx.With(r.Context(), reqLog)

			next.ServeHTTP(ww, r.WithContext(ctx))

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			labels := []observability.Label{
				observability.L("method", r.Method),
				observability.L("route", route),
				observability.L("status", strconv.Itoa(ww.Status())),
			}
			requests.Add(1, labels...)
			duration.Observe(time.Since(start).Seconds(), labels...)

			if ww.Status() >= http.StatusInternalServerError {
				reqLog.Error("request_failed", observability.F("status", ww.Status()))
			}
		})
	}
}
