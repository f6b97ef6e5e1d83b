package middleware

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

// CorrelationIDHeader carries the correlation id on requests and responses.
const CorrelationIDHeader = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationID returns the correlation id installed by
// CorrelationIDMiddleware, or "" outside a request context.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// CorrelationIDMiddleware honors a caller-supplied correlation id and mints
// one otherwise, echoing it back in the response header so a failed call can
// be matched against the audit trail.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)

		ctx := context.WithValue(r.Context(), correlationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
