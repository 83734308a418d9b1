package metadata

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"qara/pkg/requestcontext"
)

// UserHeader carries the user context asserted by the upstream gateway.
const UserHeader = "X-User-ID"

// RequestMetadata copies the chi request id and the gateway-asserted user
// context into requestcontext so services can log and scope without net/http.
// Must run after chi's RequestID middleware.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		if user := strings.TrimSpace(r.Header.Get(UserHeader)); user != "" && len(user) <= 128 {
			ctx = requestcontext.WithUserID(ctx, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
