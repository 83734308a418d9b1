package testutil

import (
	"net/http"
	"time"

	"qara/pkg/platform/middleware/metadata"
	"qara/pkg/requestcontext"
)

// WithUser sets the gateway identity header and the matching context value,
// so handlers see the request the way RequestMetadata would leave it.
func WithUser(req *http.Request, userID string) *http.Request {
	req.Header.Set(metadata.UserHeader, userID)
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithRequestTime pins the request clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
