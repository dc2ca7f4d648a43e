package requestid

import (
	"net/http"
)

// Middleware stores the id carried by the X-Request-ID header in the request
// context, generating one when the caller did not send any.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = Generate()
		}

		r = r.WithContext(ToContext(r.Context(), requestID))
		w.Header().Set(Header, requestID)

		next.ServeHTTP(w, r)
	})
}

// FromRequest extracts the request ID from the HTTP request.
// Returns empty string if request ID is not found.
func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
