package http

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ownerKey contextKey = "owner_id"

// Session cookies set by the NextAuth frontend.
var sessionCookies = []string{
	"__Secure-next-auth.session-token",
	"next-auth.session-token",
}

// withAuth verifies the session token and stamps the owner into the
// request context. Requests without a valid session get 401.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = cookieToken(r)
		}

		sess, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey, sess.UserID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func cookieToken(r *http.Request) string {
	for _, name := range sessionCookies {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// ownerID returns the authenticated owner, empty if the middleware did
// not run.
func ownerID(ctx context.Context) string {
	if id, ok := ctx.Value(ownerKey).(string); ok {
		return id
	}
	return ""
}
