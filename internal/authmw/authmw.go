// Package authmw provides HTTP middleware for bearer token authentication
// of the assessment API.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

const realm = `Bearer realm="esitriage"`

// BearerToken returns middleware that requires an Authorization header of
// the form "Bearer <token>". The scheme is matched case-insensitively and
// the token in constant time. Rejections are logged without the presented
// credential.
func BearerToken(token string) func(http.Handler) http.Handler {
	if token == "" {
		panic(xerrors.New("bearer token must not be empty"))
	}
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				reject(w, r, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	cred = strings.TrimSpace(cred)
	return cred, cred != ""
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	log.FromContext(r.Context()).Warn(r.Context(), "api request rejected",
		"reason", reason,
		"path", r.URL.Path,
	)
	w.Header().Set("WWW-Authenticate", realm)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `"}`))
}
