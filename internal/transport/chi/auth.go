package chi

import (
	"crypto/subtle"
	"net/http"

	"github.com/esfake/esfake/internal/apperr"
)

// exemptPaths bypass authentication even when it's enabled. Only the
// ambient metrics endpoint is exempt — it has no Elasticsearch protocol
// meaning and isn't reachable under the same namespace as the API.
var exemptPaths = map[string]struct{}{
	"/_internal/metrics": {},
}

// BasicAuthMiddleware returns a middleware enforcing HTTP Basic auth with
// the given username (main passes the configured one, "elastic" by
// default) and the given password. If password is
// empty, authentication is disabled entirely (pass-through) — the transport layer's
// ELASTIC_PASSWORD gate.
func BasicAuthMiddleware(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if password == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || !credentialsMatch(user, pass, username, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="security"`)
				writeError(w, apperr.Securityf("missing authentication credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func credentialsMatch(gotUser, gotPass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(gotPass), []byte(wantPass)) == 1
	return userOK && passOK
}
