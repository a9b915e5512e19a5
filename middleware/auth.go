package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/reelforge/reelforge-api/errors"
)

// IsAuthorized gates a handler behind the service's bearer token.
func IsAuthorized(apiToken string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			errors.WriteHTTPUnauthorized(w, "Missing authorization header", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			errors.WriteHTTPUnauthorized(w, "Invalid API token", nil)
			return
		}
		next(w, r, ps)
	}
}
