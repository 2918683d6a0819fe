package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type callerKey struct{}

// Authenticator resolves bearer tokens to caller identities
type Authenticator struct {
	tokens map[string]string // caller -> token
}

// NewAuthenticator creates authenticator from caller -> token pairs
func NewAuthenticator(tokens map[string]string) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Identify returns the caller owning token, or "" when no caller does.
// Every configured token is compared so timing does not reveal which one matched.
func (a *Authenticator) Identify(token string) string {
	if token == "" {
		return ""
	}

	caller := ""
	for id, t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			caller = id
		}
	}
	return caller
}

// Middleware stores the identified caller, if any, in the request context.
// Handlers decide whether an anonymous caller is acceptable.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := a.Identify(bearerToken(r)); caller != "" {
			r = r.WithContext(context.WithValue(r.Context(), callerKey{}, caller))
		}
		next.ServeHTTP(w, r)
	})
}

// CallerFrom returns the authenticated caller of a request context
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
