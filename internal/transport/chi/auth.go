package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UsernameHeader names the caller on requests authenticated with a static API key.
const UsernameHeader = "X-Username"

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type callerKey struct{}

// CallerFromContext returns the authenticated username, if any.
func CallerFromContext(ctx context.Context) string {
	u, _ := ctx.Value(callerKey{}).(string)
	return u
}

func withCaller(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, callerKey{}, username)
}

// AuthConfig configures write-route authentication.
type AuthConfig struct {
	APIKeys   []string
	JWTSecret string
	JWTIssuer string
}

// BearerAuthMiddleware authenticates write requests. Safe methods and exempt
// paths pass through untouched. A static API key trusts the X-Username
// header; a JWT names the caller in its sub claim. With neither keys nor a
// secret configured, authentication is disabled and X-Username is taken as is.
func BearerAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}
	var verifier *tokenVerifier
	if cfg.JWTSecret != "" {
		verifier = newTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			claimed := strings.TrimSpace(r.Header.Get(UsernameHeader))

			// Auth disabled
			if len(validKeys) == 0 && verifier == nil {
				next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), claimed)))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}
			token := auth[len(bearerPrefix):]

			if _, ok := validKeys[token]; ok {
				if claimed == "" {
					writeError(w, http.StatusUnauthorized, CodeUnauthorized, UsernameHeader+" header is required")
					return
				}
				next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), claimed)))
				return
			}

			if verifier == nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}
			subject, err := verifier.verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "token is invalid or expired")
				return
			}
			if claimed != "" && claimed != subject {
				writeError(w, http.StatusForbidden, CodeForbidden, "token subject does not match username")
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), subject)))
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// tokenVerifier validates HS256 tokens issued by the account service.
type tokenVerifier struct {
	secret []byte
	issuer string
}

func newTokenVerifier(secret, issuer string) *tokenVerifier {
	return &tokenVerifier{secret: []byte(secret), issuer: issuer}
}

var errNoSubject = errors.New("token has no subject")

// verify checks signature, expiry and issuer, and returns the subject.
func (v *tokenVerifier) verify(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}
