package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type UserContextKey string

const userContextKey UserContextKey = "user_id"

// Authenticator verifies bearer tokens against the identity provider.
// Token issuance lives entirely in the provider; all we do here is map a
// valid token to a UserInfo.
type Authenticator struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewAuthenticator runs OIDC discovery against the issuer. Call once in main.
func NewAuthenticator(ctx context.Context, issuerURL, clientID string) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, err
	}

	config := &oidc.Config{
		ClientID: clientID,
	}

	return &Authenticator{
		provider: provider,
		verifier: provider.Verifier(config),
	}, nil
}

// Middleware is the standard chi middleware: extract the bearer token,
// verify it (signature, expiry, audience) and inject UserInfo into context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid header format", http.StatusUnauthorized)
			return
		}

		// Uses the provider's cached signing keys.
		idToken, err := a.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			slog.Warn("Token verification failed", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		var claims IdentityClaims
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, "Failed to parse claims", http.StatusInternalServerError)
			return
		}

		userInfo := UserInfo{
			ID:              claims.Subject,
			Username:        claims.PreferredUsername,
			Email:           claims.Email,
			Roles:           claims.RealmAccess.Roles,
			AuthorizedParty: claims.Azp,
		}

		ctx := context.WithValue(r.Context(), userContextKey, userInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalMiddleware resolves UserInfo when a valid token is present but
// never rejects the request. Public routes use this so anonymous and
// signed-in callers share one handler.
func (a *Authenticator) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			next.ServeHTTP(w, r)
			return
		}

		idToken, err := a.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		var claims IdentityClaims
		if err := idToken.Claims(&claims); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, UserInfo{
			ID:              claims.Subject,
			Username:        claims.PreferredUsername,
			Email:           claims.Email,
			Roles:           claims.RealmAccess.Roles,
			AuthorizedParty: claims.Azp,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserInfo retrieves the user data from context
func GetUserInfo(ctx context.Context) (UserInfo, error) {
	val := ctx.Value(userContextKey)
	if user, ok := val.(UserInfo); ok {
		return user, nil
	}
	return UserInfo{}, errors.New("no user found in context")
}

// GetUserID is a shortcut for just the UUID
func GetUserID(ctx context.Context) (string, error) {
	user, err := GetUserInfo(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// MaybeUserInfo is for routes that are public but behave differently for
// signed-in users (e.g. the home feed hides your own listings).
func MaybeUserInfo(ctx context.Context) (UserInfo, bool) {
	user, err := GetUserInfo(ctx)
	return user, err == nil
}

// WithUserInfo injects a UserInfo directly; test helper.
func WithUserInfo(ctx context.Context, user UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
