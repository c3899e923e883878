package auth

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims extracts the fields we need from the OIDC access token.
type IdentityClaims struct {
	// Standard OIDC claims (sub, exp, iat, etc.)
	jwt.RegisteredClaims

	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	PreferredUsername string `json:"preferred_username"`
	Azp               string `json:"azp"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// UserInfo is the clean struct we put into the request context. The rest of
// the system only ever sees this: a stable user id plus display fields.
type UserInfo struct {
	ID              string // the 'sub' claim (UUID)
	Username        string
	Email           string
	AuthorizedParty string
	Roles           []string
}
