package auth

import "github.com/golang-jwt/jwt/v5"

// TokenTypeAccess is the only token kind the operator API accepts.
const TokenTypeAccess = "access"

// Claims carry the operator identity. WorkspaceID scopes every read; a token
// without one is rejected.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
	TokenType   string `json:"token_type"`
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, WorkspaceID: c.WorkspaceID, Role: c.Role}
}
