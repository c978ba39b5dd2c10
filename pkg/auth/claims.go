package auth

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT. JTI
// names the Redis session that backs the token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

func (p AccessTokenPayload) validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid role %q", p.Role)
	}
	return nil
}

// AccessTokenClaims represents the typed JWT issued to clients. Role is
// informational; authorization always re-reads the principal.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks. A token whose subject and
// user_id disagree, or that carries no session id, cannot be tied back to a
// principal and is rejected.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user_id")
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user_id")
	}
	if c.ID == "" {
		return errors.New("token has no session id")
	}
	return nil
}
