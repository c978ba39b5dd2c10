package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience is stamped on every access token and required when parsing.
const Audience = "assettrack-api"

// clockSkew tolerates small drift between API instances.
const clockSkew = 30 * time.Second

var jwtSigningMethod = jwt.SigningMethodHS256

type parseSettings struct {
	allowExpired bool
}

// ParseOption adjusts how ParseAccessToken treats a token.
type ParseOption func(*parseSettings)

// AllowExpired skips exp/nbf checks so logout and refresh can still read the
// session id of a token that has just lapsed. Signature, issuer and the
// claim invariants are still enforced.
func AllowExpired() ParseOption {
	return func(s *parseSettings) { s.allowExpired = true }
}

func checkConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return errors.New("jwt issuer is required")
	}
	return nil
}

// MintAccessToken issues a signed JWT for the provided payload using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.AccessTokenTTL() <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if err := payload.validate(); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL())),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the JWT and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string, opts ...ParseOption) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	var settings parseSettings
	for _, opt := range opts {
		opt(&settings)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(Audience),
		jwt.WithLeeway(clockSkew),
	}
	if settings.allowExpired {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	} else {
		parserOpts = append(parserOpts, jwt.WithExpirationRequired())
	}

	claims := &AccessTokenClaims{}
	if _, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenString, claims, signingKey(cfg)); err != nil {
		return nil, err
	}
	if settings.allowExpired {
		// Claims validation was skipped wholesale; keep the checks that
		// still matter for a lapsed token.
		if claims.Issuer != cfg.Issuer {
			return nil, jwt.ErrTokenInvalidIssuer
		}
		if err := claims.Validate(); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

func signingKey(cfg config.JWTConfig) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}
}
