package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// HolderClaims is the token shape the identity collaborator issues for
// reservation holders. The engine only ever verifies these; it never mints
// them outside of tests.
type HolderClaims struct {
	HolderID   uuid.UUID  `json:"holder_id"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	jwt.RegisteredClaims
}

// MintHolderToken signs a holder token with the configured secret. Production
// tokens come from the identity service; this exists for local tooling and
// middleware tests.
func MintHolderToken(cfg config.IdentityConfig, now time.Time, ttl time.Duration, claims HolderClaims) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if claims.HolderID == uuid.Nil {
		return "", fmt.Errorf("holder id is required")
	}

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseHolderToken validates the JWT string and returns typed claims.
func ParseHolderToken(cfg config.IdentityConfig, tokenString string) (*HolderClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &HolderClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.JWTIssuer),
	)
	if err != nil {
		return nil, err
	}

	if claims.HolderID == uuid.Nil {
		return nil, fmt.Errorf("token carries no holder id")
	}
	return claims, nil
}
