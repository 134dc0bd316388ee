// Package auth validates bearer tokens issued by the identity service and
// turns them into an origination.ActorContext.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrInvalidRole      = errors.New("invalid role in claims")
	ErrMissingBankID    = errors.New("partner token without bank_id")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the custom claims carried by access tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	BankID string `json:"bank_id,omitempty"`
}

// JWTService validates access tokens. Issuing is done by the identity service;
// GenerateToken exists for local tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		leeway: cfg.ClockSkew,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	UserID    uuid.UUID
	Role      origination.Role
	BankID    *uuid.UUID
	ExpiresIn time.Duration
}

// GenerateToken signs an access token with the service secret
func (s *JWTService) GenerateToken(input GenerateTokenInput) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(input.ExpiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: input.UserID.String(),
		Role:   string(input.Role),
	}
	if input.BankID != nil {
		claims.BankID = input.BankID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken verifies signature, issuer and time claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Actor converts claims into the identity passed to the application service.
// The system role is reserved for background jobs and never accepted from a token.
func (c *Claims) Actor() (origination.ActorContext, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return origination.ActorContext{}, fmt.Errorf("%w: user_id", ErrInvalidClaims)
	}
	role := origination.Role(c.Role)
	if !role.IsValid() || role == origination.RoleSystem {
		return origination.ActorContext{}, ErrInvalidRole
	}

	actor := origination.ActorContext{UserID: userID, Role: role}
	if c.BankID != "" {
		bankID, err := uuid.Parse(c.BankID)
		if err != nil {
			return origination.ActorContext{}, fmt.Errorf("%w: bank_id", ErrInvalidClaims)
		}
		actor.BankID = &bankID
	}
	if role == origination.RolePartner && actor.BankID == nil {
		return origination.ActorContext{}, ErrMissingBankID
	}
	return actor, nil
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
