package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/branchledger/internal/domain"
)

// clockSkew tolerated between the identity provider and this service.
const clockSkew = 30 * time.Second

// Claims carried by a teller token. The subject is the actor id.
type Claims struct {
	BranchID string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager verifies HS256 bearer tokens and maps them to an actor.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

// Option configures a JWTManager.
type Option func(*JWTManager)

// WithIssuer stamps generated tokens with iss and rejects tokens from any
// other issuer.
func WithIssuer(iss string) Option {
	return func(m *JWTManager) { m.issuer = iss }
}

// NewJWTManager creates a manager signing tokens valid for ttl.
func NewJWTManager(secret string, ttl time.Duration, opts ...Option) *JWTManager {
	m := &JWTManager{secret: []byte(secret), ttl: ttl}
	for _, opt := range opts {
		opt(m)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}
	m.parser = jwt.NewParser(parserOpts...)

	return m
}

// Generate signs a token for actor. Operators use it through the CLI;
// tellers normally get theirs from the identity provider.
func (m *JWTManager) Generate(actor domain.Actor) (string, error) {
	now := time.Now()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		BranchID: actor.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}).SignedString(m.secret)
}

// Verify parses tokenString and returns its claims. Expired tokens give
// domain.ErrExpiredToken; every other failure gives domain.ErrInvalidToken.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrExpiredToken
	case err != nil:
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// Actor verifies tokenString and returns the actor it identifies.
func (m *JWTManager) Actor(tokenString string) (domain.Actor, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return domain.Actor{}, err
	}

	if claims.Subject == "" {
		return domain.Actor{}, domain.ErrInvalidToken
	}

	return domain.Actor{ID: claims.Subject, BranchID: claims.BranchID}, nil
}
