// Package auth issues and verifies the access tokens players present when
// attaching to a combat session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ravenfell/gametable/internal/config"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong issuer, expired, or missing subject.
var ErrInvalidToken = errors.New("invalid access token")

// Claims carries the verified identity extracted from an access token.
type Claims struct {
	// SubjectID is the authenticated player's id.
	SubjectID string
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService from the auth configuration.
//
// Precondition: cfg.Secret and cfg.Issuer must be non-empty; cfg.TokenTTL positive.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// IssueAccessToken mints a signed token for the given subject.
//
// Precondition: subjectID must be non-empty.
// Postcondition: Returns a compact JWS string verifiable by VerifyAccessToken.
func (s *TokenService) IssueAccessToken(subjectID string) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id must not be empty")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subjectID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken parses and verifies a token, returning the subject claims.
//
// Postcondition: Returns Claims with a non-empty SubjectID, or an error
// wrapping ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(tokenString string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Claims{SubjectID: claims.Subject}, nil
}
