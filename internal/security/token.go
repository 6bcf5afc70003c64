package security

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	issuer   = "carehub-backend"
	audience = "carehub-api"
)

// Principal is an authenticated identity-provider subject. It says nothing
// about roles; those live on the account.
type Principal struct {
	ID    string
	Email string
}

// Verifier turns a bearer token into a principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// PrincipalClaims are the claims of a service-issued token.
type PrincipalClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	Verifier
	GenerateToken(principalID, email string) (string, error)
	ValidateToken(tokenString string) (*PrincipalClaims, error)
}

type tokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager issues and checks HS256 tokens, for deployments without an
// external identity provider and for tooling.
func NewTokenManager(secret string, ttl time.Duration) TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *tokenManager) GenerateToken(principalID, email string) (string, error) {
	if strings.TrimSpace(principalID) == "" {
		return "", errors.New("principal id is required")
	}
	now := m.now()
	claims := PrincipalClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ID:        generateJTI(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*PrincipalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PrincipalClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*PrincipalClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (m *tokenManager) Verify(_ context.Context, token string) (*Principal, error) {
	claims, err := m.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &Principal{ID: claims.Subject, Email: claims.Email}, nil
}

func generateJTI(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 16)
}
