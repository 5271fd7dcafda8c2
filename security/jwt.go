package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// Token purposes
const (
	PurposeAccess = "access"
	PurposeReset  = "reset"
)

// Token lifetimes
const (
	RegisterTokenTTL = 10 * 24 * time.Hour
	LoginTokenTTL    = 100 * time.Hour
	ResetTokenTTL    = 10 * time.Minute
)

// Claims carried by every token
type Claims struct {
	UserID  string `json:"userId"`
	Purpose string `json:"purpose"`
	jwt.StandardClaims
}

// IssuedToken is a signed token and its metadata
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 tokens
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &TokenManager{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for userID valid for ttl
func (m *TokenManager) Issue(userID, purpose string, ttl time.Duration) (*IssuedToken, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:  userID,
		Purpose: purpose,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: signed, ID: claims.Id, ExpiresAt: exp}, nil
}

// Parse verifies signature and expiry and returns the claims
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("no token provided")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}
