package services

import (
	"errors"
	"fmt"
	"time"

	"eventpass/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredential = errors.New("credential: invalid or expired token")

// Claims carried by an issued credential. The mobile client decodes
// id and username locally, so the JSON keys are part of the contract.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// CredentialService issues and verifies the signed bearer tokens that
// stand in for a session.
type CredentialService struct {
	secret []byte
	ttl    time.Duration
}

func NewCredentialService(secret string, ttl time.Duration) *CredentialService {
	return &CredentialService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *CredentialService) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

func (s *CredentialService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}
