package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	Matricula string
	UserID    int64
	Role      models.Role
}

// Claims holds the registered claims plus the bearer's identity.
type Claims struct {
	jwt.RegisteredClaims
	Matricula string      `json:"matricula"`
	UserID    int64       `json:"user_id"`
	Role      models.Role `json:"role"`
}

// GenerateToken issues an HS256 token for id valid for validityDuration.
func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Matricula,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Matricula: id.Matricula,
		UserID:    id.UserID,
		Role:      id.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Any failure, including expiry, yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Matricula == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{Matricula: claims.Matricula, UserID: claims.UserID, Role: claims.Role}, nil
}
