// Package auth mints and validates the HS256 access tokens handed out by
// the identity gate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims asserts who the bearer is and whether their identity was verified
// at mint time. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email            string `json:"email"`
	Username         string `json:"username"`
	IdentityVerified bool   `json:"identity_verified"`
}

// Issuer signs and parses tokens with a shared secret.
type Issuer struct {
	secretKey        []byte
	validityDuration time.Duration
	now              func() time.Time
}

func NewIssuer(secretKey string, validityDuration time.Duration) *Issuer {
	return &Issuer{secretKey: []byte(secretKey), validityDuration: validityDuration, now: time.Now}
}

// Issue mints a token for user.
func (i *Issuer) Issue(user *models.User) (string, error) {
	return GenerateToken(user, i.secretKey, i.validityDuration, i.now())
}

// Parse validates tokenString and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	return ParseToken(tokenString, i.secretKey)
}

func GenerateToken(user *models.User, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email:            user.Email,
		Username:         user.UserName,
		IdentityVerified: user.IdentityVerified,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken checks signature, algorithm and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else invalid yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
