package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// userTokenLifetime is how long a login token stays valid.
const userTokenLifetime = 24 * time.Hour

// UserClaims is the decoded view of a user token.
type UserClaims struct {
	UserID    uuid.UUID
	Email     string
	IsPremium bool
	ExpiresAt time.Time
}

// GenerateUserJWT creates a signed token carrying the user's identity and tier
func GenerateUserJWT(userID uuid.UUID, email string, isPremium bool, secret []byte) (string, int64, error) {
	expirationTime := time.Now().Add(userTokenLifetime).Unix()
	claims := jwt.MapClaims{
		"sub":     userID.String(),
		"email":   email,
		"premium": isPremium,
		"exp":     expirationTime,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", 0, err
	}
	return signedToken, expirationTime, nil
}

// ValidateUserJWT verifies a token and extracts its claims
func ValidateUserJWT(tokenString string, secret []byte) (*UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("token missing subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in token: %w", err)
	}

	email, _ := claims["email"].(string)
	premium, _ := claims["premium"].(bool)

	var expiresAt time.Time
	if exp, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}

	return &UserClaims{
		UserID:    userID,
		Email:     email,
		IsPremium: premium,
		ExpiresAt: expiresAt,
	}, nil
}
