package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// JWT issues and verifies bearer tokens. Constructed once at process start
// and passed to the components that need it.
type JWT struct {
	TokenAuth *jwtauth.JWTAuth
	expiry    time.Duration
}

func NewJWT(key []byte, expiry time.Duration) *JWT {
	return &JWT{
		TokenAuth: jwtauth.New("HS256", key, nil),
		expiry:    expiry,
	}
}

func (j *JWT) GenerateToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(j.expiry).Unix(),
		"iat":     time.Now().Unix(),
	}
	_, tokenString, err := j.TokenAuth.Encode(claims)
	return tokenString, err
}

// ExpirySeconds is the nominal token lifetime, reported to clients on login.
func (j *JWT) ExpirySeconds() int {
	return int(j.expiry / time.Second)
}

// Helper functions to extract claims, used by middleware and services.
func GetUserIDFromClaims(claims map[string]interface{}) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims map[string]interface{}) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
