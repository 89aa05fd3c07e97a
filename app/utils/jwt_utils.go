package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is written into tokens issued by this service
const TokenIssuer = "speeddating-backend"

// JWTClaims represents the claims in the bearer token. The user id is read from
// user_id, falling back to the standard sub claim.
type JWTClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthenticatedUserID returns the user id carried by the claims
func (c *JWTClaims) AuthenticatedUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// GenerateJWTToken signs an HS256 token for userID valid for ttl
func GenerateJWTToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret cannot be empty")
	}
	if userID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}

	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWTToken checks the signature and time claims of tokenString and returns the user id
func VerifyJWTToken(secret, tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("token string cannot be empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse JWT token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid JWT token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return "", fmt.Errorf("failed to extract JWT claims")
	}
	userID := claims.AuthenticatedUserID()
	if userID == "" {
		return "", fmt.Errorf("user ID is missing in JWT token")
	}
	return userID, nil
}
