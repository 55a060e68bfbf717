package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL bounds the lifetime of a monitor bearer token.
const TokenTTL = 24 * time.Hour

// GenerateJWTToken returns an HS256 token carrying the agent_id claim.
func GenerateJWTToken(agentID string, secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"agent_id": agentID,
		"exp":      now.Add(TokenTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseJWTToken validates an HS256 token and returns its agent_id claim.
func ParseJWTToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	agentID, _ := claims["agent_id"].(string)
	if agentID == "" {
		return "", errors.New("token has no agent_id")
	}
	return agentID, nil
}
