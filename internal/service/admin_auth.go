package service

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/aman-churiwal/quota-gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminRole = "admin"

// AdminAuthService checks admin bearer tokens. A token is accepted if it matches the static
// token, the bcrypt hash, or is an HS256 JWT with role "admin" signed with the shared secret.
type AdminAuthService struct {
	token     []byte
	tokenHash []byte
	jwtSecret []byte
}

func NewAdminAuthService(cfg config.AdminConfig) *AdminAuthService {
	s := &AdminAuthService{}
	if cfg.Token != "" {
		s.token = []byte(cfg.Token)
	}
	if cfg.TokenHash != "" {
		s.tokenHash = []byte(cfg.TokenHash)
	}
	if cfg.JWTSecret != "" {
		s.jwtSecret = []byte(cfg.JWTSecret)
	}
	return s
}

// Authenticate returns ErrInvalidAdminToken when no configured form accepts the token.
func (s *AdminAuthService) Authenticate(token string) error {
	if token == "" {
		return ErrInvalidAdminToken
	}

	if s.token != nil && subtle.ConstantTimeCompare(s.token, []byte(token)) == 1 {
		return nil
	}

	if s.tokenHash != nil && bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) == nil {
		return nil
	}

	if s.jwtSecret != nil {
		if _, err := s.ValidateToken(token); err == nil {
			return nil
		}
	}

	return ErrInvalidAdminToken
}

// Validates an admin JWT and returns its claims
func (s *AdminAuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if role, _ := claims["role"].(string); role != adminRole {
		return nil, errors.New("token does not carry the admin role")
	}

	return claims, nil
}
