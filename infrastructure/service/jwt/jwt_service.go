package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doara/doara/application/port/outbound"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// JWTService signs and validates HS256 session tokens. Tokens are never
// stored server side; validity is cryptographic and time bounded.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

var _ outbound.TokenService = (*JWTService)(nil)

func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTService{secret: []byte(secret), ttl: ttl}, nil
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

func (s *JWTService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	now := time.Now()
	tokenClaims := jwt.MapClaims{
		"sub":          claims.UserID,
		"email":        claims.Email,
		"username":     claims.Username,
		"is_admin":     claims.IsAdmin,
		"is_moderator": claims.IsModerator,
		"iat":          now.Unix(),
		"exp":          now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidToken
	}

	result := &outbound.TokenClaims{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		result.Email = email
	}
	if username, ok := claims["username"].(string); ok {
		result.Username = username
	}
	if isAdmin, ok := claims["is_admin"].(bool); ok {
		result.IsAdmin = isAdmin
	}
	if isModerator, ok := claims["is_moderator"].(bool); ok {
		result.IsModerator = isModerator
	}
	return result, nil
}
