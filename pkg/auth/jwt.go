package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleReviewer = "reviewer"
	RoleChair    = "chair"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the actor. Subject is the reviewer or chair ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateToken(subject, role string, ttl time.Duration) (string, error)
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (s *jwtService) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
