package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/littlelifetrip/ai-recommender/internal/config"
	"github.com/littlelifetrip/ai-recommender/internal/server/middleware"
)

// unknownSubject identifies callers whose token carries no "sub" claim.
const unknownSubject = "unknown_service"

// Claims are the bearer token claims. Subject names the calling user or service.
type Claims struct {
	jwt.RegisteredClaims
}

// GetCaller returns the token subject, or unknownSubject when the token has none.
// This implements the middleware.CallerGetter interface.
func (c *Claims) GetCaller() string {
	if c.Subject == "" {
		return unknownSubject
	}
	return c.Subject
}

// AsTokenValidator returns a TokenValidator adapter for this JWTService.
// This allows the JWTService to be used with middleware without creating import cycles.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return &jwtServiceValidator{service: s}
}

// jwtServiceValidator adapts JWTService to middleware.TokenValidator interface.
type jwtServiceValidator struct {
	service *JWTService
}

func (v *jwtServiceValidator) ValidateToken(tokenString string) (middleware.CallerGetter, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// JWTService signs and validates bearer tokens with the configured HMAC algorithm.
type JWTService struct {
	config *config.JWTConfig
	method jwt.SigningMethod
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) (*JWTService, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, &config.ConfigurationError{Key: "JWT_ALGORITHM", Reason: fmt.Sprintf("unsupported algorithm %q", cfg.Algorithm)}
	}
	return &JWTService{
		config: cfg,
		method: method,
	}, nil
}

// GenerateToken signs a token for subject. A non-positive ttl uses the configured expiration.
func (s *JWTService) GenerateToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is empty")
	}
	if ttl <= 0 {
		ttl = time.Duration(s.config.ExpirationHours) * time.Hour
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(s.method, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a token signed with the configured algorithm and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}
