package jwt

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	AccessToken   TokenType = "access"
	BoardingToken TokenType = "boarding"
)

const issuer = "smarttransit-seat-booking"

// Claims represents the access token claims structure
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Phone     string    `json:"phone"`
	Roles     []string  `json:"roles"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// BoardingClaims identifies a confirmed booking on a boarding pass.
// They carry no issue or expiry time so equal inputs always sign to the same token.
type BoardingClaims struct {
	BookingReference string    `json:"booking_reference"`
	ScheduleID       string    `json:"schedule_id"`
	RouteName        string    `json:"route_name"`
	TravelDate       string    `json:"travel_date"`
	Seats            []string  `json:"seats"`
	TokenType        TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Service handles JWT operations
type Service struct {
	accessSecret      string
	boardingSecret    string
	accessTokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(accessSecret, boardingSecret string, accessExpiry time.Duration) *Service {
	return &Service{
		accessSecret:      accessSecret,
		boardingSecret:    boardingSecret,
		accessTokenExpiry: accessExpiry,
	}
}

// GenerateAccessToken generates a new access token
func (s *Service) GenerateAccessToken(userID uuid.UUID, phone string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Phone:     phone,
		Roles:     roles,
		TokenType: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.accessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, s.accessSecret, claims); err != nil {
		return nil, err
	}

	if claims.TokenType != AccessToken {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", AccessToken, claims.TokenType)
	}

	return claims, nil
}

// IsTokenExpired reports whether a well-formed token carries a past expiry.
// Malformed tokens are not expired, they are invalid.
func (s *Service) IsTokenExpired(tokenString string) bool {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return false
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return false
	}

	return claims.ExpiresAt.Time.Before(time.Now())
}

// GenerateBoardingToken signs a boarding token. Seats are sorted first so the
// token does not depend on passenger order.
func (s *Service) GenerateBoardingToken(claims BoardingClaims) (string, error) {
	claims.Seats = append([]string(nil), claims.Seats...)
	sort.Strings(claims.Seats)
	claims.TokenType = BoardingToken
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:  issuer,
		Subject: claims.BookingReference,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.boardingSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign boarding token: %w", err)
	}

	return tokenString, nil
}

// ValidateBoardingToken verifies the signature of a boarding token
func (s *Service) ValidateBoardingToken(tokenString string) (*BoardingClaims, error) {
	claims := &BoardingClaims{}
	if err := s.parse(tokenString, s.boardingSecret, claims); err != nil {
		return nil, err
	}

	if claims.TokenType != BoardingToken {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", BoardingToken, claims.TokenType)
	}

	return claims, nil
}

func (s *Service) parse(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	return nil
}
