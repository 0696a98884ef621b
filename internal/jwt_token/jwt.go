package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/requestcontext"
)

// Claims are the grants carried by a caller token.
type Claims struct {
	WriteDomain string `json:"write_domain,omitempty"`
	FullRead    bool   `json:"full_read,omitempty"`
	Privileged  bool   `json:"privileged,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the request principal.
func (c *Claims) Caller() requestcontext.Caller {
	return requestcontext.Caller{
		Subject:     c.Subject,
		WriteDomain: c.WriteDomain,
		FullRead:    c.FullRead,
		Privileged:  c.Privileged,
	}
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// GenerateToken signs an HS256 token granting caller's permissions.
func (s *JWTService) GenerateToken(caller requestcontext.Caller, expiresIn time.Duration) (string, error) {
	if caller.Subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "token subject is required")
	}
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		WriteDomain: caller.WriteDomain,
		FullRead:    caller.FullRead,
		Privileged:  caller.Privileged,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}
