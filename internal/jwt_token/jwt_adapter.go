package jwttoken

import (
	"personfinder/pkg/requestcontext"
)

// JWTServiceAdapter satisfies the auth middleware's validator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (requestcontext.Caller, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.Caller{}, err
	}
	return claims.Caller(), nil
}
