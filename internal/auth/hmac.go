package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// HMACVerifier validates HS256 tokens signed with the project's shared JWT secret.
type HMACVerifier struct {
	secret   []byte
	audience string
}

func NewHMACVerifier(secret, audience string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), audience: audience}
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, parserOptions([]string{jwt.SigningMethodHS256.Alg()}, v.audience)...)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	return claims.identity()
}
