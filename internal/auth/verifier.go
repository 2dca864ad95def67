package auth

import (
	"oncology-assist-backend/internal/config"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewVerifier returns the verifier for the configured AUTH_SCHEME.
func NewVerifier(cfg *config.Config, log *logrus.Logger) (Verifier, error) {
	switch cfg.AuthScheme {
	case config.AuthSchemeHMAC:
		return NewHMACVerifier(cfg.JWTSecret, cfg.JWTAudience), nil
	case config.AuthSchemeJWKS:
		return NewJWKSVerifier(cfg.JWKSURL, cfg.JWTAudience, cfg.JWKSRefreshInterval, log), nil
	default:
		return nil, errors.Errorf("unknown auth scheme %q", cfg.AuthScheme)
	}
}
