package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errUnknownKey = errors.New("no verification key for token")

// JWKSVerifier validates asymmetric tokens against the key set published by
// the auth backend. Keys are cached and refetched when a token names an
// unknown kid, at most once per refresh interval.
type JWKSVerifier struct {
	url             string
	audience        string
	refreshInterval time.Duration
	httpClient      *http.Client
	log             *logrus.Logger

	mu        sync.RWMutex
	keys      jose.JSONWebKeySet
	fetchedAt time.Time
}

func NewJWKSVerifier(url, audience string, refreshInterval time.Duration, log *logrus.Logger) *JWKSVerifier {
	return &JWKSVerifier{
		url:             url,
		audience:        audience,
		refreshInterval: refreshInterval,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		log:             log,
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims := &Claims{}
	methods := []string{jwt.SigningMethodES256.Alg(), jwt.SigningMethodRS256.Alg()}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	}, parserOptions(methods, v.audience)...)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	return claims.identity()
}

func (v *JWKSVerifier) key(ctx context.Context, kid string) (interface{}, error) {
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}

	v.mu.Lock()
	stale := time.Since(v.fetchedAt) >= v.refreshInterval
	v.mu.Unlock()
	if !stale {
		return nil, errUnknownKey
	}

	if err := v.refresh(ctx); err != nil {
		v.log.WithError(err).WithField("url", v.url).Warn("jwks refresh failed")
		return nil, err
	}
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}
	return nil, errUnknownKey
}

func (v *JWKSVerifier) lookup(kid string) (interface{}, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var candidates []jose.JSONWebKey
	if kid != "" {
		candidates = v.keys.Key(kid)
	} else if len(v.keys.Keys) == 1 {
		candidates = v.keys.Keys
	}
	for _, k := range candidates {
		if k.Use == "" || k.Use == "sig" {
			return k.Key, true
		}
	}
	return nil, false
}

func (v *JWKSVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	// another caller may have refreshed while we waited for the lock
	if !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) < v.refreshInterval {
		return nil
	}
	v.fetchedAt = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return errors.Wrap(err, "build jwks request")
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetch jwks")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return errors.Wrap(err, "decode jwks")
	}
	v.keys = set
	v.log.WithField("keys", len(set.Keys)).Debug("jwks refreshed")
	return nil
}
