package libraries

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// SupabaseAuth talks to the GoTrue endpoints of a Supabase project.
type SupabaseAuth struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseAuth uses the anon key when set and the service role key otherwise.
func NewSupabaseAuth(baseURL, anonKey, serviceRoleKey string) *SupabaseAuth {
	key := anonKey
	if key == "" {
		key = serviceRoleKey
	}
	return &SupabaseAuth{
		baseURL:    baseURL,
		apiKey:     key,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type passwordGrantResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges email and password for an access token.
func (s *SupabaseAuth) Login(ctx context.Context, email, password string) (string, error) {
	if s.baseURL == "" {
		return "", errors.New("supabase url is not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal login body")
	}

	url := s.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "supabase login")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.Wrapf(ErrInvalidCredentials, "supabase status %d: %s", resp.StatusCode, body)
	}

	var out passwordGrantResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	if out.AccessToken == "" {
		return "", errors.Wrap(ErrInvalidCredentials, "empty access token")
	}
	return out.AccessToken, nil
}
