package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	AuthSchemeHMAC = "hmac"
	AuthSchemeJWKS = "jwks"

	UploadBackendLocal = "local"
	UploadBackendGCS   = "gcs"
	UploadBackendS3    = "s3"
)

type Config struct {
	Port      string
	DBURL     string
	DBMigrate bool

	SupabaseURL            string
	SupabaseKey            string
	SupabaseServiceRoleKey string

	AuthScheme          string
	JWTSecret           string
	JWKSURL             string
	JWKSRefreshInterval time.Duration
	JWTAudience         string

	LLMProvider       string
	GroqAPIKey        string
	GroqBaseURL       string
	GroqModelName     string
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModelID     string
	EmbeddingModel    string
	ClaudeVertexModel string

	KnowledgeDir  string
	RetrievalTopK int
	MinSimilarity float32

	DiagnosticKeywords []string
	DiagnosticRule     string
	ImagingMarkers     []string

	UploadBackend     string
	UploadDir         string
	GCSBucket         string
	S3Bucket          string
	AWSRegion         string
	MaxUploadBytes    int64
	MockUserID        string
	AnalysisQueueSize int

	GCPProjectID      string
	GCPVertexLocation string
	GCPCredentialsB64 string
	PredictEndpointID string
	ImagingEndpointID string

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":                            "3000",
	"DB_URL":                          "",
	"DB_MIGRATE":                      true,
	"SUPABASE_URL":                    "",
	"SUPABASE_KEY":                    "",
	"SUPABASE_SERVICE_ROLE_KEY":       "",
	"AUTH_SCHEME":                     AuthSchemeHMAC,
	"JWT_SECRET":                      "",
	"JWKS_URL":                        "",
	"JWKS_REFRESH_INTERVAL":           "5m",
	"JWT_AUDIENCE":                    "authenticated",
	"LLM_PROVIDER":                    "groq",
	"GROQ_API_KEY":                    "",
	"GROQ_BASE_URL":                   "https://api.groq.com/openai/v1",
	"GROQ_MODEL_NAME":                 "qwen/qwen3-32b",
	"OPENAI_API_KEY":                  "",
	"OPENAI_MODEL":                    "gpt-4.1",
	"GEMINI_API_KEY":                  "",
	"GEMINI_MODEL_ID":                 "gemini-2.0-flash",
	"EMBEDDING_MODEL":                 "text-embedding-004",
	"CLAUDE_VERTEX_MODEL":             "claude-sonnet-4-5@20250929",
	"KNOWLEDGE_DIR":                   "data/knowledge",
	"RETRIEVAL_TOP_K":                 3,
	"MIN_SIMILARITY":                  0.6,
	"DIAGNOSTIC_KEYWORDS":             "",
	"DIAGNOSTIC_RULE":                 "",
	"IMAGING_MARKERS":                 "",
	"UPLOAD_BACKEND":                  UploadBackendLocal,
	"UPLOAD_DIR":                      "uploads",
	"GCS_BUCKET":                      "",
	"S3_BUCKET":                       "",
	"AWS_REGION":                      "",
	"MAX_UPLOAD_BYTES":                10 * 1024 * 1024,
	"MOCK_USER_ID":                    "mock_test_id_123",
	"ANALYSIS_QUEUE_SIZE":             128,
	"GOOGLE_CLOUD_PROJECT_ID":         "",
	"GOOGLE_CLOUD_VERTEXAI_LOCATION":  "us-central1",
	"GCP_SERVICE_ACCOUNT_CREDENTIALS": "",
	"PREDICT_ENDPOINT_ID":             "",
	"IMAGING_ENDPOINT_ID":             "",
	"LOG_LEVEL":                       "info",
	"LOG_FORMAT":                      "text",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional, the environment always wins
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:      v.GetString("PORT"),
		DBURL:     v.GetString("DB_URL"),
		DBMigrate: v.GetBool("DB_MIGRATE"),

		SupabaseURL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		SupabaseKey:            v.GetString("SUPABASE_KEY"),
		SupabaseServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),

		AuthScheme:          strings.ToLower(v.GetString("AUTH_SCHEME")),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWKSURL:             v.GetString("JWKS_URL"),
		JWKSRefreshInterval: v.GetDuration("JWKS_REFRESH_INTERVAL"),
		JWTAudience:         v.GetString("JWT_AUDIENCE"),

		LLMProvider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
		GroqAPIKey:        v.GetString("GROQ_API_KEY"),
		GroqBaseURL:       v.GetString("GROQ_BASE_URL"),
		GroqModelName:     v.GetString("GROQ_MODEL_NAME"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),
		GeminiModelID:     v.GetString("GEMINI_MODEL_ID"),
		EmbeddingModel:    v.GetString("EMBEDDING_MODEL"),
		ClaudeVertexModel: v.GetString("CLAUDE_VERTEX_MODEL"),

		KnowledgeDir:  v.GetString("KNOWLEDGE_DIR"),
		RetrievalTopK: v.GetInt("RETRIEVAL_TOP_K"),
		MinSimilarity: float32(v.GetFloat64("MIN_SIMILARITY")),

		DiagnosticKeywords: splitList(v.GetString("DIAGNOSTIC_KEYWORDS")),
		DiagnosticRule:     v.GetString("DIAGNOSTIC_RULE"),
		ImagingMarkers:     splitList(v.GetString("IMAGING_MARKERS")),

		UploadBackend:     strings.ToLower(v.GetString("UPLOAD_BACKEND")),
		UploadDir:         v.GetString("UPLOAD_DIR"),
		GCSBucket:         v.GetString("GCS_BUCKET"),
		S3Bucket:          v.GetString("S3_BUCKET"),
		AWSRegion:         v.GetString("AWS_REGION"),
		MaxUploadBytes:    v.GetInt64("MAX_UPLOAD_BYTES"),
		MockUserID:        v.GetString("MOCK_USER_ID"),
		AnalysisQueueSize: v.GetInt("ANALYSIS_QUEUE_SIZE"),

		GCPProjectID:      v.GetString("GOOGLE_CLOUD_PROJECT_ID"),
		GCPVertexLocation: v.GetString("GOOGLE_CLOUD_VERTEXAI_LOCATION"),
		GCPCredentialsB64: v.GetString("GCP_SERVICE_ACCOUNT_CREDENTIALS"),
		PredictEndpointID: v.GetString("PREDICT_ENDPOINT_ID"),
		ImagingEndpointID: v.GetString("IMAGING_ENDPOINT_ID"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if cfg.AuthScheme == AuthSchemeJWKS && cfg.JWKSURL == "" && cfg.SupabaseURL != "" {
		cfg.JWKSURL = cfg.SupabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is required")
	}
	switch c.AuthScheme {
	case AuthSchemeHMAC:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_SCHEME=hmac")
		}
	case AuthSchemeJWKS:
		if c.JWKSURL == "" {
			return errors.New("JWKS_URL or SUPABASE_URL is required when AUTH_SCHEME=jwks")
		}
	default:
		return errors.Errorf("unknown AUTH_SCHEME %q (valid: hmac, jwks)", c.AuthScheme)
	}
	switch c.UploadBackend {
	case UploadBackendLocal:
	case UploadBackendGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when UPLOAD_BACKEND=gcs")
		}
	case UploadBackendS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return errors.Errorf("unknown UPLOAD_BACKEND %q (valid: local, gcs, s3)", c.UploadBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
