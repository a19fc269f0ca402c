package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	LogLevel           string
	Port               string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	CORSAllowedOrigins []string

	GeminiAPIKey  string
	DirectorModel string
	ChatModel     string

	GenerationMode  string
	JobStrategy     string
	JobBudget       time.Duration
	JobSoftBudget   time.Duration
	JobPollInterval time.Duration
	JobStepDelay    time.Duration
	JobPoolSize     int

	VideoProtocol       string
	VideoAPIFlavor      string
	VideoAPIHost        string
	VideoAPIVersion     string
	VideoModel          string
	VideoAPIKey         string
	VideoAccessToken    string
	VideoStorageURI     string
	VideoAspectRatio    string
	GoogleCloudProject  string
	GoogleCloudLocation string

	FallbackCatalogPath    string
	StaticBaseURL          string
	StorageBucket          string
	StorageEndpoint        string
	StorageRegion          string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	SignedURLTTL           time.Duration

	DatabaseURL string
	NATSURL     string
	NATSSubject string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	mode := strings.ToLower(getEnv("GENERATION_MODE", "backend"))
	stepDelayDefault := 0
	if mode == "canned" {
		stepDelayDefault = 1000
	}
	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           strings.ToLower(os.Getenv("LOG_LEVEL")),
		Port:               getEnv("PORT", "8080"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 120)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		GeminiAPIKey:  geminiKey,
		DirectorModel: getEnv("DIRECTOR_MODEL", "gemini-2.0-flash"),
		ChatModel:     getEnv("CHAT_MODEL", "gemini-1.5-flash"),

		GenerationMode:  mode,
		JobStrategy:     strings.ToLower(getEnv("JOB_STRATEGY", "resilient")),
		JobBudget:       getEnvDuration("JOB_BUDGET_SECONDS", 90, time.Second),
		JobSoftBudget:   getEnvDuration("JOB_SOFT_BUDGET_SECONDS", 0, time.Second),
		JobPollInterval: getEnvDuration("JOB_POLL_INTERVAL_SECONDS", 5, time.Second),
		JobStepDelay:    getEnvDuration("JOB_STEP_DELAY_MILLIS", stepDelayDefault, time.Millisecond),
		JobPoolSize:     getEnvInt("JOB_POOL_SIZE", 64),

		VideoProtocol:       strings.ToLower(getEnv("VIDEO_PROTOCOL", "async")),
		VideoAPIFlavor:      strings.ToLower(getEnv("VIDEO_API_FLAVOR", "gemini")),
		VideoAPIHost:        os.Getenv("VIDEO_API_HOST"),
		VideoAPIVersion:     os.Getenv("VIDEO_API_VERSION"),
		VideoModel:          getEnv("VIDEO_MODEL", "veo-2.0-generate-001"),
		VideoAPIKey:         getEnv("VIDEO_API_KEY", geminiKey),
		VideoAccessToken:    os.Getenv("VIDEO_ACCESS_TOKEN"),
		VideoStorageURI:     os.Getenv("VIDEO_STORAGE_URI"),
		VideoAspectRatio:    getEnv("VIDEO_ASPECT_RATIO", "16:9"),
		GoogleCloudProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GoogleCloudLocation: getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),

		FallbackCatalogPath:    os.Getenv("FALLBACK_CATALOG_PATH"),
		StaticBaseURL:          os.Getenv("STATIC_BASE_URL"),
		StorageBucket:          os.Getenv("STORAGE_BUCKET"),
		StorageEndpoint:        os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:          getEnv("STORAGE_REGION", "us-east-1"),
		StorageAccessKeyID:     os.Getenv("STORAGE_ACCESS_KEY_ID"),
		StorageSecretAccessKey: os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		SignedURLTTL:           getEnvDuration("SIGNED_URL_TTL_SECONDS", 3600, time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getEnv("NATS_SUBJECT", "lucidify.jobs"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if err := oneOf("GENERATION_MODE", c.GenerationMode, "backend", "canned"); err != nil {
		return err
	}
	if err := oneOf("JOB_STRATEGY", c.JobStrategy, "resilient", "strict"); err != nil {
		return err
	}
	if err := oneOf("VIDEO_PROTOCOL", c.VideoProtocol, "async", "immediate"); err != nil {
		return err
	}
	if err := oneOf("VIDEO_API_FLAVOR", c.VideoAPIFlavor, "gemini", "vertex"); err != nil {
		return err
	}
	if c.JobBudget <= 0 {
		return fmt.Errorf("JOB_BUDGET_SECONDS must be positive")
	}
	if c.JobPoolSize <= 0 {
		return fmt.Errorf("JOB_POOL_SIZE must be positive")
	}
	if c.GenerationMode == "canned" {
		return nil
	}
	switch c.VideoAPIFlavor {
	case "gemini":
		if strings.TrimSpace(c.VideoAPIKey) == "" {
			return fmt.Errorf("VIDEO_API_KEY or GEMINI_API_KEY is required for the gemini video api")
		}
	case "vertex":
		if strings.TrimSpace(c.VideoAccessToken) == "" {
			return fmt.Errorf("VIDEO_ACCESS_TOKEN is required for the vertex video api")
		}
		if strings.TrimSpace(c.GoogleCloudProject) == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the vertex video api")
		}
	}
	return nil
}

// SignsBucketURLs reports whether storage credentials are configured.
func (c *Config) SignsBucketURLs() bool {
	return c.StorageAccessKeyID != "" && c.StorageSecretAccessKey != ""
}

// Warnings lists settings that load but degrade results at runtime.
func (c *Config) Warnings() []string {
	var out []string
	if c.GenerationMode == "canned" || c.SignsBucketURLs() {
		return out
	}
	storage := strings.ToLower(c.VideoStorageURI)
	switch {
	case c.VideoAPIFlavor == "vertex":
		out = append(out, "VIDEO_API_FLAVOR=vertex returns gs:// references but STORAGE_ACCESS_KEY_ID/STORAGE_SECRET_ACCESS_KEY are not set; every generated video will be replaced by a fallback (or fail under the strict strategy)")
	case strings.HasPrefix(storage, "gs://") || strings.HasPrefix(storage, "s3://"):
		out = append(out, "VIDEO_STORAGE_URI points at a bucket but storage signing keys are not set; bucket references cannot be resolved")
	}
	return out
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback int, unit time.Duration) time.Duration {
	return unit * time.Duration(getEnvInt(key, fallback))
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
