package infra

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GENERATION_MODE", "JOB_STRATEGY", "VIDEO_PROTOCOL", "VIDEO_API_FLAVOR",
		"VIDEO_API_KEY", "VIDEO_ACCESS_TOKEN", "GOOGLE_CLOUD_PROJECT",
		"JOB_BUDGET_SECONDS", "JOB_STEP_DELAY_MILLIS", "JOB_POOL_SIZE",
		"CORS_ALLOWED_ORIGINS", "HTTP_WRITE_TIMEOUT_SECONDS",
		"VIDEO_STORAGE_URI", "STORAGE_ACCESS_KEY_ID", "STORAGE_SECRET_ACCESS_KEY", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GenerationMode != "backend" || cfg.JobStrategy != "resilient" {
		t.Fatalf("mode/strategy = %q/%q", cfg.GenerationMode, cfg.JobStrategy)
	}
	if cfg.JobBudget != 90*time.Second || cfg.JobPollInterval != 5*time.Second || cfg.JobSoftBudget != 0 {
		t.Fatalf("budget = %s poll = %s soft = %s", cfg.JobBudget, cfg.JobPollInterval, cfg.JobSoftBudget)
	}
	if cfg.JobStepDelay != 0 {
		t.Fatalf("JobStepDelay = %s, want 0 in backend mode", cfg.JobStepDelay)
	}
	if cfg.HTTPWriteTimeout != 0 {
		t.Fatalf("HTTPWriteTimeout = %s, want 0 for streaming", cfg.HTTPWriteTimeout)
	}
	if cfg.VideoAPIKey != "test-key" {
		t.Fatalf("VideoAPIKey = %q, want the gemini key", cfg.VideoAPIKey)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigCannedMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GENERATION_MODE", "Canned")
	t.Setenv("VIDEO_API_FLAVOR", "vertex")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JobStepDelay != time.Second {
		t.Fatalf("JobStepDelay = %s, want 1s in canned mode", cfg.JobStepDelay)
	}
}

func TestLoadConfigParsesLists(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example, ,https://b.example ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if strings.Join(cfg.CORSAllowedOrigins, ",") != "https://a.example,https://b.example" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing gemini key", env: map[string]string{"GEMINI_API_KEY": ""}, want: "GEMINI_API_KEY"},
		{name: "unknown strategy", env: map[string]string{"JOB_STRATEGY": "optimistic"}, want: "JOB_STRATEGY"},
		{name: "unknown mode", env: map[string]string{"GENERATION_MODE": "live"}, want: "GENERATION_MODE"},
		{name: "unknown protocol", env: map[string]string{"VIDEO_PROTOCOL": "grpc"}, want: "VIDEO_PROTOCOL"},
		{name: "vertex without token", env: map[string]string{"VIDEO_API_FLAVOR": "vertex", "GOOGLE_CLOUD_PROJECT": "p"}, want: "VIDEO_ACCESS_TOKEN"},
		{name: "vertex without project", env: map[string]string{"VIDEO_API_FLAVOR": "vertex", "VIDEO_ACCESS_TOKEN": "tok"}, want: "GOOGLE_CLOUD_PROJECT"},
		{name: "zero pool", env: map[string]string{"JOB_POOL_SIZE": "0"}, want: "JOB_POOL_SIZE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestConfigWarnsWhenBucketRefsCannotBeSigned(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "gemini default", env: map[string]string{}},
		{
			name: "vertex without keys",
			env:  map[string]string{"VIDEO_API_FLAVOR": "vertex", "VIDEO_ACCESS_TOKEN": "tok", "GOOGLE_CLOUD_PROJECT": "p"},
			want: "VIDEO_API_FLAVOR=vertex",
		},
		{
			name: "vertex with keys",
			env: map[string]string{
				"VIDEO_API_FLAVOR": "vertex", "VIDEO_ACCESS_TOKEN": "tok", "GOOGLE_CLOUD_PROJECT": "p",
				"STORAGE_ACCESS_KEY_ID": "id", "STORAGE_SECRET_ACCESS_KEY": "secret",
			},
		},
		{
			name: "vertex in canned mode",
			env:  map[string]string{"VIDEO_API_FLAVOR": "vertex", "GENERATION_MODE": "canned"},
		},
		{
			name: "bucket storage uri",
			env:  map[string]string{"VIDEO_STORAGE_URI": "s3://dreams/out"},
			want: "VIDEO_STORAGE_URI",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig returned error: %v", err)
			}
			warnings := cfg.Warnings()
			if tc.want == "" {
				if len(warnings) != 0 {
					t.Fatalf("warnings = %v, want none", warnings)
				}
				return
			}
			if len(warnings) != 1 || !strings.Contains(warnings[0], tc.want) {
				t.Fatalf("warnings = %v, want one mentioning %q", warnings, tc.want)
			}
		})
	}
}
