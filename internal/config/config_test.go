package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PAGE_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 12 {
		t.Errorf("PageSize = %d, want 12", cfg.PageSize)
	}
	if cfg.ScorePolicy != "lenient" {
		t.Errorf("ScorePolicy = %q, want lenient", cfg.ScorePolicy)
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server_port: \"9090\"\npage_size: 20\nscore_policy: strict\nsession_duration: 2h\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"env overrides file", cfg.ServerPort, "7070"},
		{"file overrides default", cfg.PageSize, 20},
		{"file policy", cfg.ScorePolicy, "strict"},
		{"file duration", cfg.SessionDuration, 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("PAGE_SIZE", "twelve")

	if got := getEnvInt("PAGE_SIZE", 12); got != 12 {
		t.Errorf("getEnvInt() = %d, want 12", got)
	}
}

func TestValidateSecrets(t *testing.T) {
	strong := strings.Repeat("a", 32)
	other := strings.Repeat("b", 32)

	tests := []struct {
		name    string
		csrf    string
		jwt     string
		wantErr string
	}{
		{"both set", strong, other, ""},
		{"defaults are empty", "", "", "JWT_SECRET must be set"},
		{"placeholder jwt", strong, "change-me", "JWT_SECRET must not be the placeholder"},
		{"placeholder csrf", "change-me", other, "CSRF_SECRET must not be the placeholder"},
		{"short jwt", strong, "short", "JWT_SECRET must be at least 32 characters"},
		{"shared secret", strong, strong, "must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.CSRFSecret = tt.csrf
			cfg.JWTSecret = tt.jwt

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDoesNotShipSigningSecrets(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Validate() == nil {
		t.Fatal("expected unconfigured secrets to fail validation")
	}
}

func TestTrustedProxiesFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1/32 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"10.0.0.0/8", "127.0.0.1/32"}
	if strings.Join(cfg.TrustedProxies, ",") != strings.Join(want, ",") {
		t.Errorf("TrustedProxies = %v, want %v", cfg.TrustedProxies, want)
	}
}
