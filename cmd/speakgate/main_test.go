package main

import (
	"errors"
	"testing"

	"speakgate/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SG_PROVIDER_URL", "SG_PROVIDER_KEY", "GEMINI_API_URL", "GEMINI_API_KEY", "SG_HTTP_ADDR", "PORT", "SG_RATE_LIMIT_MAX"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigWithoutProviderCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("SG_HTTP_ADDR", ":5050")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("expected doctor config without provider values, got %v", err)
	}
	if localHTTPBase(cfg) != "http://127.0.0.1:5050" {
		t.Fatalf("unexpected base %s", localHTTPBase(cfg))
	}
}

func TestLoadConfigStillRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SG_RATE_LIMIT_MAX", "abc")

	_, err := loadConfig("")
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) || len(cfgErr.Invalid) != 1 {
		t.Fatalf("expected invalid value error, got %v", err)
	}
}

func TestLocalHTTPBase(t *testing.T) {
	cases := map[string]string{
		"":              "http://127.0.0.1:4000",
		":8080":         "http://127.0.0.1:8080",
		"0.0.0.0:9000":  "http://127.0.0.1:9000",
		"10.1.2.3:7000": "http://10.1.2.3:7000",
	}
	for addr, want := range cases {
		var cfg config.Config
		cfg.HTTP.Addr = addr
		if got := localHTTPBase(cfg); got != want {
			t.Fatalf("addr %q: expected %s, got %s", addr, want, got)
		}
	}
}
