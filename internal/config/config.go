package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr         string   `yaml:"addr"`
		TrustProxy   bool     `yaml:"trust_proxy"`
		ProxyHops    int      `yaml:"proxy_hops"`
		MaxBodyBytes int64    `yaml:"max_body_bytes"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"http"`
	Provider struct {
		URL           string        `yaml:"url"`
		APIKey        string        `yaml:"api_key"`
		AssessTimeout time.Duration `yaml:"assess_timeout"`
		ChatTimeout   time.Duration `yaml:"chat_timeout"`
	} `yaml:"provider"`
	RateLimit struct {
		Max      int           `yaml:"max"`
		Window   time.Duration `yaml:"window"`
		RedisURL string        `yaml:"redis_url"`
	} `yaml:"ratelimit"`
	Uploads struct {
		Dir      string `yaml:"dir"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"uploads"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// ConfigError lists required settings that are missing and env values that
// could not be parsed. It is fatal at startup.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", ")+
			". Set them in the config file or environment (SG_PROVIDER_URL / SG_PROVIDER_KEY, or GEMINI_API_URL / GEMINI_API_KEY)")
	}
	return strings.Join(parts, "; ") + " and restart the server."
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":4000"
	cfg.HTTP.TrustProxy = true
	cfg.HTTP.ProxyHops = 1
	cfg.HTTP.MaxBodyBytes = 2 << 20
	cfg.HTTP.AllowOrigins = []string{"*"}
	cfg.Provider.AssessTimeout = 30 * time.Second
	cfg.Provider.ChatTimeout = 20 * time.Second
	cfg.RateLimit.Max = 60
	cfg.RateLimit.Window = time.Hour
	cfg.Uploads.Dir = "uploads"
	cfg.Uploads.MaxBytes = 25 << 20
	cfg.Log.Level = "info"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	invalid := applyEnv(&cfg)
	if cfg.HTTP.ProxyHops < 1 {
		invalid = append(invalid, "http.proxy_hops must be at least 1")
	}

	var missing []string
	if strings.TrimSpace(cfg.Provider.URL) == "" {
		missing = append(missing, "provider.url")
	}
	if cfg.Provider.APIKey == "" {
		missing = append(missing, "provider.api_key")
	}
	if len(missing) > 0 || len(invalid) > 0 {
		return cfg, &ConfigError{Missing: missing, Invalid: invalid}
	}

	return cfg, nil
}

// applyEnv overrides cfg from the environment and returns the variables whose
// values could not be parsed.
func applyEnv(cfg *Config) []string {
	var invalid []string
	intEnv := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				invalid = append(invalid, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = n
		}
	}
	int64Env := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				invalid = append(invalid, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = n
		}
	}
	durationEnv := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				invalid = append(invalid, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = d
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("SG_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SG_TRUST_PROXY"); v != "" {
		b, ok := parseBool(v)
		if ok {
			cfg.HTTP.TrustProxy = b
		} else {
			invalid = append(invalid, fmt.Sprintf("SG_TRUST_PROXY=%q", v))
		}
	}
	int64Env("SG_MAX_BODY_BYTES", &cfg.HTTP.MaxBodyBytes)
	intEnv("SG_PROXY_HOPS", &cfg.HTTP.ProxyHops)
	if v := os.Getenv("SG_ALLOW_ORIGINS"); v != "" {
		cfg.HTTP.AllowOrigins = splitCSV(v)
	}
	if v := firstEnv("SG_PROVIDER_URL", "GEMINI_API_URL"); v != "" {
		cfg.Provider.URL = v
	}
	if v := firstEnv("SG_PROVIDER_KEY", "GEMINI_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	durationEnv("SG_ASSESS_TIMEOUT", &cfg.Provider.AssessTimeout)
	durationEnv("SG_CHAT_TIMEOUT", &cfg.Provider.ChatTimeout)
	intEnv("SG_RATE_LIMIT_MAX", &cfg.RateLimit.Max)
	durationEnv("SG_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	if v := os.Getenv("SG_REDIS_URL"); v != "" {
		cfg.RateLimit.RedisURL = v
	}
	if v := os.Getenv("SG_UPLOAD_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}
	int64Env("SG_UPLOAD_MAX_BYTES", &cfg.Uploads.MaxBytes)
	if v := os.Getenv("SG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return invalid
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}
