package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"speakgate/internal/config"
	"speakgate/internal/ratelimit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfg, err := loadConfig(os.Getenv("SG_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	switch cmd {
	case "doctor":
		doctor(cfg)
	case "assess":
		if len(os.Args) < 3 {
			usage()
			return
		}
		assessFile(cfg, os.Args[2])
	case "chat":
		if len(os.Args) < 3 {
			usage()
			return
		}
		chat(cfg, strings.Join(os.Args[2:], " "))
	default:
		usage()
	}
}

// loadConfig accepts a config without provider credentials: the CLI only talks
// to a running server and Redis. Unparsable values are still fatal.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.Invalid) == 0 {
		return cfg, nil
	}
	return cfg, err
}

func doctor(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := []struct {
		Name string
		Fn   func() error
	}{
		{"server", func() error { return pingHTTP(localHTTPBase(cfg) + "/healthz") }},
		{"ready", func() error { return pingHTTP(localHTTPBase(cfg) + "/readyz") }},
		{"redis", func() error { return pingRedis(ctx, cfg) }},
	}
	for _, check := range checks {
		if err := check.Fn(); err != nil {
			fmt.Printf("%s: FAIL (%v)\n", check.Name, err)
			continue
		}
		fmt.Printf("%s: OK\n", check.Name)
	}
}

func assessFile(cfg config.Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read transcript: %v", err)
	}
	payload := map[string]any{"transcript": string(data), "promptId": "cli"}
	fmt.Println(post(localHTTPBase(cfg)+"/api/assess", payload))
}

func chat(cfg config.Config, message string) {
	payload := map[string]any{"message": message}
	fmt.Println(post(localHTTPBase(cfg)+"/api/chat", payload))
}

func post(url string, payload map[string]any) string {
	body, _ := json.Marshal(payload)
	client := http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		return fmt.Sprintf("%d %s", resp.StatusCode, out)
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, pretty.String())
}

func localHTTPBase(cfg config.Config) string {
	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":4000"
	}
	host := "127.0.0.1"
	port := ""
	if strings.HasPrefix(addr, ":") {
		port = strings.TrimPrefix(addr, ":")
	} else if i := strings.LastIndex(addr, ":"); i >= 0 {
		if addr[:i] != "" && addr[:i] != "0.0.0.0" {
			host = addr[:i]
		}
		port = addr[i+1:]
	} else {
		port = addr
	}
	if port == "" {
		port = "4000"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

func pingHTTP(url string) error {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func pingRedis(ctx context.Context, cfg config.Config) error {
	if cfg.RateLimit.RedisURL == "" {
		return fmt.Errorf("not configured; using in-memory limiter")
	}
	rl, err := ratelimit.NewRedis(cfg.RateLimit.RedisURL, cfg.RateLimit.Max, cfg.RateLimit.Window)
	if err != nil {
		return err
	}
	defer rl.Close()
	return rl.Ping(ctx)
}

func usage() {
	fmt.Println("Usage: speakgate <doctor|assess <transcript-file>|chat <message>>")
}
