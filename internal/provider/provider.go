package provider

import (
	"net/http"
	"net/url"
	"strings"
)

// QueryKeyMarker identifies endpoints that authenticate with a ?key= query parameter.
const QueryKeyMarker = "generativelanguage.googleapis.com"

type AuthMode int

const (
	AuthBearer AuthMode = iota
	AuthQueryKey
)

func (m AuthMode) String() string {
	switch m {
	case AuthQueryKey:
		return "query_key"
	default:
		return "bearer"
	}
}

type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return "provider " + e.Field + " not configured"
}

// Target is the resolved request destination. URL may carry the credential and
// must not be logged; use Redacted.
type Target struct {
	URL      string
	Header   http.Header
	AuthMode AuthMode

	credential string
}

func Resolve(endpoint string, credential string) (Target, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Target{}, &ConfigError{Field: "url"}
	}
	if credential == "" {
		return Target{}, &ConfigError{Field: "credential"}
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	if strings.Contains(endpoint, QueryKeyMarker) {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		return Target{
			URL:        endpoint + sep + "key=" + url.QueryEscape(credential),
			Header:     header,
			AuthMode:   AuthQueryKey,
			credential: credential,
		}, nil
	}

	header.Set("Authorization", "Bearer "+credential)
	return Target{
		URL:        endpoint,
		Header:     header,
		AuthMode:   AuthBearer,
		credential: credential,
	}, nil
}

// Redacted returns the target URL without its query string.
func (t Target) Redacted() string {
	if i := strings.IndexByte(t.URL, '?'); i >= 0 {
		return t.URL[:i]
	}
	return t.URL
}

// Scrub replaces every occurrence of the credential in s.
func (t Target) Scrub(s string) string {
	if t.credential == "" {
		return s
	}
	s = strings.ReplaceAll(s, t.credential, "[REDACTED]")
	if escaped := url.QueryEscape(t.credential); escaped != t.credential {
		s = strings.ReplaceAll(s, escaped, "[REDACTED]")
	}
	return s
}

// HasEmbeddedQuery reports whether the configured endpoint already carried
// query parameters before the credential was attached.
func HasEmbeddedQuery(endpoint string) bool {
	return strings.Contains(endpoint, "?")
}
