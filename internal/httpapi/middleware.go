package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"speakgate/internal/observability"
)

const maxRequestIDLen = 128

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger().Printf("panic request_id=%s path=%s: %v", observability.RequestIDFromContext(r.Context()), r.URL.Path, rec)
				writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > maxRequestIDLen {
			id = observability.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := h.allowedOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) allowedOrigin(origin string) string {
	for _, allowed := range h.Config.HTTP.AllowOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		addr := h.clientAddr(r)
		decision, err := h.Limiter.Allow(r.Context(), addr)
		if err != nil {
			// Fail open: a limiter outage must not take the API down.
			h.logger().Printf("ratelimit error client=%s: %v", addr, err)
			next.ServeHTTP(w, r)
			return
		}
		if !decision.Allowed {
			h.Observer.RecordRateLimited(addr, decision.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "Too many requests, please try again later."})
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the address the nearest trusted proxy saw. Each of the
// ProxyHops proxies appends one X-Forwarded-For entry, so the client address
// is counted from the right; anything further left was written by the client.
func (h *Handler) clientAddr(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !h.Config.HTTP.TrustProxy {
		return peer
	}
	var hops []string
	for _, fwd := range r.Header.Values("X-Forwarded-For") {
		for _, entry := range strings.Split(fwd, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				hops = append(hops, entry)
			}
		}
	}
	if len(hops) == 0 {
		return peer
	}
	trusted := h.Config.HTTP.ProxyHops
	if trusted < 1 {
		trusted = 1
	}
	idx := len(hops) - trusted
	if idx < 0 {
		idx = 0
	}
	return hops[idx]
}
