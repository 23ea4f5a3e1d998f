package observability

import (
	"log"
	"sync"
	"time"
)

// RequestObserver writes one key=value log line per pipeline outcome and keeps
// per-address deny counts for the rate limiter.
type RequestObserver struct {
	logger *log.Logger

	mu         sync.Mutex
	denyCounts map[string]int64
	maxTracked int
}

// DefaultMaxTrackedClients bounds the deny-count map. When a new address would
// exceed it the counts start over.
const DefaultMaxTrackedClients = 10000

func NewRequestObserver(logger *log.Logger) *RequestObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &RequestObserver{
		logger:     logger,
		denyCounts: make(map[string]int64),
		maxTracked: DefaultMaxTrackedClients,
	}
}

func (o *RequestObserver) RecordSuccess(requestID string, task string, envelopeKind string, took time.Duration) {
	if o == nil {
		return
	}
	o.logger.Printf("%s outcome request_id=%s status=ok envelope=%s took_ms=%d", task, requestID, envelopeKind, took.Milliseconds())
}

func (o *RequestObserver) RecordFailure(requestID string, task string, kind string, err error, took time.Duration) {
	if o == nil {
		return
	}
	o.logger.Printf("%s outcome request_id=%s status=error kind=%s took_ms=%d err=%q", task, requestID, kind, took.Milliseconds(), err.Error())
}

func (o *RequestObserver) RecordAdjustments(requestID string, adjustments []string) {
	if o == nil || len(adjustments) == 0 {
		return
	}
	o.logger.Printf("assessment normalized request_id=%s adjustments=%q", requestID, adjustments)
}

func (o *RequestObserver) RecordRateLimited(clientAddr string, retryAfter time.Duration) {
	if o == nil {
		return
	}
	o.mu.Lock()
	if _, seen := o.denyCounts[clientAddr]; !seen && o.maxTracked > 0 && len(o.denyCounts) >= o.maxTracked {
		o.logger.Printf("ratelimit deny counters reset tracked=%d", len(o.denyCounts))
		o.denyCounts = make(map[string]int64)
	}
	o.denyCounts[clientAddr]++
	count := o.denyCounts[clientAddr]
	o.mu.Unlock()

	o.logger.Printf("ratelimit deny client=%s retry_after_s=%d count=%d", clientAddr, int(retryAfter.Seconds()), count)

	// Basic alert hook for repeated spikes in deny events.
	if count%10 == 0 {
		o.logger.Printf("ratelimit alert client=%s repeated_deny_count=%d", clientAddr, count)
	}
}

func (o *RequestObserver) DenyCount(clientAddr string) int64 {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.denyCounts[clientAddr]
}
