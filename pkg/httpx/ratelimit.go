package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// RateLimitConfig is a token bucket refilled at RequestsPerWindow per Window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

var (
	// StrictLimit guards the credential endpoints: 5 attempts a minute.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// LenientLimit is for probes that poll frequently.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

func (c RateLimitConfig) limit() rate.Limit {
	if c.Window <= 0 || c.RequestsPerWindow <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// KeyExtractor groups requests into buckets. An empty key is not limited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// FormFieldKeyExtractor keys on a form value, case-folded so that
// "Alice@X.com" and "alice@x.com" share a bucket.
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(r.FormValue(fieldName)))
	}
}

// CookieKeyExtractor keys on a fingerprint of a cookie so raw tokens are
// never held as map keys.
func CookieKeyExtractor(name string) KeyExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return ""
		}
		return cryptox.FingerprintToken(c.Value)
	}
}

// FirstKeyExtractor returns the first non-empty key.
func FirstKeyExtractor(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		for _, e := range extractors {
			if key := e(r); key != "" {
				return key
			}
		}
		return ""
	}
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, e := range extractors {
			if key := e(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// idleSweepInterval bounds how often idle buckets are dropped.
const idleSweepInterval = 5 * time.Minute

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	name string
	cfg  RateLimitConfig
	key  KeyExtractor

	// OnReject, if set, is called for every rejected request.
	OnReject func(name string)

	buckets   sync.Map // string -> *rate.Limiter
	mu        sync.Mutex
	lastSweep time.Time
}

// NewRateLimiter builds a limiter. name labels logs and OnReject calls.
func NewRateLimiter(name string, cfg RateLimitConfig, key KeyExtractor) *RateLimiter {
	return &RateLimiter{name: name, cfg: cfg, key: key, lastSweep: time.Now()}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if l, ok := rl.buckets.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := rl.buckets.LoadOrStore(key, rate.NewLimiter(rl.cfg.limit(), rl.cfg.Burst))
	rl.sweep()
	return l.(*rate.Limiter)
}

// sweep drops buckets that have refilled completely, meaning nobody used
// them for a while.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastSweep) < idleSweepInterval {
		return
	}
	rl.lastSweep = time.Now()

	rl.buckets.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.cfg.Burst) {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// Allow takes a token for r. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Allow(r *http.Request) (bool, time.Duration) {
	key := rl.key(r)
	if key == "" {
		return true, 0
	}

	l := rl.bucket(key)
	if l.Allow() {
		return true, 0
	}

	res := l.Reserve()
	wait := res.Delay()
	res.Cancel()
	return false, wait
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.Allow(r)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := max(int(wait.Round(time.Second).Seconds()), 1)
		slogx.FromContext(r.Context()).Warn("rate limit exceeded",
			"limiter", rl.name,
			"path", r.URL.Path,
			"retry_after", retryAfter,
		)
		if rl.OnReject != nil {
			rl.OnReject(rl.name)
		}

		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Window", rl.cfg.Window.String())
		WriteJSON(w, http.StatusTooManyRequests, limitedBody{
			Code:    http.StatusTooManyRequests,
			Message: "too many requests, please try again later",
		})
	})
}

// limitedBody mirrors the failure envelope written by the security pipeline.
type limitedBody struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
