package api

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"collabhunts/internal/config"

	"golang.org/x/time/rate"
)

// HTTPAuth checks the configured API key header and applies a per-key
// rate limit. Health checks pass through unauthenticated.
type HTTPAuth struct {
	cfg      config.APIConfig
	limiters sync.Map // key name -> *rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	if !a.cfg.Auth.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(a.cfg.Auth.HeaderAPIKey)
		client, ok := a.lookup(key)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		if !a.limiter(client.Name).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) lookup(key string) (config.APIClientKey, bool) {
	if key == "" {
		return config.APIClientKey{}, false
	}
	for _, client := range a.cfg.Auth.APIKeys {
		if subtle.ConstantTimeCompare([]byte(client.Key), []byte(key)) == 1 {
			return client, true
		}
	}
	return config.APIClientKey{}, false
}

func (a *HTTPAuth) limiter(name string) *rate.Limiter {
	if l, ok := a.limiters.Load(name); ok {
		return l.(*rate.Limiter)
	}
	l, _ := a.limiters.LoadOrStore(name,
		rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), a.cfg.RateLimit.Burst))
	return l.(*rate.Limiter)
}
