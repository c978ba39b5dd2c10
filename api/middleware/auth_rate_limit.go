package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/assettrack-backend/api/responses"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// RateLimitStore applies a fixed-window counter to a scope.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface (login, register) per client
// address and per login handle. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name     string
	window   time.Duration
	limiters []limiter
}

type limiter struct {
	dimension string
	limit     int64
	// identify returns the caller identity for this dimension, or "" to skip.
	identify  func(r *http.Request, body []byte) string
	needsBody bool
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, handleLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	policy := AuthRateLimitPolicy{name: name, window: window}
	if ipLimit > 0 {
		policy.limiters = append(policy.limiters, limiter{
			dimension: "ip",
			limit:     int64(ipLimit),
			identify:  func(r *http.Request, _ []byte) string { return clientIP(r) },
		})
	}
	if handleLimit > 0 {
		policy.limiters = append(policy.limiters, limiter{
			dimension: "handle",
			limit:     int64(handleLimit),
			needsBody: true,
			identify: func(_ *http.Request, body []byte) string {
				handle := strings.ToLower(strings.TrimSpace(extractHandle(body)))
				if handle == "" {
					return ""
				}
				sum := sha256.Sum256([]byte(handle))
				return hex.EncodeToString(sum[:])
			},
		})
	}
	return policy
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.limiters) > 0
}

func (p AuthRateLimitPolicy) needsBody() bool {
	for _, l := range p.limiters {
		if l.needsBody {
			return true
		}
	}
	return false
}

// AuthRateLimit rejects a request with RATE_LIMIT_EXCEEDED once any dimension
// of the policy is over its limit for the current window.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, l := range policy.limiters {
				identity := l.identify(r, body)
				if identity == "" {
					continue
				}
				scope := strings.Join([]string{policy.name, l.dimension, identity}, ":")
				allowed, count, err := store.FixedWindowAllow(ctx, scope, l.limit, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, l, identity, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, l limiter, identity string, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"policy":    policy.name,
			"dimension": l.dimension,
			"identity":  identity,
			"attempts":  count,
			"limit":     l.limit,
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// extractHandle reads the login handle from a login body, falling back to the
// email of a registration body.
func extractHandle(payload []byte) string {
	var body struct {
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Login != "" {
		return body.Login
	}
	return body.Email
}
