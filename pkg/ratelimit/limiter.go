package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/richxcame/rideplanner/pkg/config"
)

// Rule defines a rate limiting policy for one endpoint.
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Result captures the outcome of a rate limiting decision.
type Result struct {
	Allowed     bool
	Remaining   int
	RetryAfter  time.Duration
	Limit       int
	Window      time.Duration
	ResetAfter  time.Duration
	ClientKey   string
	EndpointKey string
}

// Limiter implements a Redis-backed token bucket rate limiter.
type Limiter struct {
	client redis.Cmdable
	cfg    config.RateLimitConfig
	script *redis.Script
	now    func() time.Time
}

const tokenBucketScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "timestamp")
local tokens = tonumber(data[1])
local timestamp = tonumber(data[2])

if tokens == nil then
    tokens = capacity
    timestamp = now
else
    if timestamp == nil then
        timestamp = now
    end
    local delta = now - timestamp
    if delta > 0 then
        tokens = math.min(capacity, tokens + (delta * refillRate))
        timestamp = now
    end
end

local allowed = 0
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "timestamp", now)
redis.call("PEXPIRE", key, ttl)

local retryAfter = 0
if allowed == 0 then
    retryAfter = math.ceil((1 - tokens) / refillRate)
end

return {allowed, tostring(tokens), retryAfter}
`

// NewLimiter creates a new Limiter instance.
func NewLimiter(client redis.Cmdable, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketScript),
		now:    time.Now,
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg.Enabled
}

// RuleFor returns the effective rule for an endpoint key ("METHOD:/path").
func (l *Limiter) RuleFor(endpoint string) Rule {
	window := l.cfg.Window()
	limit := l.cfg.Limit
	burst := l.cfg.Burst

	if override, ok := l.cfg.EndpointOverrides[endpoint]; ok {
		if override.WindowSeconds > 0 {
			window = time.Duration(override.WindowSeconds) * time.Second
		}
		if override.Limit > 0 {
			limit = override.Limit
		}
		if override.Burst >= 0 {
			burst = override.Burst
		}
	}

	if limit <= 0 {
		return Rule{Limit: 0, Burst: burst, Window: window}
	}
	if burst < 0 {
		burst = 0
	}
	return Rule{Limit: limit, Burst: burst, Window: window}
}

// Allow takes one token from the bucket of clientKey on endpointKey.
func (l *Limiter) Allow(ctx context.Context, endpointKey, clientKey string, rule Rule) (Result, error) {
	if !l.cfg.Enabled || rule.Limit <= 0 {
		return Result{
			Allowed:     true,
			Remaining:   rule.Limit,
			Limit:       rule.Limit,
			Window:      rule.Window,
			ClientKey:   clientKey,
			EndpointKey: endpointKey,
		}, nil
	}

	if rule.Window <= 0 {
		rule.Window = l.cfg.Window()
	}

	key := l.bucketKey(endpointKey, clientKey)
	now := l.now().UnixMilli()
	windowMillis := rule.Window.Milliseconds()
	refillRate := float64(rule.Limit) / float64(windowMillis)
	capacity := math.Max(1, float64(rule.Limit+rule.Burst))
	ttl := windowMillis * 2

	raw, err := l.script.Run(ctx, l.client, []string{key}, now, formatFloat(refillRate), formatFloat(capacity), ttl).Result()
	if err != nil {
		return Result{}, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Result{}, errors.New("unexpected script response")
	}

	allowed := toInt(values[0])
	remainingTokens := toFloat(values[1])
	retryAfterMillis := toInt(values[2])

	result := Result{
		Allowed:     allowed == 1,
		Remaining:   int(math.Max(0, math.Floor(remainingTokens))),
		RetryAfter:  time.Duration(retryAfterMillis) * time.Millisecond,
		Limit:       rule.Limit,
		Window:      rule.Window,
		ResetAfter:  time.Duration(retryAfterMillis) * time.Millisecond,
		ClientKey:   clientKey,
		EndpointKey: endpointKey,
	}

	if result.Allowed {
		missing := math.Max(0, capacity-remainingTokens)
		result.ResetAfter = time.Duration(math.Ceil(missing/refillRate)) * time.Millisecond
		result.RetryAfter = 0
	}

	return result, nil
}

func (l *Limiter) bucketKey(endpointKey, clientKey string) string {
	return fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpointKey, clientKey)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 10, 64)
}

func toInt(value interface{}) int {
	switch v := value.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case string:
		i, _ := strconv.Atoi(v)
		return i
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Lua numbers become integers on the way out, so the fractional token count
// is returned as a string.
func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// ScriptHash returns the SHA1 the token bucket script is invoked with.
func (l *Limiter) ScriptHash() string {
	return l.script.Hash()
}

// WithNow overrides the time source (useful for tests).
func (l *Limiter) WithNow(now func() time.Time) {
	l.now = now
}
