package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	axonetRedis "github.com/jaxron/axonet/middleware/redis"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry/logger"
	"go.uber.org/zap"
)

// NewFeedClient builds the HTTP client used for the anomaly feed.
// Responses are cached in cacheClient for the configured TTL.
func NewFeedClient(cfg *config.CommonConfig, cacheClient rueidis.Client, zapLogger *zap.Logger) *client.Client {
	cacheTTL := time.Duration(cfg.Signals.CacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	timeout := time.Duration(cfg.Signals.RequestTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Order matters: the breaker sees each logical call once, retries happen inside it
	middlewares := []middleware.Middleware{
		circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		),
		retry.New(
			cfg.Retry.MaxRetries,
			time.Duration(cfg.Retry.Delay)*time.Millisecond,
			time.Duration(cfg.Retry.MaxDelay)*time.Millisecond,
		),
		singleflight.New(),
		axonetRedis.New(cacheClient, cacheTTL),
	}

	return client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.NewAxonet(zapLogger.Named("feed_client"))),
		client.WithTimeout(timeout),
		client.WithMiddleware(middlewares...),
	)
}
