// Package bootstrap wires the optional runtime dependencies: Postgres,
// Redis and the Bedrock analyzer. Everything here degrades to nil when
// unconfigured so local development can run with nothing but a port.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sheep1986/apex-sub005/internal/analysis"
	appconfig "github.com/sheep1986/apex-sub005/internal/config"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// BuildPGXPool connects the Postgres pool and verifies it with a ping.
func BuildPGXPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres connected")
	return pool, nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildAnalyzer wires the Bedrock transcript analyzer, or nil when
// analysis is disabled or no model is configured.
func BuildAnalyzer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) analysis.Analyzer {
	if cfg == nil || !cfg.AnalysisEnabled || strings.TrimSpace(cfg.BedrockModelID) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn("aws config unavailable, transcript analysis disabled", "error", err)
		return nil
	}
	analyzer, err := analysis.NewBedrockAnalyzer(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	if err != nil {
		logger.Warn("bedrock analyzer unavailable", "error", err)
		return nil
	}
	logger.Info("transcript analysis enabled", "model", cfg.BedrockModelID)
	return analyzer
}
