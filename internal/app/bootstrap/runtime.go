package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// AWSConfigLoader resolves AWS SDK configuration for the DynamoDB backend.
type AWSConfigLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
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
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// OpenDatabase opens and pings postgres through the pgx stdlib driver.
func OpenDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: ping db: %w", err)
	}
	return db, nil
}

// BuildStateStore selects the pending payment store named by STATE_BACKEND.
// The returned closer releases any connection the store holds.
func BuildStateStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, loadAWS AWSConfigLoader) (paymentstate.Store, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }
	key := cfg.PaymentStateKey

	switch cfg.StateBackend {
	case appconfig.BackendMemory:
		logger.Warn("payment state kept in memory; it will not survive a restart")
		return paymentstate.NewMemoryStore(), noop, nil

	case appconfig.BackendFile, "":
		path := strings.TrimSpace(cfg.StateFile)
		if path == "" {
			path = paymentstate.DefaultFilePath(key)
		}
		logger.Debug("payment state file", "path", path)
		return paymentstate.NewFileStore(path), noop, nil

	case appconfig.BackendRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis unavailable at %s", cfg.RedisAddr)
		}
		store := paymentstate.NewRedisStore(client, key).WithTTL(cfg.PaymentStateTTL)
		return store, client.Close, nil

	case appconfig.BackendDynamoDB:
		if loadAWS == nil {
			return nil, nil, fmt.Errorf("bootstrap: aws config loader required for dynamodb")
		}
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		store := paymentstate.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.PaymentStateTable, key, logger)
		return store, noop, nil

	case appconfig.BackendPostgres:
		db, err := OpenDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return paymentstate.NewSQLStore(db, key), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown state backend %q", cfg.StateBackend)
	}
}
