package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New("error")
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	client := BuildRedisClient(context.Background(), &appconfig.Config{}, testLogger(), true)
	assert.Nil(t, client)
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	client := BuildRedisClient(context.Background(), cfg, testLogger(), true)
	assert.Nil(t, client)
}

func TestBuildStateStoreMemory(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendMemory, PaymentStateKey: paymentstate.DefaultKey}
	store, closer, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	require.NoError(t, err)
	assert.IsType(t, &paymentstate.MemoryStore{}, store)
	assert.NoError(t, closer())
}

func TestBuildStateStoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	cfg := &appconfig.Config{StateBackend: appconfig.BackendFile, StateFile: path, PaymentStateKey: paymentstate.DefaultKey}

	store, closer, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	require.NoError(t, err)
	defer func() { _ = closer() }()

	fs, ok := store.(*paymentstate.FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

func TestBuildStateStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		StateBackend:    appconfig.BackendRedis,
		RedisAddr:       mr.Addr(),
		PaymentStateKey: paymentstate.DefaultKey,
		PaymentStateTTL: time.Hour,
	}

	store, closer, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	require.NoError(t, err)
	defer func() { _ = closer() }()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, paymentstate.PendingPayment{
		BookingID:   4,
		BookingKind: booking.KindAppointment,
		PaymentID:   77,
		CreatedAt:   time.Now(),
	}))
	assert.True(t, mr.Exists(paymentstate.DefaultKey))
	assert.Equal(t, time.Hour, mr.TTL(paymentstate.DefaultKey))
}

func TestBuildStateStoreRedisUnavailable(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendRedis, RedisAddr: "127.0.0.1:1"}
	_, _, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	assert.Error(t, err)
}

func TestBuildStateStoreDynamoNeedsLoader(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendDynamoDB}
	_, _, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	assert.Error(t, err)
}

func TestBuildStateStoreDynamoLoaderError(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendDynamoDB}
	boom := errors.New("no credentials")
	_, _, err := BuildStateStore(context.Background(), cfg, testLogger(), func(context.Context, *appconfig.Config) (aws.Config, error) {
		return aws.Config{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBuildStateStoreDynamo(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendDynamoDB, PaymentStateTable: "pending", PaymentStateKey: paymentstate.DefaultKey}
	store, _, err := BuildStateStore(context.Background(), cfg, testLogger(), func(context.Context, *appconfig.Config) (aws.Config, error) {
		return aws.Config{Region: "ap-south-1"}, nil
	})
	require.NoError(t, err)
	assert.IsType(t, &paymentstate.DynamoStore{}, store)
}

func TestBuildStateStorePostgresNeedsURL(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: appconfig.BackendPostgres}
	_, _, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestBuildStateStoreUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{StateBackend: "etcd"}
	_, _, err := BuildStateStore(context.Background(), cfg, testLogger(), nil)
	assert.ErrorContains(t, err, `unknown state backend "etcd"`)
}
