package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/sheep1986/apex-sub005/internal/config"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

func TestBuildPGXPoolDisabledWithoutURL(t *testing.T) {
	pool, err := BuildPGXPool(context.Background(), &appconfig.Config{}, logging.NewText("error"))
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.NewText("error"), false)
	assert.Nil(t, client)
}

func TestBuildRedisClientVerify(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: srv.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.NewText("error"), true)
	require.NotNil(t, client)
	assert.NoError(t, client.Ping(context.Background()).Err())

	srv.Close()
	down := BuildRedisClient(context.Background(), cfg, logging.NewText("error"), true)
	assert.Nil(t, down, "verify must discard an unreachable client")
}

func TestBuildAnalyzerDisabled(t *testing.T) {
	assert.Nil(t, BuildAnalyzer(context.Background(), &appconfig.Config{AnalysisEnabled: false, BedrockModelID: "m"}, nil))
	assert.Nil(t, BuildAnalyzer(context.Background(), &appconfig.Config{AnalysisEnabled: true}, nil))
}
