package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DELIVERY_FEE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("STRICT_PRICING", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", c.HTTPAddr)
	assert.True(t, c.RedisEnabled())
	assert.Equal(t, "10", c.DeliveryFee.String())
	assert.Equal(t, 12*time.Hour, c.SessionTTL)
	assert.False(t, c.StrictPricing)
	assert.Equal(t, []string{"kafka:9092"}, c.KafkaBrokers())
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "5000")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", c.HTTPAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("PORT", "5000")
	t.Setenv("DELIVERY_FEE", "7.50")
	t.Setenv("STRICT_PRICING", "true")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.HTTPAddr)
	assert.Equal(t, "7.5", c.DeliveryFee.String())
	assert.True(t, c.StrictPricing)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers())
	assert.Equal(t, 30*time.Minute, c.SessionTTL)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("negative fee", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("DELIVERY_FEE", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("garbage fee", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("DELIVERY_FEE", "ten")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestOptionalDependenciesDisabled(t *testing.T) {
	c := Config{KafkaCSV: "none", RedisAddr: "NONE"}
	assert.Empty(t, c.KafkaBrokers())
	assert.False(t, c.RedisEnabled())
	assert.Empty(t, Config{}.KafkaBrokers())
}

func TestLoad_Pool(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_MIN_CONNS", "")
	t.Setenv("DB_HEALTH_CHECK", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int32(8), c.Pool().MaxConns)
	assert.Equal(t, int32(1), c.Pool().MinConns)
	assert.Equal(t, 30*time.Second, c.Pool().HealthCheckPeriod)

	t.Setenv("DB_MAX_CONNS", "16")
	t.Setenv("DB_HEALTH_CHECK", "1m")
	c, err = Load()
	require.NoError(t, err)
	assert.Equal(t, int32(16), c.Pool().MaxConns)
	assert.Equal(t, time.Minute, c.Pool().HealthCheckPeriod)
}
