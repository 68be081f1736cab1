package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitAppDefaultsWithoutConfigFile(t *testing.T) {
	os.Unsetenv("MONGO_URI")
	os.Unsetenv("TOP_N")
	os.Unsetenv("REALTIME_INTERVAL_MIN")

	config = nil
	InitApp()
	c := GetConfig()

	assert.Equal(t, "mongodb://localhost:27017", c.MongoURI)
	assert.Equal(t, 50, c.TopN)
	assert.Equal(t, 15, c.RealtimeIntervalMin)
	assert.Equal(t, 0, c.DailyHourUTC)
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("TOP_N", "25")
	os.Setenv("REDIS_HOST", "cache.internal")
	os.Setenv("REDIS_PORT", "6380")
	defer os.Unsetenv("TOP_N")
	defer os.Unsetenv("REDIS_HOST")
	defer os.Unsetenv("REDIS_PORT")

	config = nil
	InitApp()
	c := GetConfig()

	assert.Equal(t, 25, c.TopN)
	assert.Equal(t, "cache.internal:6380", c.RedisAddr)
}

func TestToCollectorIndicesLeavesUnsetAtDefault(t *testing.T) {
	cfg := ColumnIndicesConfig{Themes: 3}
	idx := cfg.ToCollectorIndices()
	assert.Equal(t, 3, idx.Themes)
	assert.Equal(t, -1, idx.Persons)
}
