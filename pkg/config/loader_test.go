package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/config"
)

type appConfig struct {
	Name    string        `env:"TEST_APP_NAME" envDefault:"sessiond"`
	Timeout time.Duration `env:"TEST_APP_TIMEOUT" envDefault:"2s"`
	Tags    []string      `env:"TEST_APP_TAGS" envSeparator:","`
}

type requiredConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

type storeConfig struct {
	URL string `env:"URL" envDefault:"memory://"`
}

func TestLoad(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("TEST_APP_NAME", "demo")
	t.Setenv("TEST_APP_TAGS", "a,b")

	var cfg appConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)

	t.Run("cached", func(t *testing.T) {
		t.Setenv("TEST_APP_NAME", "changed")
		var again appConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, "demo", again.Name)
	})
}

func TestLoad_Errors(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	var cfg requiredConfig
	assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	assert.ErrorIs(t, config.Load[appConfig](nil), config.ErrNilPointer)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("PRIMARY_URL", "redis://a")
	t.Setenv("SECONDARY_URL", "redis://b")

	var a, b, c storeConfig
	require.NoError(t, config.LoadWithPrefix(&a, "PRIMARY_"))
	require.NoError(t, config.LoadWithPrefix(&b, "SECONDARY_"))
	require.NoError(t, config.LoadWithPrefix(&c, "TERTIARY_"))

	assert.Equal(t, "redis://a", a.URL)
	assert.Equal(t, "redis://b", b.URL)
	assert.Equal(t, "memory://", c.URL)
}
