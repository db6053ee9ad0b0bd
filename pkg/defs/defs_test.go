package defs_test

import (
	"log/slog"
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/defs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworkStr(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected defs.BSVNetwork
	}{
		"mainnet lowercase": {input: "main", expected: defs.NetworkMainnet},
		"testnet uppercase": {input: "TEST", expected: defs.NetworkTestnet},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			// when:
			network, err := defs.ParseNetworkStr(test.input)

			// then:
			require.NoError(t, err)
			assert.Equal(t, test.expected, network)
		})
	}

	t.Run("unknown network", func(t *testing.T) {
		// when:
		_, err := defs.ParseNetworkStr("regtest")

		// then:
		require.Error(t, err)
	})
}

func TestParseLogLevelStr(t *testing.T) {
	// when:
	level, err := defs.ParseLogLevelStr("Warn")

	// then:
	require.NoError(t, err)
	assert.Equal(t, defs.LogLevelWarn, level)

	// when:
	_, err = defs.ParseHandlerTypeStr("xml")

	// then:
	require.Error(t, err)
}

func TestParseLogConfig(t *testing.T) {
	t.Run("builds logger for level and format", func(t *testing.T) {
		// when:
		cfg, err := defs.ParseLogConfig("WARN", "json")

		// then:
		require.NoError(t, err)
		assert.Equal(t, defs.LogConfig{Level: defs.LogLevelWarn, Handler: defs.JSONHandler}, cfg)

		// when:
		logger := cfg.Logger()

		// then:
		require.NotNil(t, logger)
		assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
		assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
	})

	t.Run("debug text logger", func(t *testing.T) {
		// when:
		cfg, err := defs.ParseLogConfig("debug", "Text")

		// then:
		require.NoError(t, err)
		assert.True(t, cfg.Logger().Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("unknown level", func(t *testing.T) {
		// when:
		_, err := defs.ParseLogConfig("verbose", "text")

		// then:
		require.ErrorContains(t, err, "invalid log level")
	})

	t.Run("unknown format", func(t *testing.T) {
		// when:
		_, err := defs.ParseLogConfig("info", "xml")

		// then:
		require.ErrorContains(t, err, "invalid log format")
	})
}

func TestLogLevelSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, defs.LogLevelDebug.SlogLevel())
	assert.Equal(t, slog.LevelError, defs.LogLevelError.SlogLevel())
	assert.Equal(t, slog.LevelInfo, defs.LogLevel("").SlogLevel())
}

func TestNetworkIsMainnet(t *testing.T) {
	assert.True(t, defs.NetworkMainnet.IsMainnet())
	assert.False(t, defs.NetworkTestnet.IsMainnet())
}
