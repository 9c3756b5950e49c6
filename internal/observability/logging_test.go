package observability

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dicebag/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestZapConfig_WritesToStderr(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		zapCfg, err := zapConfig(config.LoggingConfig{Level: "warn", Format: format})
		require.NoError(t, err)
		assert.Equal(t, []string{"stderr"}, zapCfg.OutputPaths, format)
		assert.Equal(t, []string{"stderr"}, zapCfg.ErrorOutputPaths, format)
		assert.Equal(t, zapcore.WarnLevel, zapCfg.Level.Level(), format)
	}
}

// captureOutput swaps os.Stdout and os.Stderr for pipes while fn runs and
// returns what each received.
func captureOutput(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	errR, errW, err := os.Pipe()
	require.NoError(t, err)

	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	fn()

	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())
	outBytes, err := io.ReadAll(outR)
	require.NoError(t, err)
	errBytes, err := io.ReadAll(errR)
	require.NoError(t, err)
	return string(outBytes), string(errBytes)
}

func TestNewLogger_NamedAndOnStderr(t *testing.T) {
	stdout, stderr := captureOutput(t, func() {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.Equal(t, LoggerName, logger.Name())
		logger.Info("roll recorded")
		_ = logger.Sync()
	})

	assert.Empty(t, stdout)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stderr)), &line))
	assert.Equal(t, "dicebag", line["logger"])
	assert.Equal(t, "roll recorded", line["msg"])
}

func TestNewLogger_LevelFiltersOutput(t *testing.T) {
	_, stderr := captureOutput(t, func() {
		logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
		require.NoError(t, err)
		logger.Info("quiet")
		logger.Warn("loud")
		_ = logger.Sync()
	})
	assert.NotContains(t, stderr, "quiet")
	assert.Contains(t, stderr, "loud")
}
