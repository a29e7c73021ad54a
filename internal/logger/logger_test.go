package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Config{Level: "debug", File: path})

	log.Debug("access code issued", zap.String("cpf", "*********25"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.HasPrefix(line, "{"), "file sink should be JSON")
	assert.Contains(t, line, `"msg":"access code issued"`)
	assert.Contains(t, line, `"level":"DEBUG"`)
}

func TestNew_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Config{Level: "warn", File: path})

	log.Info("ignored")
	log.Warn("kept")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ignored")
	assert.Contains(t, string(data), "kept")
}
