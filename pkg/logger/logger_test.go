package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(Config{LogFile: path, LogLevel: "info", AppName: "form-builder"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("saved form")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"msg":"saved form"`)
	assert.Contains(t, out, `"app":"form-builder"`)
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestGet_BeforeInit(t *testing.T) {
	assert.NotNil(t, Get())
}
