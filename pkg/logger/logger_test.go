package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "nested", "degiro.log")
	require.NoError(t, Init(Config{Level: "debug", OutputFile: file, Console: &console}))
	defer Close()

	WithField("account", 1001).Debug("hello")
	Infof("quote %s", "ok")

	assert.Contains(t, console.String(), "hello")
	assert.Contains(t, console.String(), "account=1001")
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	require.NoError(t, Close())
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "quote ok")
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Config{Level: "loud", Console: &console, JSON: true}))
	Debugf("hidden")
	Warnf("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), `"msg":"shown"`)
}
