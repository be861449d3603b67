package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config_types "www.velocidex.com/golang/macroscan/config/types"
)

func TestMemoryLogs(t *testing.T) {
	ClearMemoryLogs()

	logger := GetLogger(nil, &ScannerComponent)
	logger.WithField("scan_id", "1234").Info("Scanning %v", "book.xls")

	logs := GetMemoryLogs()
	require.Equal(t, 1, len(logs))
	assert.Contains(t, logs[0], "Scanning book.xls")
	assert.Contains(t, logs[0], "scan_id=1234")
	assert.Contains(t, logs[0], `component="MacroScan scanner"`)
}

func TestPrelogsAreReplayed(t *testing.T) {
	defer Manager.Reset()
	ClearMemoryLogs()

	Prelog("Loading config from %v", "macroscan.yaml")
	assert.Equal(t, 0, len(GetMemoryLogs()))

	require.NoError(t, InitLogging(&config_types.Config{}))

	logs := GetMemoryLogs()
	require.Equal(t, 1, len(logs))
	assert.Contains(t, logs[0], "Loading config from macroscan.yaml")
}

func TestLogFile(t *testing.T) {
	defer Manager.Reset()

	path := filepath.Join(t.TempDir(), "macroscan.log")
	err := InitLogging(&config_types.Config{
		Logging: &config_types.LoggingConfig{
			Level:      "info",
			OutputFile: path,
		},
	})
	require.NoError(t, err)

	logger := GetLogger(nil, &DetectorComponent)
	logger.Debug("below the level")
	logger.Warn("written to %v", "file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.NotContains(t, string(data), "below the level")
}

func TestBadLevel(t *testing.T) {
	defer Manager.Reset()

	err := InitLogging(&config_types.Config{
		Logging: &config_types.LoggingConfig{Level: "chatty"},
	})
	assert.Error(t, err)
}
