package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"milliseconds", "500ms", 500 * time.Millisecond, false},
		{"seconds", "10s", 10 * time.Second, false},
		{"complex", "1m30s", 90 * time.Second, false},
		{"invalid", "soon", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 7624, cfg.Port)
	assert.Equal(t, "1.7", cfg.Version)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout.Duration)
	assert.Equal(t, datasize.MB, cfg.MaxRecordSize)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "<getProperties version='1.7'/>", cfg.Request())
	assert.Len(t, cfg.ClientOptions(), 3)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "indiread.toml", `
host = "10.0.0.5"
port = 7625
device = "CCD Simulator"
property = "CCD_EXPOSURE"
match = "<def*"
poll_interval = "250ms"
max_record_size = "64KB"
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 7625, cfg.Port)
	assert.Equal(t, "<def*", cfg.Match)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout.Duration, "default kept")
	assert.Equal(t, 64*datasize.KB, cfg.MaxRecordSize)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "<getProperties version='1.7' device='CCD Simulator' name='CCD_EXPOSURE'/>", cfg.Request())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "indiread.yaml", `
host: localhost
device: Telescope Simulator
connect_timeout: 3s
max_record_size: 2MB
metrics_addr: ":9108"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 7624, cfg.Port)
	assert.Equal(t, "Telescope Simulator", cfg.Device)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout.Duration)
	assert.Equal(t, 2*datasize.MB, cfg.MaxRecordSize)
	assert.Equal(t, ":9108", cfg.MetricsAddr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "indiread.ini", "host=x"))
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("bad toml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.toml", "port = = 1"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "poll_interval: soon\n"))
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		_, err := Load(writeFile(t, "port.toml", "port = 70000\n"))
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("unknown log level", func(t *testing.T) {
		_, err := Load(writeFile(t, "level.toml", `log_level = "loud"`))
		assert.ErrorContains(t, err, "unknown log level")
	})
}

func TestValidate_MaxRecordSizeOverflow(t *testing.T) {
	cfg := Default()
	cfg.MaxRecordSize = datasize.ByteSize(math.MaxInt) + 1
	assert.ErrorContains(t, cfg.Validate(), "max_record_size")

	cfg.MaxRecordSize = datasize.ByteSize(math.MaxInt)
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
