package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoskalogridis/scenestate/internal/hardware"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Scene.UIFreq)
	assert.Equal(t, "pc", cfg.Scene.Hardware)
	assert.Equal(t, 100, cfg.Scene.OffroadIntervalMS)
	assert.Equal(t, 30.0, cfg.Device.AwakeTimeoutSec)
	assert.True(t, cfg.Frames.Enabled)
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	p := writeConfig(t, `
scene:
  hardware: tici
  width: 2160
device:
  backlight_offroad: 50
params:
  defaults:
    IsMetric: "1"
logging:
  level: debug
`)
	cfg, err := LoadConfigFile(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "tici", cfg.Scene.Hardware)
	assert.Equal(t, 2160, cfg.Scene.Width)
	assert.Equal(t, 1080, cfg.Scene.Height)
	assert.Equal(t, 50.0, cfg.Device.BacklightOffroad)
	assert.Equal(t, 0.2, cfg.Device.AccelThreshold)
	assert.Equal(t, map[string]string{"IsMetric": "1"}, cfg.Params.Defaults)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile_RejectsUnknownFields(t *testing.T) {
	p := writeConfig(t, "scene:\n  ui_frq: 10\n")
	_, err := LoadConfigFile(p)
	require.Error(t, err)
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	p := writeConfig(t, "scene:\n  width: 10\n---\nscene:\n  width: 20\n")
	_, err := LoadConfigFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing document")
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	_, err = LoadConfigFile("")
	require.Error(t, err)
}

func TestLoadConfig_DefaultPathMayBeMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	_, err = loadConfig(missing, true)
	require.Error(t, err)
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	hw := "eon"
	freq := 0
	frames := false
	sock := "/run/scened.sock"

	FlagOverrides{
		Hardware:      &hw,
		UIFreq:        &freq,
		FramesEnabled: &frames,
		IPCSocketPath: &sock,
	}.Apply(&cfg)

	assert.Equal(t, "eon", cfg.Scene.Hardware)
	// Zero values are applied too.
	assert.Equal(t, 0, cfg.Scene.UIFreq)
	assert.False(t, cfg.Frames.Enabled)
	assert.Equal(t, sock, cfg.IPC.SocketPath)
	assert.Equal(t, defaultListenAddr, cfg.WS.ListenAddr)
	require.Error(t, cfg.Validate())

	FlagOverrides{}.Apply(nil)
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]func(*Config){
		"ui_freq":       func(c *Config) { c.Scene.UIFreq = 2000 },
		"hardware":      func(c *Config) { c.Scene.Hardware = "pixel" },
		"size":          func(c *Config) { c.Scene.Width = 0 },
		"grade_samples": func(c *Config) { c.Scene.GradeSamples = 1 },
		"awake_timeout": func(c *Config) { c.Device.AwakeTimeoutSec = 0 },
		"offroad":       func(c *Config) { c.Device.BacklightOffroad = 101 },
		"frames_hz":     func(c *Config) { c.Frames.Hz = 0 },
		"ws_path":       func(c *Config) { c.WS.Path = "ws" },
		"log_level":     func(c *Config) { c.Logging.Level = "loud" },
		"log_format":    func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// Disabled frames skip the rate check.
	cfg := DefaultConfig()
	cfg.Frames.Enabled = false
	cfg.Frames.Hz = 0
	assert.NoError(t, cfg.Validate())
}

func TestToSceneAndDeviceConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scene.Hardware = "tici"
	cfg.Scene.OffroadIntervalMS = 250
	cfg.Device.AwakeTimeoutSec = 1.5

	sc, err := cfg.ToSceneConfig()
	require.NoError(t, err)
	assert.Equal(t, hardware.TICI, sc.Hardware)
	assert.Equal(t, 250*time.Millisecond, sc.OffroadInterval)
	assert.Equal(t, 5*time.Second, sc.ParamsCheckInterval)

	dc := cfg.ToDeviceConfig()
	assert.Equal(t, 1500*time.Millisecond, dc.AwakeTimeout)
	assert.Equal(t, 20, dc.UIFreq)

	cfg.Scene.Hardware = "bogus"
	_, err = cfg.ToSceneConfig()
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "x/y"), ExpandPath("~/x/y"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := parseLogLevel(" WARNING ")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, lvl)
	_, err = parseLogLevel("trace")
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, LogLevelWarn, LogFormatJSON)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, version, rec["version"])
	assert.Equal(t, float64(1), rec["k"])

	buf.Reset()
	setupLogger(&buf, LogLevelDebug, LogFormatText).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
	assert.Contains(t, buf.String(), "source=")

	f, err := parseLogFormat("")
	require.NoError(t, err)
	assert.Equal(t, LogFormatText, f)
}
