package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nikoskalogridis/scenestate/internal/device"
	"github.com/nikoskalogridis/scenestate/internal/hardware"
	"github.com/nikoskalogridis/scenestate/internal/scene"
)

// Config is the top-level YAML configuration for the scened daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config.
type Config struct {
	Scene   SceneConfig   `yaml:"scene"`
	Device  DeviceConfig  `yaml:"device"`
	Frames  FramesConfig  `yaml:"frames"`
	IPC     IPCConfig     `yaml:"ipc"`
	WS      WSConfig      `yaml:"ws"`
	Params  ParamsConfig  `yaml:"params"`
	Logging LoggingConfig `yaml:"logging"`
}

type SceneConfig struct {
	UIFreq   int    `yaml:"ui_freq"`
	Hardware string `yaml:"hardware"` // pc, eon or tici
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`

	OffroadIntervalMS     int `yaml:"offroad_interval_ms"`
	ParamsCheckIntervalMS int `yaml:"params_check_interval_ms"`
	FrameTimeoutMS        int `yaml:"frame_timeout_ms"`

	GradeSamples  int     `yaml:"grade_samples"`
	GradeLenStepM float64 `yaml:"grade_len_step_m"`
}

type DeviceConfig struct {
	AwakeTimeoutSec float64 `yaml:"awake_timeout_sec"`
	AccelThreshold  float64 `yaml:"accel_threshold"`
	GyroThreshold   float64 `yaml:"gyro_threshold"`
	AccelSamples    int     `yaml:"accel_samples"`

	BacklightOffroad float64 `yaml:"backlight_offroad"`
	BacklightTS      float64 `yaml:"backlight_ts"`
	BacklightDT      float64 `yaml:"backlight_dt"`

	// BacklightDir is the sysfs backlight class directory. Empty disables
	// hardware writes.
	BacklightDir string `yaml:"backlight_dir"`
}

// FramesConfig drives the paced frame source standing in for the camera.
type FramesConfig struct {
	Enabled bool `yaml:"enabled"`
	Hz      int  `yaml:"hz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type WSConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	Path         string `yaml:"path"`
	SendBuf      int    `yaml:"send_buf"`
	BroadcastBuf int    `yaml:"broadcast_buf"`
}

type ParamsConfig struct {
	// Path is the SQLite database. Empty keeps params in memory.
	Path string `yaml:"path"`
	// Defaults are written for keys not yet present.
	Defaults map[string]string `yaml:"defaults"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	sc := scene.DefaultConfig()
	dc := device.DefaultConfig()
	return Config{
		Scene: SceneConfig{
			UIFreq:                sc.UIFreq,
			Hardware:              sc.Hardware.String(),
			Width:                 sc.Width,
			Height:                sc.Height,
			OffroadIntervalMS:     int(sc.OffroadInterval / time.Millisecond),
			ParamsCheckIntervalMS: int(sc.ParamsCheckInterval / time.Millisecond),
			FrameTimeoutMS:        int(sc.FrameTimeout / time.Millisecond),
			GradeSamples:          sc.GradeSamples,
			GradeLenStepM:         sc.GradeLenStep,
		},
		Device: DeviceConfig{
			AwakeTimeoutSec:  dc.AwakeTimeout.Seconds(),
			AccelThreshold:   dc.AccelThreshold,
			GyroThreshold:    dc.GyroThreshold,
			AccelSamples:     dc.AccelSamples,
			BacklightOffroad: dc.BacklightOffroad,
			BacklightTS:      dc.BacklightTS,
			BacklightDT:      dc.BacklightDT,
		},
		Frames: FramesConfig{
			Enabled: true,
			Hz:      sc.UIFreq,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		WS: WSConfig{
			ListenAddr:   defaultListenAddr,
			Path:         defaultWSPath,
			SendBuf:      32,
			BroadcastBuf: 128,
		},
		Params: ParamsConfig{
			Defaults: map[string]string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(LogFormatText),
		},
	}
}

// LoadConfigFile reads and parses a YAML config file over DefaultConfig.
// Unknown fields are rejected via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies command-line overrides on top of a loaded config.
// Each override is applied only if its pointer is non-nil.
type FlagOverrides struct {
	Hardware *string
	UIFreq   *int
	Width    *int
	Height   *int

	BacklightDir *string

	FramesEnabled *bool
	FramesHz      *int

	IPCSocketPath *string
	WSListenAddr  *string
	ParamsPath    *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg, zero values included.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Hardware != nil {
		cfg.Scene.Hardware = *o.Hardware
	}
	if o.UIFreq != nil {
		cfg.Scene.UIFreq = *o.UIFreq
	}
	if o.Width != nil {
		cfg.Scene.Width = *o.Width
	}
	if o.Height != nil {
		cfg.Scene.Height = *o.Height
	}
	if o.BacklightDir != nil {
		cfg.Device.BacklightDir = *o.BacklightDir
	}
	if o.FramesEnabled != nil {
		cfg.Frames.Enabled = *o.FramesEnabled
	}
	if o.FramesHz != nil {
		cfg.Frames.Hz = *o.FramesHz
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WSListenAddr != nil {
		cfg.WS.ListenAddr = *o.WSListenAddr
	}
	if o.ParamsPath != nil {
		cfg.Params.Path = *o.ParamsPath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// It is meant to run after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	if c.Scene.UIFreq <= 0 || c.Scene.UIFreq > 1000 {
		return errors.New("scene.ui_freq must be between 1 and 1000")
	}
	if _, err := hardware.ParseType(c.Scene.Hardware); err != nil {
		return fmt.Errorf("scene.hardware: %w", err)
	}
	if c.Scene.Width <= 0 || c.Scene.Height <= 0 {
		return errors.New("scene.width and scene.height must be > 0")
	}
	if c.Scene.OffroadIntervalMS <= 0 {
		return errors.New("scene.offroad_interval_ms must be > 0")
	}
	if c.Scene.ParamsCheckIntervalMS <= 0 {
		return errors.New("scene.params_check_interval_ms must be > 0")
	}
	if c.Scene.FrameTimeoutMS <= 0 {
		return errors.New("scene.frame_timeout_ms must be > 0")
	}
	if c.Scene.GradeSamples < 2 {
		return errors.New("scene.grade_samples must be >= 2")
	}
	if c.Scene.GradeLenStepM <= 0 {
		return errors.New("scene.grade_len_step_m must be > 0")
	}

	if c.Device.AwakeTimeoutSec <= 0 {
		return errors.New("device.awake_timeout_sec must be > 0")
	}
	if c.Device.AccelThreshold <= 0 || c.Device.GyroThreshold <= 0 {
		return errors.New("device.accel_threshold and device.gyro_threshold must be > 0")
	}
	if c.Device.AccelSamples <= 0 {
		return errors.New("device.accel_samples must be > 0")
	}
	if c.Device.BacklightOffroad < 0 || c.Device.BacklightOffroad > 100 {
		return errors.New("device.backlight_offroad must be between 0 and 100")
	}
	if c.Device.BacklightTS <= 0 || c.Device.BacklightDT <= 0 {
		return errors.New("device.backlight_ts and device.backlight_dt must be > 0")
	}

	if c.Frames.Enabled && (c.Frames.Hz <= 0 || c.Frames.Hz > 1000) {
		return errors.New("frames.hz must be between 1 and 1000")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.WS.ListenAddr == "" {
		return errors.New("ws.listen_addr must not be empty")
	}
	if c.WS.Path == "" || c.WS.Path[0] != '/' {
		return errors.New("ws.path must start with /")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := parseLogFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	return nil
}

// ToSceneConfig converts the file config into the aggregator config.
func (c *Config) ToSceneConfig() (scene.Config, error) {
	hw, err := hardware.ParseType(c.Scene.Hardware)
	if err != nil {
		return scene.Config{}, err
	}
	cfg := scene.DefaultConfig()
	cfg.UIFreq = c.Scene.UIFreq
	cfg.Hardware = hw
	cfg.Width = c.Scene.Width
	cfg.Height = c.Scene.Height
	cfg.OffroadInterval = time.Duration(c.Scene.OffroadIntervalMS) * time.Millisecond
	cfg.ParamsCheckInterval = time.Duration(c.Scene.ParamsCheckIntervalMS) * time.Millisecond
	cfg.FrameTimeout = time.Duration(c.Scene.FrameTimeoutMS) * time.Millisecond
	cfg.GradeSamples = c.Scene.GradeSamples
	cfg.GradeLenStep = c.Scene.GradeLenStepM
	return cfg, nil
}

// ToDeviceConfig converts the file config into the wakefulness config.
func (c *Config) ToDeviceConfig() device.Config {
	return device.Config{
		UIFreq:           c.Scene.UIFreq,
		AwakeTimeout:     time.Duration(c.Device.AwakeTimeoutSec * float64(time.Second)),
		AccelThreshold:   c.Device.AccelThreshold,
		GyroThreshold:    c.Device.GyroThreshold,
		AccelSamples:     c.Device.AccelSamples,
		BacklightOffroad: c.Device.BacklightOffroad,
		BacklightTS:      c.Device.BacklightTS,
		BacklightDT:      c.Device.BacklightDT,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
