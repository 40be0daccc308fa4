// scened is the dashboard scene daemon. It accepts telemetry over a unix
// socket, aggregates it into a scene snapshot once per tick, drives the
// display wakefulness/backlight and streams the scene to WebSocket clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nikoskalogridis/scenestate/internal/device"
	"github.com/nikoskalogridis/scenestate/internal/hardware"
	"github.com/nikoskalogridis/scenestate/internal/ipc"
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/params"
	"github.com/nikoskalogridis/scenestate/internal/projection"
	"github.com/nikoskalogridis/scenestate/internal/scene"
	"github.com/nikoskalogridis/scenestate/internal/submaster"
	"github.com/nikoskalogridis/scenestate/internal/timeutil"
)

func main() {
	cmd := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string

		hw            string
		uiFreq        int
		width         int
		height        int
		backlightDir  string
		framesEnabled bool
		framesHz      int
		ipcSocket     string
		wsListen      string
		paramsPath    string
		logLevel      string
		logFormat     string
	)

	cmd := &cobra.Command{
		Use:   "scened",
		Short: "Dashboard scene state daemon",
		Long: `scened aggregates vehicle telemetry published on a unix socket into a
scene snapshot at a fixed tick rate, manages display wakefulness and
backlight, and streams the scene to WebSocket clients.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			path := defaultConfigPath
			if cmd.Flags().Changed("config") {
				path = configPath
			}
			loaded, err := loadConfig(ExpandPath(path), cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if loaded != nil {
				cfg = *loaded
			}

			flags := cmd.Flags()
			var ov FlagOverrides
			if flags.Changed("hardware") {
				ov.Hardware = &hw
			}
			if flags.Changed("ui-freq") {
				ov.UIFreq = &uiFreq
			}
			if flags.Changed("width") {
				ov.Width = &width
			}
			if flags.Changed("height") {
				ov.Height = &height
			}
			if flags.Changed("backlight-dir") {
				ov.BacklightDir = &backlightDir
			}
			if flags.Changed("frames") {
				ov.FramesEnabled = &framesEnabled
			}
			if flags.Changed("frames-hz") {
				ov.FramesHz = &framesHz
			}
			if flags.Changed("ipc-socket") {
				ov.IPCSocketPath = &ipcSocket
			}
			if flags.Changed("ws-listen") {
				ov.WSListenAddr = &wsListen
			}
			if flags.Changed("params-db") {
				ov.ParamsPath = &paramsPath
			}
			if flags.Changed("log-level") {
				ov.LogLevel = &logLevel
			}
			if flags.Changed("log-format") {
				ov.LogFormat = &logFormat
			}
			ov.Apply(&cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", defaultConfigPath, "Path to YAML config file")
	f.StringVar(&hw, "hardware", "pc", "Hardware type: pc, eon or tici")
	f.IntVar(&uiFreq, "ui-freq", scene.UIFreq, "Scene tick rate in Hz")
	f.IntVar(&width, "width", 1920, "Display width in pixels")
	f.IntVar(&height, "height", 1080, "Display height in pixels")
	f.StringVar(&backlightDir, "backlight-dir", "", "sysfs backlight directory (empty disables hardware writes)")
	f.BoolVar(&framesEnabled, "frames", true, "Pace onroad ticks with a synthetic camera stream")
	f.IntVar(&framesHz, "frames-hz", scene.UIFreq, "Synthetic camera frame rate in Hz")
	f.StringVar(&ipcSocket, "ipc-socket", defaultSocketPath, "Unix domain socket path for telemetry IPC")
	f.StringVar(&wsListen, "ws-listen", defaultListenAddr, "HTTP/WebSocket listen address")
	f.StringVar(&paramsPath, "params-db", "", "SQLite params database (empty keeps params in memory)")
	f.StringVar(&logLevel, "log-level", "info", "Log level: error, warn, info, debug")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

// loadConfig reads path. A missing file is only an error when the user asked
// for it explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func openParams(cfg ParamsConfig) (params.Store, func() error, error) {
	if cfg.Path == "" {
		return params.NewMemStore(cfg.Defaults), func() error { return nil }, nil
	}
	st, err := params.OpenSQLite(ExpandPath(cfg.Path))
	if err != nil {
		return nil, nil, err
	}
	if err := st.Seed(cfg.Defaults); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, st.Close, nil
}

func openDisplay(dir string, logger *slog.Logger) device.Hardware {
	if dir == "" {
		logger.Info("backlight disabled (no backlight_dir)")
		return hardware.Nop{}
	}
	bl, err := hardware.NewBacklight(ExpandPath(dir))
	if err != nil {
		logger.Warn("backlight unavailable, continuing without it", "dir", dir, "error", err)
		return hardware.Nop{}
	}
	return bl
}

func run(ctx context.Context, cfg Config) error {
	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	format, err := parseLogFormat(cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger := setupLogger(os.Stdout, level, format)

	sceneCfg, err := cfg.ToSceneConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openParams(cfg.Params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("params close failed", "error", err)
		}
	}()

	sm, err := submaster.New(msg.AllTopics)
	if err != nil {
		return err
	}

	clock := timeutil.NewBootClock()

	var frames scene.FrameSource
	if cfg.Frames.Enabled {
		frames = newPacedFrames(clock, cfg.Frames.Hz)
	}

	agg, err := scene.New(scene.Options{
		Config:    sceneCfg,
		SubMaster: sm,
		Params:    store,
		Clock:     clock,
		Projector: projection.NewProjector(sceneCfg.Hardware, sceneCfg.Width, sceneCfg.Height),
		Frames:    frames,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	broadcasts := make(chan Broadcast, broadcastQueueSize)
	bc := newBroadcaster(broadcasts, agg.Snapshot, logger)
	agg.AddListener(bc)

	display := openDisplay(cfg.Device.BacklightDir, logger)
	worker := device.NewBrightnessWorker(display, logger)
	exec := device.NewExecutor(display, worker, logger)
	exec.OnPowerChange(bc.OnDisplayPower)
	dev := device.New(cfg.ToDeviceConfig())

	ipcSrv, err := ipc.Listen(ExpandPath(cfg.IPC.SocketPath), sm, logger)
	if err != nil {
		return fmt.Errorf("ipc: %w", err)
	}

	ws := NewServer(logger, agg.Snapshot, ServerConfig{
		Hub: HubConfig{SendBuf: cfg.WS.SendBuf, BroadcastBuf: cfg.WS.BroadcastBuf},
	})
	mux := http.NewServeMux()
	ws.Register(mux, cfg.WS.Path)

	logger.Debug("starting scened")
	logger.Debug("configuration",
		"hardware", sceneCfg.Hardware.String(),
		"ui_freq", sceneCfg.UIFreq,
		"width", sceneCfg.Width,
		"height", sceneCfg.Height,
		"frames_enabled", cfg.Frames.Enabled,
		"frames_hz", cfg.Frames.Hz,
		"ipc_socket", ipcSrv.Addr(),
		"ws_listen", cfg.WS.ListenAddr,
		"ws_path", cfg.WS.Path,
		"params_db", cfg.Params.Path,
		"backlight_dir", cfg.Device.BacklightDir,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ipcSrv.Serve(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		ws.Hub().Run(gctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error { return runHTTPServer(gctx, cfg.WS.ListenAddr, mux, logger) })
	g.Go(func() error {
		runDaemon(gctx, agg, dev, exec, logger)
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scened stopped with error", "error", err)
		return err
	}
	logger.Info("scened stopped")
	return nil
}
