// Package main is the entry point for the wmkitd popup daemon.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	godbus "github.com/godbus/dbus/v5"

	"github.com/wmkit/wmkit/internal/audio"
	"github.com/wmkit/wmkit/internal/config"
	"github.com/wmkit/wmkit/internal/dbus"
	"github.com/wmkit/wmkit/internal/notify"
	"github.com/wmkit/wmkit/internal/render"
	"github.com/wmkit/wmkit/internal/x11"
	"github.com/wmkit/wmkit/internal/xkb"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to the config file (default: XDG config dir)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("wmkitd %s\n", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting wmkitd", "version", version)

	path := *configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	conn, err := x11.Connect(logger)
	if err != nil {
		logger.Error("failed to connect to X server", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	var bridge *xkb.Bridge
	if cfg.Keyboard.Enabled {
		bridge, err = xkb.New(conn.Raw(), logger)
		if err != nil {
			logger.Error("failed to initialize the XKB bridge", "error", err)
			os.Exit(1)
		}
		conn.SetEventHandler(bridge.HandleEvent)
	}

	renderer, err := render.New()
	if err != nil {
		logger.Error("failed to initialize the renderer", "error", err)
		os.Exit(1)
	}

	manager := notify.NewManager(cfg, conn, renderer, logger)
	conn.SetEnterHandler(manager.HandleEnter)
	conn.SetLeaveHandler(manager.HandleLeave)
	conn.SetButtonHandler(manager.HandleClick)

	var player *audio.Player
	if cfg.Audio.Enabled {
		player = audio.NewPlayer(cfg.Audio.Volume, logger)
		defer player.Close()
		manager.SetSoundPlayer(func(soundPath string) {
			if err := player.Play(soundPath); err != nil {
				logger.Warn("failed to play sound", "path", soundPath, "error", err)
			}
		})
	}

	bus, err := godbus.SessionBus()
	if err != nil {
		logger.Error("failed to connect to the session bus", "error", err)
		os.Exit(1)
	}

	server := dbus.NewNotificationServer(logger)
	server.SetNotifyHandler(func(req *dbus.Request) (uint32, error) {
		args := argsFromRequest(req)
		// The id is only known after Notify; the click can only race it
		// by firing before the popup is on screen.
		var assigned atomic.Uint32
		if hasDefaultAction(req) {
			args.OnRun = func() {
				id := assigned.Load()
				if id == 0 {
					return
				}
				if err := server.EmitActionInvoked(id, "default"); err != nil {
					logger.Warn("failed to emit ActionInvoked", "id", id, "error", err)
				}
			}
		}
		id, err := manager.Notify(args)
		if err == nil {
			assigned.Store(id)
		}
		return id, err
	})
	server.SetCloseHandler(func(id uint32) bool {
		return manager.DestroyByID(id, notify.ReasonClosed)
	})
	manager.SetClosedHandler(func(id uint32, reason notify.Reason) {
		if err := server.EmitNotificationClosed(id, dbus.CloseReason(reason)); err != nil {
			logger.Warn("failed to emit NotificationClosed", "id", id, "error", err)
		}
	})
	if err := server.Start(bus); err != nil {
		logger.Error("failed to start the notification server", "error", err)
		os.Exit(1)
	}
	defer func() { _ = server.Stop() }()

	var keyboard dbus.Keyboard
	if bridge != nil {
		keyboard = bridge
	}
	control := dbus.NewControlServer(manager, keyboard, logger)
	if err := control.Start(bus); err != nil {
		logger.Error("failed to start the control server", "error", err)
		os.Exit(1)
	}
	defer func() { _ = control.Stop() }()

	if bridge != nil {
		bridge.OnMapChanged(func() {
			if err := control.EmitMapChanged(); err != nil {
				logger.Warn("failed to emit MapChanged", "error", err)
			}
		})
		bridge.OnGroupChanged(func(group uint8) {
			if err := control.EmitGroupChanged(group); err != nil {
				logger.Warn("failed to emit GroupChanged", "group", group, "error", err)
			}
			if cfg.Keyboard.NotifyOnChange {
				announceLayout(manager, bridge, group, logger)
			}
		})
	}

	watcher, err := config.NewWatcher(path, func(next *config.Config) {
		logger.Info("config reloaded", "path", path)
		manager.UpdateConfig(next)
		if player != nil {
			player.SetVolume(next.Audio.Volume)
			player.ClearCache()
		}
	})
	if err != nil {
		logger.Warn("config hot reload unavailable", "error", err)
	} else {
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to start the config watcher", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	go conn.Run()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("sd_notify skipped", "error", err)
	}
	logger.Info("wmkitd ready", "bus", dbus.NotificationsInterface, "control", dbus.ControlBusName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	manager.CloseAll(notify.ReasonClosed)
	logger.Info("wmkitd stopped")
}

// argsFromRequest maps a raw freedesktop Notify call onto manager arguments,
// applying the urgency-to-preset mapping and hint overrides.
func argsFromRequest(req *dbus.Request) notify.Args {
	args := notify.Args{
		ReplacesID:    req.ReplacesID,
		AppName:       req.AppName,
		Title:         req.Summary,
		Body:          req.Body,
		Preset:        config.PresetForUrgency(req.Urgency()),
		Foreground:    req.ForegroundColor(),
		Background:    req.BackgroundColor(),
		BorderColor:   req.FrameColor(),
		SuppressSound: req.SuppressSound(),
	}

	// expire_timeout: -1 keeps the preset timeout, 0 means never expire.
	if req.ExpireTimeout >= 0 {
		d := time.Duration(req.ExpireTimeout) * time.Millisecond
		args.Timeout = &d
	}

	if img := req.ImageData(); img != nil {
		args.IconImage = img
	} else if path := req.ImagePath(); path != "" {
		args.IconPath = path
	} else if req.AppIcon != "" {
		args.IconPath = req.AppIcon
	}

	return args
}

// hasDefaultAction reports whether the request names a "default" action,
// the one a left click invokes.
func hasDefaultAction(req *dbus.Request) bool {
	for _, action := range req.ParsedActions() {
		if action.Key == "default" {
			return true
		}
	}
	return false
}

// announceLayout pops up the name of the newly active layout group.
func announceLayout(manager *notify.Manager, bridge *xkb.Bridge, group uint8, logger *slog.Logger) {
	text := fmt.Sprintf("group %d", group)
	if symbols, err := bridge.GroupNames(); err != nil {
		logger.Warn("failed to read group names", "error", err)
	} else if names := xkb.ParseSymbols(symbols); int(group) < len(names) {
		text = names[group]
	}
	timeout := 2 * time.Second
	if _, err := manager.Notify(notify.Args{
		AppName:       "wmkitd",
		Title:         "Keyboard layout",
		Body:          text,
		Preset:        "low",
		Timeout:       &timeout,
		SuppressSound: true,
	}); err != nil {
		logger.Warn("failed to show layout popup", "error", err)
	}
}
