package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ixwindow/ixwindow/internal/config"
	"github.com/ixwindow/ixwindow/internal/daemon"
	"github.com/ixwindow/ixwindow/internal/logger"
	"github.com/ixwindow/ixwindow/internal/x11"
)

const envPrefix = "IXWINDOW"

// Viper keys. With the IXWINDOW prefix each one can also be set from the
// environment, e.g. IXWINDOW_CONFIG_PATH.
const (
	keyConfigPath = "config_path"
	keyMonitor    = "monitor"
	keyLogLevel   = "log_level"
	keyWM         = "wm"
	keyNoWatch    = "no_watch"
)

// settings are the resolved global flags.
type settings struct {
	ConfigPath string
	Monitor    string
	LogLevel   string
	WM         string
	Watch      bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "ixwindow",
		Short: "Focused window icon and title for i3 and bspwm status bars",
		Long: `ixwindow prints the title of the focused window on stdout, one line per
change, and draws the application's icon at a fixed position on the bar.

It is meant to run as a custom module of a status bar such as polybar.
Logs go to stderr.`,
		Example: `  # Run on the primary monitor
  ixwindow

  # Run on a specific monitor with debug logging
  ixwindow --monitor HDMI-1 --log-level debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), loadSettings(v))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/ixwindow/ixwindow.toml)")
	flags.StringP("monitor", "m", "", "monitor output name (default is the RandR primary output)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("wm", "", "window manager section to use (i3 or bspwm; detected when empty)")
	cmd.Flags().Bool("no-watch", false, "do not reload the config file when it changes")

	_ = v.BindPFlag(keyConfigPath, flags.Lookup("config"))
	_ = v.BindPFlag(keyMonitor, flags.Lookup("monitor"))
	_ = v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(keyWM, flags.Lookup("wm"))
	_ = v.BindPFlag(keyNoWatch, cmd.Flags().Lookup("no-watch"))

	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		logger.Init(v.GetString(keyLogLevel))
	}

	cmd.AddCommand(newConfigCmd(v), newCacheCmd(v))
	return cmd
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		ConfigPath: v.GetString(keyConfigPath),
		Monitor:    v.GetString(keyMonitor),
		LogLevel:   v.GetString(keyLogLevel),
		WM:         v.GetString(keyWM),
		Watch:      !v.GetBool(keyNoWatch),
	}
}

// configPath returns the explicit path or the default location.
func (s settings) configPath() (string, error) {
	if s.ConfigPath != "" {
		return s.ConfigPath, nil
	}
	return config.DefaultConfigPath()
}

// resolveWM picks the config section: the --wm flag if given, otherwise the
// name the running window manager advertises. detect is only called when
// needed so commands that do not touch X work without a display.
func (s settings) resolveWM(detect func() (string, error)) (config.WM, error) {
	if s.WM != "" {
		return config.ParseWM(s.WM)
	}
	if detect == nil {
		return "", fmt.Errorf("no X connection to detect the window manager; pass --wm")
	}
	name, err := detect()
	if err != nil {
		return "", err
	}
	return config.ParseWM(name)
}

// loadConfig resolves the WM and loads its section. Logging is reconfigured
// from the file unless the level was given explicitly.
func (s settings) loadConfig(detect func() (string, error)) (*config.Config, error) {
	wm, err := s.resolveWM(detect)
	if err != nil {
		return nil, err
	}
	path, err := s.configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, wm)
	if err != nil {
		return nil, err
	}
	if s.LogLevel == "" && cfg.Log.Level != "" {
		logger.Init(cfg.Log.Level)
	}
	return cfg, nil
}

func runDaemon(ctx context.Context, s settings) error {
	log := logger.WithComponent("main")

	conn, err := x11.NewConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	cfg, err := s.loadConfig(conn.CurrentWMName)
	if err != nil {
		return err
	}

	monitor := s.Monitor
	if monitor == "" {
		monitor, err = conn.PrimaryMonitorName()
		if err != nil {
			return fmt.Errorf("resolve primary monitor (pass --monitor): %w", err)
		}
	}
	if _, err := conn.MonitorByName(monitor); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(conn, daemon.Options{
		Config:  cfg,
		Monitor: monitor,
		Out:     os.Stdout,
		Watch:   s.Watch,
	})
	if err := d.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("shutting down")
	return nil
}

// detectWM opens a short-lived X connection to read the WM name.
func detectWM() (string, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.CurrentWMName()
}
