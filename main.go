// barpulse is a status line generator for swaybar and i3bar.
//
// It follows the focused window title over the sway/i3 IPC socket, keeps a
// minute-aligned clock and, optionally, battery and load readings, and
// writes the i3bar JSON protocol to stdout whenever any of them changes.
//
// Usage:
//
//	barpulse [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/barpulse/config.toml)
//	-ctl string     Send a command (HEALTH|REFRESH|SNAPSHOT) to a running barpulse and exit
//	-output string  Override the output mode (i3bar|preview|auto)
//	-verbose        Enable verbose logging
//	-version        Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/daemon"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		ctlCommand  = flag.String("ctl", "", "Send a command (HEALTH|REFRESH|SNAPSHOT) to a running barpulse and exit")
		output      = flag.String("output", "", "Override the output mode (i3bar|preview|auto)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("barpulse %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Output = *output
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if *ctlCommand != "" {
		os.Exit(runCtl(cfg.Control.Socket, *ctlCommand))
	}

	// Setup logging. Stdout carries the bar protocol, so logs go to stderr
	// and, if configured, a log file.
	logLevel, _ := config.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = slog.LevelDebug
	}
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
			os.Exit(1)
		}
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stderr, logFile)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := newAgent(cfg, logger, os.Stdout, useTerminal(cfg.Output, os.Stdout))
	logger.Info("starting barpulse",
		"version", version,
		"output", cfg.Output,
		"power", cfg.Power.Enabled,
		"sysmetrics", cfg.SysMetrics.Enabled,
	)
	if err := a.run(ctx); err != nil {
		logger.Error("barpulse stopped", "error", err)
		cancel()
		os.Exit(1)
	}
}

// useTerminal reports whether the preview sink should be used.
func useTerminal(mode string, f *os.File) bool {
	switch mode {
	case config.OutputPreview:
		return true
	case config.OutputAuto:
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// runCtl sends one control command and prints the response.
func runCtl(socket, cmd string) int {
	if socket == "" {
		fmt.Fprintln(os.Stderr, "control.socket is not configured")
		return 1
	}
	resp, err := daemon.NewIPCClient(socket).SendCommand(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Println(resp)
	return 0
}
