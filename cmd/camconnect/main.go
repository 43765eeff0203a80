package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camconnect/internal/config"
	"camconnect/internal/monitor"
	"camconnect/internal/probe"
	"camconnect/internal/server"
	"camconnect/internal/tui"
	"camconnect/internal/wizard"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", "", "address for the web server (overrides listen_addr)")
		uiFlag     = flag.String("ui", "auto", "user interface: auto|tui|server")
		logPath    = flag.String("log", "", "log file (the terminal wizard discards logs without one)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	mode, err := resolveUIMode(*uiFlag, os.Stdout)
	if err != nil {
		log.Fatalf("ui mode: %v", err)
	}

	logger, closeLog, err := openLogger(*logPath, mode)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer closeLog()
	logger.Printf("Loaded %d step(s) from %s", len(cfg.Steps), *configPath)

	client := probe.NewClient()
	sampler := &probe.Sampler{
		Internet: probe.NewEchoProber(cfg.Probe.EchoURL, client),
		Timeout:  cfg.Timeout(),
	}
	if cfg.Probe.CheckDevice {
		sampler.Device = probe.NewResourceProber(cfg.Probe.DeviceURL, client)
	}

	history := monitor.NewHistory(cfg.Interval(), cfg.HistorySpan())
	ctrl := wizard.New(cfg.Policy(), cfg.Steps, sampler,
		wizard.WithInterval(cfg.Interval()),
		wizard.WithHistory(history),
		wizard.WithLogger(logger),
		wizard.WithPlatform(cfg.Platform),
	)
	if err := ctrl.Start(); err != nil {
		log.Fatalf("start wizard: %v", err)
	}
	defer ctrl.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mode == uiTerminal {
		err := tui.Run(ctx, ctrl, os.Stdout, tui.Options{
			NetworkName: cfg.NetworkName,
			CameraURL:   cfg.CameraURL,
		})
		if err != nil {
			logger.Printf("terminal wizard: %v", err)
		}
		return
	}

	srv := server.New(cfg.ListenAddr, ctrl, server.Info{
		NetworkName: cfg.NetworkName,
		CameraURL:   cfg.CameraURL,
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("camconnect listening on %s (probe every %s, echo %s)", cfg.ListenAddr, cfg.Interval(), cfg.Probe.EchoURL)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server error: %v", err)
	}
}

// openLogger keeps the alt-screen clean: the terminal wizard only logs to a file.
func openLogger(path string, mode uiMode) (*log.Logger, func(), error) {
	if path == "" {
		if mode == uiTerminal {
			return log.New(io.Discard, "", 0), func() {}, nil
		}
		return log.Default(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags), func() { _ = f.Close() }, nil
}
