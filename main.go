package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"InkNote/internal/board"
	"InkNote/internal/config"
	"InkNote/internal/diag"
	"InkNote/internal/export"
	inknet "InkNote/internal/net"
	"InkNote/internal/recognize"
	"InkNote/internal/recognize/tesseract"
	"InkNote/internal/state"
	"InkNote/internal/surface"
	"InkNote/internal/ui"
)

func main() {
	args := os.Args[1:]
	var err error
	if len(args) > 0 && args[0] == "serve" {
		err = runService(args[1:])
	} else {
		err = runDesktop(args)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "inknote:", err)
		os.Exit(1)
	}
}

func loadConfig(path, level string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if level != "" {
		cfg.Log.Level = level
	}
	log := diag.NewLogger(cfg.Log.Level, os.Stderr).With("session", state.SessionID())
	return cfg, log, nil
}

func runDesktop(args []string) error {
	fs := flag.NewFlagSet("inknote", flag.ContinueOnError)
	cfgPath := fs.String("config", "inknote.toml", "config file (optional)")
	mode := fs.String("mode", "", "recognition mode: off|demo|remote")
	endpoint := fs.String("endpoint", "", "recognition service URL")
	level := fs.String("log-level", "", "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := loadConfig(*cfgPath, *level)
	if err != nil {
		return err
	}
	if *mode != "" {
		cfg.Recognition.Mode = *mode
	}
	if *endpoint != "" {
		cfg.Recognition.Endpoint = *endpoint
	}
	log.Info("starting desktop", "recognition", cfg.Recognition.Mode)

	opts, err := boardOptions(cfg, log)
	if err != nil {
		return err
	}
	b := board.New(opts)
	recMode, err := recognize.ParseMode(cfg.Recognition.Mode)
	if err != nil {
		return err
	}
	b.SetRecognitionMode(recMode)
	if cfg.Recognition.Endpoint == "" && cfg.Recognition.Discover {
		go discoverRemote(b, cfg, log)
	}
	ui.RunApp(b, ui.AppOptions{Padding: float32(cfg.Surface.Padding), Logger: log})
	return nil
}

func boardOptions(cfg config.Config, log *slog.Logger) (board.Options, error) {
	c, err := state.ParseColor(cfg.Stroke.Color)
	if err != nil {
		return board.Options{}, err
	}
	m, err := state.ParseMode(cfg.Stroke.Mode)
	if err != nil {
		return board.Options{}, err
	}
	pattern, err := export.ParsePattern(cfg.Surface.Background)
	if err != nil {
		return board.Options{}, err
	}
	opts := board.Options{
		Limits: surface.Limits{
			MaxWidth:       cfg.Surface.MaxWidth,
			MaxHeight:      cfg.Surface.MaxHeight,
			Padding:        cfg.Surface.Padding,
			FallbackWidth:  cfg.Surface.FallbackWidth,
			FallbackHeight: cfg.Surface.FallbackHeight,
		},
		Style:   state.Style{Color: c, Opacity: cfg.Stroke.Opacity, Width: cfg.Stroke.Width, Mode: m},
		Pattern: pattern,
		Recognition: recognize.Options{
			Margin:      cfg.Recognition.Margin,
			BottomSlack: cfg.Recognition.BottomSlack,
			Offset:      cfg.Recognition.Offset,
			Timeout:     cfg.Recognition.Timeout.Duration,
			Demo:        recognize.Demo{Delay: cfg.Recognition.DemoDelay.Duration, Text: cfg.Recognition.DemoText},
		},
		Logger: log,
	}
	if cfg.Recognition.Endpoint != "" {
		r, err := recognize.NewRemote(recognize.RemoteOptions{
			Endpoint: cfg.Recognition.Endpoint,
			Timeout:  cfg.Recognition.Timeout.Duration,
		})
		if err != nil {
			return board.Options{}, err
		}
		log.Info("recognition service configured", "url", r.Endpoint())
		opts.Remote = r
	}
	return opts, nil
}

func discoverRemote(b *board.Board, cfg config.Config, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ep, err := inknet.Discover(ctx, 5*time.Second, log)
	if err != nil {
		log.Warn("no recognition service discovered", "err", err)
		return
	}
	r, err := recognize.NewRemote(recognize.RemoteOptions{Endpoint: ep.URL(), Timeout: cfg.Recognition.Timeout.Duration})
	if err != nil {
		log.Warn("discovered endpoint unusable", "addr", ep.Addr, "err", err)
		return
	}
	b.SetRemote(r)
	log.Info("using discovered recognition service", "url", r.Endpoint(), "name", ep.Name)
}

func runService(args []string) error {
	fs := flag.NewFlagSet("inknote serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "inknote.toml", "config file (optional)")
	listen := fs.String("listen", "", "listen address, e.g. :8787")
	engine := fs.String("engine", "", "azure|tesseract")
	advertise := fs.Bool("advertise", false, "announce the service over mDNS")
	level := fs.String("log-level", "", "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := loadConfig(*cfgPath, *level)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Service.Listen = *listen
	}
	if *engine != "" {
		cfg.Service.Engine = *engine
	}
	cfg.Service.Advertise = cfg.Service.Advertise || *advertise
	if err := cfg.Validate(); err != nil {
		return err
	}

	var rec recognize.Recognizer
	switch cfg.Service.Engine {
	case "tesseract":
		rec = tesseract.New(cfg.Service.Languages...)
		if !tesseract.Linked {
			log.Warn("tesseract support not compiled in (build with -tags tesseract); every request will fail", "code", string(diag.CodeConfig))
		}
	default:
		rec = recognize.NewAzure(recognize.AzureOptions{
			Endpoint:     cfg.Service.AzureEndpoint,
			Key:          cfg.Service.AzureKey,
			PollInterval: cfg.Service.PollInterval.Duration,
			PollAttempts: cfg.Service.PollAttempts,
			Logger:       log,
		})
		if cfg.Service.AzureEndpoint == "" || cfg.Service.AzureKey == "" {
			log.Warn("azure credentials missing; every request will fail", "code", string(diag.CodeConfig))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := inknet.NewService(cfg.Service.Engine, rec, log)
	err = svc.ListenAndServe(ctx, cfg.Service.Listen, func(port int) {
		if !cfg.Service.Advertise {
			return
		}
		server, err := inknet.Advertise(port, cfg.Service.Engine, log)
		if err != nil {
			log.Warn("mDNS advertisement failed", "err", err)
			return
		}
		go func() {
			<-ctx.Done()
			_ = server.Shutdown()
		}()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
