// Live caption server - captures audio, transcribes it and fans captions out to connected surfaces
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/archive"
	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/broadcast"
	"github.com/GriffinCanCode/livecaption/internal/config"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator/summary"
	"github.com/GriffinCanCode/livecaption/internal/server"
	"github.com/GriffinCanCode/livecaption/internal/transcription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	dispatcher, err := transcription.New(cfg.Transcription)
	if err != nil {
		slog.Error("failed to set up transcription", "backend", cfg.Transcription.ResolvedBackend(), "error", err)
		os.Exit(1)
	}
	defer func() { _ = dispatcher.Close() }()

	var remote summary.Remote
	if cfg.Summary.URL != "" {
		remote = summary.NewHFClient(cfg.Summary.URL, cfg.Summary.APIKey, cfg.Summary.Timeout)
	}
	summarizer := summary.NewGenerator(remote, summary.WithMinChars(cfg.Summary.MinChars))

	notifiers := broadcast.Notifiers{broadcast.LogNotifier{}}
	if cfg.Broadcast.WebhookURL != "" {
		notifiers = append(notifiers, broadcast.NewWebhookNotifier(cfg.Broadcast.WebhookURL, cfg.Broadcast.SendTimeout))
	}
	hub := broadcast.NewHub(notifiers, broadcast.Options{
		ExcludeSource: cfg.Broadcast.ExcludeSource,
		SendTimeout:   cfg.Broadcast.SendTimeout,
	})

	source := audio.NewDeviceSource(audio.DeviceConfig{
		SampleRate:      cfg.Capture.SampleRate,
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
		Queue:           cfg.Capture.FrameQueue,
		Excluded:        cfg.Capture.ExcludedDevices,
	})
	defer func() { _ = source.Close() }()

	var orchOpts []orchestrator.Option
	srvOpts := []server.Option{server.WithSurfaceQueue(cfg.Broadcast.SurfaceQueue)}
	if cfg.Archive.Path != "" {
		arc, err := archive.New(cfg.Archive)
		if err != nil {
			slog.Error("failed to open archive", "path", cfg.Archive.Path, "error", err)
			os.Exit(1)
		}
		defer func() { _ = arc.Close() }()
		orchOpts = append(orchOpts, orchestrator.WithRecorder(arc))
		srvOpts = append(srvOpts, server.WithArchive(arc.Store()))
	}

	orch := orchestrator.New(source, dispatcher, summarizer, hub, orchestrator.NewConfig(cfg), orchOpts...)
	srv := server.New(orch, hub, srvOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		if err := orch.Run(ctx); err != nil {
			slog.Error("orchestrator error", "error", err)
		}
	}()

	// WriteTimeout stays unset: WebSocket connections are long-lived.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("caption server starting",
			"http", cfg.HTTPAddr,
			"transcription", dispatcher.Backend(),
			"archive", cfg.Archive.Path != "")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	<-orchDone
	slog.Info("shutdown complete")
}
