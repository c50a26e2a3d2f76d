package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"medcapture/internal/api"
	"medcapture/internal/config"
	"medcapture/internal/database"
	"medcapture/internal/logger"
	"medcapture/internal/shutdown"
	"medcapture/internal/storage"
	"medcapture/internal/vision"
)

func runServe(cfg config.Config, log logger.Logger, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &api.App{
		Pipeline:      newPipeline(cfg, log, newTracker(log)),
		Storage:       store,
		Captures:      database.NewCaptureRepository(db),
		Logger:        log,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	client, err := vision.NewClient(cfg.Vision, log)
	switch {
	case errors.Is(err, vision.ErrNotConfigured):
		log.Warning("Server", "vision backend not configured, /vision requests will return 503", nil)
	case err != nil:
		db.Close()
		return err
	default:
		app.Vision = client
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	mgr := shutdown.NewManager(log, cfg.Server.ShutdownTimeout)
	mgr.Register("database", db)
	mgr.Register("http", shutdown.Func(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server", err, nil)
		}
	}))
	mgr.Listen()

	log.Info("Server", "listening", map[string]interface{}{
		"addr":    *addr,
		"codec":   cfg.Codec,
		"storage": store.BasePath(),
		"vision":  app.Vision != nil,
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mgr.Shutdown()
		return err
	}

	<-mgr.Done()
	return nil
}
