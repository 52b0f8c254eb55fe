package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/petasbytes/calagent/calendar"
	"github.com/petasbytes/calagent/internal/config"
	"github.com/petasbytes/calagent/internal/logging"
	"github.com/petasbytes/calagent/internal/store"
	"github.com/petasbytes/calagent/internal/telemetry"
)

// app holds what every subcommand needs once settings are resolved.
type app struct {
	cfg      *config.Config
	store    *store.Store
	calendar *calendar.Service
	logClose io.Closer
}

func bootstrap(ctx context.Context, cmd *cobra.Command) (*app, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logClose := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Stderr: true})
	telemetry.Configure(cfg.ObserveJSON, cfg.EventsDir)

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		_ = logClose.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    st,
		calendar: calendar.NewService(st),
		logClose: logClose,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.logClose.Close())
}
