// Package app wires together configuration, the BODACC client, the query
// engine and the local store into a single Deps struct that commands
// receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/derickschaefer/bodacc/internal/bodacc"
	"github.com/derickschaefer/bodacc/internal/config"
	"github.com/derickschaefer/bodacc/internal/engine"
	"github.com/derickschaefer/bodacc/internal/store"
	"github.com/derickschaefer/bodacc/internal/weather"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store stays nil until OpenStore or RequireStore is called.
type Deps struct {
	Config *config.Config
	Client *bodacc.Client
	Engine *engine.Engine
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := bodacc.NewClient(cfg.BaseURL, cfg.Dataset, cfg.Timeout, cfg.Rate, cfg.Debug)
	return &Deps{
		Config: cfg,
		Client: client,
		Engine: engine.New(client, EngineOptions(cfg)),
	}
}

// EngineOptions maps configuration onto engine options.
func EngineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Timeout:        cfg.Timeout,
		Concurrency:    cfg.Concurrency,
		CacheTTL:       cfg.CacheTTL,
		CacheMaxSize:   cfg.CacheMaxSize,
		Thresholds:     weather.Thresholds{Positive: cfg.PositiveThreshold, Negative: cfg.NegativeThreshold},
		ReferenceMonth: cfg.ReferenceMonth,
		CreationsOnly:  cfg.CreationsOnly,
		Logger:         slog.Default(),
	}
}

// OpenStore opens the local database if it is not open yet.
func (d *Deps) OpenStore() error {
	if d.Store != nil {
		return nil
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// RequireStore is OpenStore with a friendlier error for commands that
// cannot run without the database.
func (d *Deps) RequireStore() error {
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path: set db_path in config.json or %s", config.EnvDBPath)
	}
	if err := d.OpenStore(); err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	return nil
}

// Close releases the store, if open. Safe to call more than once.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
