package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"persona/internal/config"
	"persona/internal/logger"
	"persona/internal/roster"
	"persona/internal/storage"
	"persona/internal/task"
)

// App is everything a command needs, opened from one config file.
type App struct {
	Config config.Config
	Log    *zap.Logger
	Store  *storage.Store
	Tasks  *task.Manager
	Roster *roster.Roster
}

func Open(ctx context.Context, configPath string) (*App, error) {
	firstLaunch := false
	if _, err := os.Stat(configPath); err != nil {
		firstLaunch = errors.Is(err, os.ErrNotExist)
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	if firstLaunch {
		log.Info("wrote default config", zap.String("path", configPath))
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Sync(log)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &App{Config: cfg, Log: log, Store: store}
	if err := app.load(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) load(ctx context.Context) error {
	fallback, err := task.ParseKind(a.Config.Backend)
	if err != nil {
		return err
	}
	a.Tasks = task.NewManager(a.Store, task.Options{Logger: a.Log.Named("tasks")})
	if err := a.Tasks.Init(ctx, fallback); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	a.Roster = roster.New(a.Store, a.Log.Named("roster"))
	if err := a.Roster.Load(ctx); err != nil {
		return fmt.Errorf("failed to load characters: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	logger.Sync(a.Log)
	return a.Store.Close()
}
