// Package app wires the meetsync components from a Config.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/api"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/config"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/db"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/services"
	syncpkg "github.com/sidn405/ai-meeting-notes-sub000/internal/sync"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/scheduler"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/storage"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// FilesDir is the artifact directory inside the data directory.
const FilesDir = "files"

// App holds every long-lived component.
type App struct {
	Config     *config.Config
	DB         *db.DB
	Repo       *db.Repository
	Client     *api.Client
	Metrics    *telemetry.Metrics
	Cache      *syncpkg.Cache
	Downloader *syncpkg.Downloader
	Poller     *poller.Poller
	Scheduler  *scheduler.Scheduler
	Service    *services.MeetingService
}

// New opens the ledger and builds the component graph.
func New(cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	repo := db.NewRepository(database.DB)
	metrics := telemetry.New(nil)

	client := api.NewClient(&api.ClientConfig{
		BaseURL: cfg.BackendURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
	})

	store := storage.NewFileStore(filepath.Join(cfg.DataDir, FilesDir))
	cache := syncpkg.NewCache(repo, store, metrics)

	downloader := syncpkg.NewDownloader(
		client,
		syncpkg.DefaultFetchers(client, cfg.RequestTimeout),
		cache,
		&syncpkg.DownloaderConfig{FetchTimeout: cfg.RequestTimeout},
		metrics,
	)

	p := poller.NewPoller(client, &poller.PollerConfig{
		Interval:     cfg.PollInterval,
		FetchTimeout: cfg.RequestTimeout,
	}, metrics)

	sched := scheduler.NewScheduler(client, downloader, &scheduler.SchedulerConfig{
		Interval:          cfg.AutoSync.Interval,
		RunOnStart:        cfg.AutoSync.RunOnStart,
		RequiredArtifacts: cfg.AutoSync.RequiredArtifacts,
	}, metrics)

	return &App{
		Config:     cfg,
		DB:         database,
		Repo:       repo,
		Client:     client,
		Metrics:    metrics,
		Cache:      cache,
		Downloader: downloader,
		Poller:     p,
		Scheduler:  sched,
		Service:    services.NewMeetingService(client, p, downloader, cache, sched),
	}, nil
}

// Close stops background work and closes the ledger.
func (a *App) Close() error {
	a.Service.Close()
	if err := a.Repo.Close(); err != nil {
		a.DB.Close()
		return err
	}
	return a.DB.Close()
}
