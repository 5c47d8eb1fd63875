package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// ArtifactSource resolves where an artifact's bytes can be fetched from.
type ArtifactSource interface {
	GetArtifactRetrievalDescriptor(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.RetrievalDescriptor, error)
}

// DownloaderConfig holds download manager configuration.
type DownloaderConfig struct {
	// FetchTimeout bounds one shared descriptor request plus byte transfer.
	FetchTimeout time.Duration
}

// DefaultDownloaderConfig returns the default downloader configuration.
func DefaultDownloaderConfig() *DownloaderConfig {
	return &DownloaderConfig{
		FetchTimeout: 60 * time.Second,
	}
}

// Downloader materializes meeting artifacts into the local cache.
//
// The cache is checked before any network call. Concurrent calls for the same
// (meeting, artifact) share one fetch. A failed fetch leaves the cache as it was.
type Downloader struct {
	source   ArtifactSource
	fetchers map[models.StorageTier]Fetcher
	cache    *Cache
	config   *DownloaderConfig
	metrics  *telemetry.Metrics

	inflight singleflight.Group
}

// NewDownloader creates a new Downloader. A nil config uses DefaultDownloaderConfig.
func NewDownloader(source ArtifactSource, fetchers map[models.StorageTier]Fetcher, cache *Cache, config *DownloaderConfig, metrics *telemetry.Metrics) *Downloader {
	if config == nil {
		config = DefaultDownloaderConfig()
	}
	return &Downloader{
		source:   source,
		fetchers: fetchers,
		cache:    cache,
		config:   config,
		metrics:  metrics,
	}
}

// Download returns the cached record for artifact, fetching it first on a cache miss.
//
// Cancelling ctx abandons the wait, not the fetch: other callers waiting on the
// same artifact still get the result, and a completed fetch is kept in the cache.
func (d *Downloader) Download(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.CachedFileRecord, error) {
	if !artifact.IsValid() {
		return nil, errors.New(errors.ErrInvalid, fmt.Sprintf("unknown artifact type %q", artifact))
	}

	rec, found, err := d.cache.Lookup(meetingID, artifact.Filename())
	if err != nil {
		d.metrics.ObserveDownload(string(artifact), resultLabel(err))
		return nil, err
	}
	if found {
		d.metrics.ObserveDownload(string(artifact), telemetry.ResultCacheHit)
		return rec, nil
	}

	key := meetingID + "/" + string(artifact)
	detached := context.WithoutCancel(ctx)
	ch := d.inflight.DoChan(key, func() (interface{}, error) {
		return d.fetch(detached, meetingID, artifact)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrTransport, "download abandoned", ctx.Err())
	case res := <-ch:
		if res.Shared {
			d.metrics.ObserveDeduped()
		}
		if res.Err != nil {
			d.metrics.ObserveDownload(string(artifact), resultLabel(res.Err))
			return nil, res.Err
		}
		out := res.Val.(fetchResult)
		if out.cached {
			d.metrics.ObserveDownload(string(artifact), telemetry.ResultCacheHit)
		} else {
			d.metrics.ObserveDownload(string(artifact), telemetry.ResultDownloaded)
		}
		return out.rec, nil
	}
}

type fetchResult struct {
	rec    *models.CachedFileRecord
	cached bool
}

// fetch runs once per in-flight key.
func (d *Downloader) fetch(ctx context.Context, meetingID string, artifact models.ArtifactType) (fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.FetchTimeout)
	defer cancel()

	// A flight that finished between our lookup and joining the group has already stored the file
	if rec, found, err := d.cache.Lookup(meetingID, artifact.Filename()); err == nil && found {
		return fetchResult{rec: rec, cached: true}, nil
	}

	start := time.Now()

	desc, err := d.source.GetArtifactRetrievalDescriptor(ctx, meetingID, artifact)
	if err != nil {
		return fetchResult{}, err
	}

	fetcher, ok := d.fetchers[desc.StorageTier]
	if !ok {
		return fetchResult{}, errors.New(errors.ErrWrongStorage,
			fmt.Sprintf("no fetcher for storage tier %q", desc.StorageTier))
	}

	body, err := fetcher.Fetch(ctx, desc.LocationURI)
	if err != nil {
		return fetchResult{}, err
	}
	defer body.Close()

	rec, err := d.cache.Store(meetingID, artifact, body)
	if err != nil {
		return fetchResult{}, err
	}

	d.metrics.ObserveFetch(string(artifact), string(desc.StorageTier), rec.SizeBytes, time.Since(start))
	logging.Info("Artifact downloaded", map[string]interface{}{
		"meeting_id":   meetingID,
		"artifact":     string(artifact),
		"storage_tier": string(desc.StorageTier),
		"size_bytes":   rec.SizeBytes,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return fetchResult{rec: rec}, nil
}

func resultLabel(err error) string {
	return strings.ToLower(string(errors.CodeOf(err)))
}
