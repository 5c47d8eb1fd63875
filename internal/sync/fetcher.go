package sync

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/api"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// Fetcher opens the bytes behind a retrieval descriptor's location.
// The location is opaque; each storage tier has its own fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, locationURI string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(ctx context.Context, locationURI string) (io.ReadCloser, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, locationURI string) (io.ReadCloser, error) {
	return f(ctx, locationURI)
}

// PresignedFetcher downloads from pre-signed object storage URLs.
// The URL carries its own authorization, so no credentials are sent.
type PresignedFetcher struct {
	httpClient *http.Client
}

// NewPresignedFetcher creates a new PresignedFetcher.
func NewPresignedFetcher(timeout time.Duration) *PresignedFetcher {
	return &PresignedFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		},
	}
}

// Fetch starts a GET for locationURI. The caller closes the body.
func (f *PresignedFetcher) Fetch(ctx context.Context, locationURI string) (io.ReadCloser, error) {
	resp, err := api.Do(ctx, f.httpClient, http.MethodGet, locationURI, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DefaultFetchers wires the local tier to the authenticated backend client
// and the cloud tier to pre-signed URLs.
func DefaultFetchers(client *api.Client, timeout time.Duration) map[models.StorageTier]Fetcher {
	return map[models.StorageTier]Fetcher{
		models.StorageTierLocal: FetcherFunc(client.OpenArtifact),
		models.StorageTierCloud: NewPresignedFetcher(timeout),
	}
}
