// Package api provides the HTTP client for the meeting backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// maxErrorBody caps how much of a failed response is kept in the error message.
const maxErrorBody = 512

// ClientConfig holds backend connection configuration.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://localhost:8000",
		Timeout: 60 * time.Second,
	}
}

// Client implements Backend over HTTP/JSON with bearer token auth.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Client. A nil config uses DefaultClientConfig.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// =====================================================
// Backend Operations
// =====================================================

type meetingsResponse struct {
	Meetings []models.Meeting `json:"meetings"`
}

// ListMeetings returns every meeting visible to the account.
func (c *Client) ListMeetings(ctx context.Context) ([]models.Meeting, error) {
	var resp meetingsResponse
	if err := c.getJSON(ctx, "/api/meetings", &resp); err != nil {
		return nil, err
	}
	if resp.Meetings == nil {
		resp.Meetings = []models.Meeting{}
	}
	return resp.Meetings, nil
}

// GetMeetingStatus returns the processing status of one meeting.
func (c *Client) GetMeetingStatus(ctx context.Context, meetingID string) (*models.MeetingStatus, error) {
	var status models.MeetingStatus
	if err := c.getJSON(ctx, meetingPath(meetingID, "status"), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetArtifactRetrievalDescriptor asks the backend where an artifact's bytes can be fetched from.
// It fails with FORBIDDEN on 403 and NOT_READY on 422.
func (c *Client) GetArtifactRetrievalDescriptor(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.RetrievalDescriptor, error) {
	var desc models.RetrievalDescriptor
	p := meetingPath(meetingID, "artifacts", string(artifact), "link")
	if err := c.getJSON(ctx, p, &desc); err != nil {
		return nil, err
	}
	if desc.LocationURI == "" {
		return nil, errors.New(errors.ErrTransport, "retrieval descriptor has no location")
	}
	return &desc, nil
}

// ConfirmDownloadComplete tells the backend the device holds every required artifact.
func (c *Client) ConfirmDownloadComplete(ctx context.Context, meetingID string) error {
	resp, err := c.do(ctx, http.MethodPost, c.resolve(meetingPath(meetingID, "confirm-download")))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// GetCloudStatus reports where a meeting's files are stored.
func (c *Client) GetCloudStatus(ctx context.Context, meetingID string) (*models.CloudStatus, error) {
	var status models.CloudStatus
	if err := c.getJSON(ctx, meetingPath(meetingID, "cloud-status"), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// OpenArtifact starts an authenticated GET for a backend-hosted artifact.
// Relative locations are resolved against the base URL. The caller closes the body.
func (c *Client) OpenArtifact(ctx context.Context, locationURI string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, c.resolve(locationURI))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// =====================================================
// Request Helpers
// =====================================================

func meetingPath(meetingID string, parts ...string) string {
	segs := []string{"/api/meetings", url.PathEscape(meetingID)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

// resolve turns a path or absolute URL into a request URL.
func (c *Client) resolve(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, c.resolve(path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrTransport, "failed to decode response", err)
	}
	return nil
}

// do executes a request and maps transport failures and non-2xx statuses to coded errors.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	auth := ""
	if c.config.Token != "" {
		auth = "Bearer " + c.config.Token
	}
	return Do(ctx, c.httpClient, method, rawURL, auth)
}

// Do issues a bodiless request with an optional Authorization header and maps
// failures to coded errors. It is shared by the backend client and artifact fetchers.
func Do(ctx context.Context, httpClient *http.Client, method, rawURL, authorization string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "failed to create request", err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransport, fmt.Sprintf("%s %s failed", method, req.URL.Path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, ErrorForStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// ErrorForStatus maps a non-2xx HTTP status to the error taxonomy.
func ErrorForStatus(status int, body string) error {
	msg := fmt.Sprintf("backend returned status %d", status)
	if body != "" {
		msg += ": " + body
	}

	switch status {
	case http.StatusForbidden:
		return errors.New(errors.ErrForbidden, msg)
	case http.StatusUnprocessableEntity:
		return errors.New(errors.ErrNotReady, msg)
	case http.StatusConflict:
		return errors.New(errors.ErrWrongStorage, msg)
	case http.StatusNotFound:
		return errors.New(errors.ErrNotFound, msg)
	default:
		return errors.New(errors.ErrTransport, msg)
	}
}
