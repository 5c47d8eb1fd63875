package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{BaseURL: srv.URL, Token: "secret", Timeout: 5 * time.Second})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// =====================================================
// Backend Operations
// =====================================================

func TestListMeetings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/meetings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"meetings":[
			{"id":"m-1","title":"Standup","created_at":"2026-01-02T15:04:05Z","status":"ready_for_download",
			 "progress":100,"storage_location":"local","has_transcript":true,"has_summary":true},
			{"id":"m-2","title":"Retro","created_at":"2026-01-03T10:00:00Z","status":"processing","progress":40,
			 "storage_location":"cloud"}
		]}`))
	})

	meetings, err := c.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, meetings, 2)

	assert.Equal(t, "m-1", meetings[0].ID)
	assert.Equal(t, "ready_for_download", meetings[0].Status)
	assert.Equal(t, models.StorageTierLocal, meetings[0].StorageLocation)
	assert.True(t, meetings[0].HasSummary)
	assert.Equal(t, 2026, meetings[0].CreatedAt.Year())
	assert.Equal(t, 40, meetings[1].Progress)
	assert.Equal(t, models.StorageTierCloud, meetings[1].StorageLocation)
}

func TestListMeetings_EmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	meetings, err := c.ListMeetings(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, meetings)
	assert.Empty(t, meetings)
}

func TestGetMeetingStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/m-1/status", r.URL.Path)
		writeJSON(t, w, models.MeetingStatus{Status: "transcribing", Progress: 35, Step: "Transcribing audio", HasTranscript: false})
	})

	status, err := c.GetMeetingStatus(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "transcribing", status.Status)
	assert.Equal(t, 35, status.Progress)
	assert.Equal(t, "Transcribing audio", status.Step)
}

func TestGetMeetingStatus_EscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/a%2Fb/status", r.URL.RawPath)
		writeJSON(t, w, models.MeetingStatus{Status: "queued"})
	})

	_, err := c.GetMeetingStatus(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestGetArtifactRetrievalDescriptor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/m-1/artifacts/offline-zip/link", r.URL.Path)
		writeJSON(t, w, models.RetrievalDescriptor{LocationURI: "https://bucket/x?sig=1", StorageTier: models.StorageTierCloud})
	})

	desc, err := c.GetArtifactRetrievalDescriptor(context.Background(), "m-1", models.ArtifactOfflineZip)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/x?sig=1", desc.LocationURI)
	assert.Equal(t, models.StorageTierCloud, desc.StorageTier)
}

func TestGetArtifactRetrievalDescriptor_MissingLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"storage_tier":"local"}`))
	})

	_, err := c.GetArtifactRetrievalDescriptor(context.Background(), "m-1", models.ArtifactSummary)
	assert.True(t, errors.IsTransport(err))
}

func TestConfirmDownloadComplete(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/meetings/m-1/confirm-download", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.ConfirmDownloadComplete(context.Background(), "m-1"))
	assert.Equal(t, 1, calls)
}

func TestGetCloudStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/m-1/cloud-status", r.URL.Path)
		w.Write([]byte(`{"storage_location":"cloud","transcript_in_cloud":true,"summary_in_cloud":false,"can_upload_to_cloud":true}`))
	})

	status, err := c.GetCloudStatus(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, models.CloudStatus{
		StorageLocation:   models.StorageTierCloud,
		TranscriptInCloud: true,
		SummaryInCloud:    false,
		CanUploadToCloud:  true,
	}, *status)
}

func TestOpenArtifact_RelativeLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/m-1/summary.txt", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte("summary body"))
	})

	body, err := c.OpenArtifact(context.Background(), "files/m-1/summary.txt")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "summary body", string(data))
}

func TestNoTokenSendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.GetMeetingStatus(context.Background(), "m-1")
	require.NoError(t, err)
}

// =====================================================
// Error Mapping
// =====================================================

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusForbidden, errors.ErrForbidden},
		{http.StatusUnprocessableEntity, errors.ErrNotReady},
		{http.StatusConflict, errors.ErrWrongStorage},
		{http.StatusNotFound, errors.ErrNotFound},
		{http.StatusInternalServerError, errors.ErrTransport},
		{http.StatusBadGateway, errors.ErrTransport},
		{http.StatusUnauthorized, errors.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := c.GetArtifactRetrievalDescriptor(context.Background(), "m-1", models.ArtifactTranscript)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestMalformedResponseIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.GetMeetingStatus(context.Background(), "m-1")
	assert.True(t, errors.IsTransport(err))
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.ListMeetings(context.Background())
	assert.True(t, errors.IsTransport(err))
}

func TestCancelledContextIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListMeetings(ctx)
	assert.True(t, errors.IsTransport(err))
}

func TestNewClient_NilConfig(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, DefaultClientConfig().BaseURL, c.config.BaseURL)
}
