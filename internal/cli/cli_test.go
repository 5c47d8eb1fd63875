package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/config"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
)

// =====================================================
// Test Helpers
// =====================================================

// testBackend serves the backend API from memory.
type testBackend struct {
	mu        sync.Mutex
	confirmed map[string]int
	fetches   int
}

func newTestBackend(t *testing.T) (*testBackend, *httptest.Server) {
	t.Helper()
	b := &testBackend{confirmed: map[string]int{}}

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/meetings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"meetings": []map[string]interface{}{
			{"id": "m-1", "status": "ready_for_download", "progress": 100},
			{"id": "m-2", "status": "transcribing", "progress": 30},
		}})
	})
	mux.HandleFunc("GET /api/meetings/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		raw := "completed"
		if r.PathValue("id") == "broken" {
			raw = "failed"
		}
		writeJSON(w, map[string]interface{}{"status": raw, "progress": 100, "step": "finished"})
	})
	mux.HandleFunc("GET /api/meetings/{id}/artifacts/{type}/link", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("type") == "pdf" {
			http.Error(w, "upgrade required", http.StatusForbidden)
			return
		}
		writeJSON(w, map[string]string{
			"location_uri": "/files/" + r.PathValue("id") + "/" + r.PathValue("type"),
			"storage_tier": "local",
		})
	})
	mux.HandleFunc("GET /files/{id}/{type}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.fetches++
		b.mu.Unlock()
		io.WriteString(w, r.PathValue("type")+" of "+r.PathValue("id"))
	})
	mux.HandleFunc("POST /api/meetings/{id}/confirm-download", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.confirmed[r.PathValue("id")]++
		b.mu.Unlock()
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/meetings/{id}/cloud-status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"storage_location":    "cloud",
			"transcript_in_cloud": true,
			"summary_in_cloud":    false,
			"can_upload_to_cloud": true,
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return b, ts
}

func (b *testBackend) Fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func (b *testBackend) Confirmed(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.confirmed[id]
}

type runner struct {
	backendURL string
	dataDir    string
	requires   bool
}

func newRunner(t *testing.T, backendURL string) *runner {
	return &runner{backendURL: backendURL, dataDir: t.TempDir()}
}

func (r *runner) run(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	deps := &Dependencies{
		LoadConfig: func(string) (*config.Config, error) {
			cfg := config.DefaultConfig()
			cfg.BackendURL = r.backendURL
			cfg.DataDir = r.dataDir
			cfg.PollInterval = 10 * time.Millisecond
			cfg.AutoSync.Interval = 10 * time.Millisecond
			cfg.AutoSync.RequiresDeviceSync = r.requires
			cfg.Log.Level = "error"
			return cfg, nil
		},
		Out:     &out,
		Version: "test",
	}

	defer deps.Close()

	root := NewRootCmd(deps)
	root.SetArgs(args)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// =====================================================
// Commands
// =====================================================

func TestFetchThenList(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	ctx := context.Background()

	out, err := r.run(ctx, "fetch", "m-1", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "summary.txt")

	_, err = r.run(ctx, "fetch", "m-1", "summary")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Fetches(), "second fetch is served from the cache")

	out, err = r.run(ctx, "files", "list", "m-1", "-o", "json")
	require.NoError(t, err)

	var files []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "summary.txt", files[0]["filename"])
	assert.EqualValues(t, len("summary of m-1"), files[0]["size_bytes"])
}

func TestFilesListMeetings(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	ctx := context.Background()

	out, err := r.run(ctx, "files", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached meetings")

	_, err = r.run(ctx, "fetch", "m-2", "transcript")
	require.NoError(t, err)
	_, err = r.run(ctx, "fetch", "m-1", "summary")
	require.NoError(t, err)

	out, err = r.run(ctx, "files", "list", "-o", "json")
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []string{"m-2", "m-1"}, ids)
}

func TestFetch_ForbiddenAndUnknownArtifact(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	ctx := context.Background()

	_, err := r.run(ctx, "fetch", "m-1", "pdf")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))

	_, err = r.run(ctx, "fetch", "m-1", "video")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestFilesRm(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	ctx := context.Background()

	for _, a := range []string{"transcript", "summary"} {
		_, err := r.run(ctx, "fetch", "m-1", a)
		require.NoError(t, err)
	}

	out, err := r.run(ctx, "files", "rm", "m-1", "summary.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted summary.txt")

	out, err = r.run(ctx, "files", "rm", "m-1", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 cached files")

	out, err = r.run(ctx, "files", "list", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached files")

	_, err = r.run(ctx, "files", "rm", "m-1")
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestStatus(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	ctx := context.Background()

	out, err := r.run(ctx, "status", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "finished")

	out, err = r.run(ctx, "status", "m-1", "--once", "-o", "yaml")
	require.NoError(t, err)
	var view map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "completed", view["status"])

	_, err = r.run(ctx, "status", "broken")
	assert.Error(t, err, "a failed meeting exits with an error")
}

func TestCloudStatus(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)

	out, err := r.run(context.Background(), "cloud-status", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Storage:       cloud")
	assert.Contains(t, out, "Summary:       not in cloud")
}

func TestSyncOnce(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	r.requires = true

	out, err := r.run(context.Background(), "sync", "--once", "-o", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.EqualValues(t, 1, result["eligible"])
	assert.Equal(t, []interface{}{"m-1"}, result["confirmed"])
	assert.Equal(t, 1, backend.Confirmed("m-1"))
	assert.Zero(t, backend.Confirmed("m-2"))
}

func TestSync_NotRequired(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)

	out, err := r.run(context.Background(), "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "not required")
	assert.Zero(t, backend.Confirmed("m-1"))
}

func TestSyncOnce_NotRequired(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)

	out, err := r.run(context.Background(), "sync", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "not required")
	assert.Zero(t, backend.Confirmed("m-1"))
}

func TestSyncOnce_Force(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)

	out, err := r.run(context.Background(), "sync", "--once", "--force", "-o", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []interface{}{"m-1"}, result["confirmed"])
	assert.Equal(t, 1, backend.Confirmed("m-1"))
}

func TestSync_RunsUntilCancelled(t *testing.T) {
	backend, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)
	r.requires = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.run(ctx, "sync")
		done <- err
	}()

	require.Eventually(t, func() bool { return backend.Confirmed("m-1") >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not stop after cancellation")
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	_, ts := newTestBackend(t)
	r := newRunner(t, ts.URL)

	_, err := r.run(context.Background(), "files", "list", "m-1", "-o", "xml")
	assert.ErrorContains(t, err, "invalid output format")
}
