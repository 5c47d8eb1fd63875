// Package db provides unit tests for the cached-file ledger.
package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

func testRecord(meetingID, filename string) *models.CachedFileRecord {
	return &models.CachedFileRecord{
		MeetingID:    meetingID,
		Filename:     filename,
		ArtifactType: models.ArtifactSummary,
		LocalPath:    "/data/files/" + meetingID + "/" + filename,
		SizeBytes:    42,
		ContentHash:  "abc",
	}
}

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(setupTestDB(t).DB)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// =====================================================
// Get / Put
// =====================================================

func TestGetCachedFile_NotFound(t *testing.T) {
	repo := setupRepo(t)

	rec, found, err := repo.GetCachedFile("m-1", "summary.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)
}

func TestPutCachedFile_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	in := testRecord("m-1", "summary.txt")

	require.NoError(t, repo.PutCachedFile(in))
	assert.NotZero(t, in.DownloadedAt)

	got, found, err := repo.GetCachedFile("m-1", "summary.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, got)
}

func TestPutCachedFile_OverwritesByKey(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "transcript.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "summary.txt")))

	updated := testRecord("m-1", "transcript.txt")
	updated.SizeBytes = 1000
	updated.ContentHash = "def"
	require.NoError(t, repo.PutCachedFile(updated))

	list, err := repo.ListCachedFiles("m-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "transcript.txt", list[0].Filename, "overwrite keeps insertion position")
	assert.EqualValues(t, 1000, list[0].SizeBytes)
	assert.Equal(t, "def", list[0].ContentHash)
	assert.Equal(t, "summary.txt", list[1].Filename)
}

func TestPutCachedFile_RequiresKey(t *testing.T) {
	repo := setupRepo(t)

	assert.Error(t, repo.PutCachedFile(&models.CachedFileRecord{Filename: "x"}))
	assert.Error(t, repo.PutCachedFile(&models.CachedFileRecord{MeetingID: "m"}))
}

// =====================================================
// List
// =====================================================

func TestListCachedFiles_InsertionOrderAndIsolation(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "summary.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-2", "transcript.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "report.pdf")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "transcript.txt")))

	list, err := repo.ListCachedFiles("m-1")
	require.NoError(t, err)

	var names []string
	for _, r := range list {
		names = append(names, r.Filename)
	}
	assert.Equal(t, []string{"summary.txt", "report.pdf", "transcript.txt"}, names)

	again, err := repo.ListCachedFiles("m-1")
	require.NoError(t, err)
	assert.Equal(t, list, again)
}

func TestListCachedFiles_EmptyIsNotNil(t *testing.T) {
	repo := setupRepo(t)

	list, err := repo.ListCachedFiles("nothing")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListCachedMeetings(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.PutCachedFile(testRecord("m-2", "a")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "a")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-2", "b")))

	ids, err := repo.ListCachedMeetings()
	require.NoError(t, err)
	assert.Equal(t, []string{"m-2", "m-1"}, ids)
}

// =====================================================
// Remove
// =====================================================

func TestRemoveCachedFile(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "summary.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "transcript.txt")))

	removed, err := repo.RemoveCachedFile("m-1", "summary.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveCachedFile("m-1", "summary.txt")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err := repo.ListCachedFiles("m-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "transcript.txt", list[0].Filename)
}

func TestRemoveCachedFiles(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "summary.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "transcript.txt")))
	require.NoError(t, repo.PutCachedFile(testRecord("m-2", "summary.txt")))

	n, err := repo.RemoveCachedFiles("m-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err := repo.ListCachedFiles("m-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	other, err := repo.ListCachedFiles("m-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

// =====================================================
// Concurrency
// =====================================================

func TestConcurrentReadersNeverSeePartialRecords(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.PutCachedFile(testRecord("m-1", "summary.txt")))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rec := testRecord("m-1", "summary.txt")
			rec.SizeBytes = int64(i)
			rec.ContentHash = fmt.Sprintf("hash-%d", i)
			assert.NoError(t, repo.PutCachedFile(rec))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			list, err := repo.ListCachedFiles("m-1")
			if !assert.NoError(t, err) {
				return
			}
			if !assert.Len(t, list, 1) {
				return
			}
			rec := list[0]
			if rec.ContentHash != "abc" {
				assert.Equal(t, fmt.Sprintf("hash-%d", rec.SizeBytes), rec.ContentHash)
			}
		}
	}()

	wg.Wait()
}
