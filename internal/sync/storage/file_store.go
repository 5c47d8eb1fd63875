// Package storage provides the on-disk byte store for downloaded meeting artifacts.
// Files live at baseDir/{meetingID}/{filename} so a meeting's copies can be dropped in one call.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
)

// FileStore writes artifact bytes under one directory per meeting.
type FileStore struct {
	baseDir string
}

// WriteResult describes a file that has been fully written and renamed into place.
type WriteResult struct {
	Path        string
	SizeBytes   int64
	ContentHash string
}

// NewFileStore creates a new FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
	}
}

// BaseDir returns the root directory of the store.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// ValidatePathElement rejects names that would escape the meeting directory.
func ValidatePathElement(kind, name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		strings.ContainsRune(name, 0) {
		return errors.New(errors.ErrInvalid, fmt.Sprintf("invalid %s %q", kind, name))
	}
	return nil
}

// MeetingDir returns the directory holding a meeting's files.
func (s *FileStore) MeetingDir(meetingID string) (string, error) {
	if err := ValidatePathElement("meeting id", meetingID); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, meetingID), nil
}

// Path returns the deterministic location of filename for meetingID.
func (s *FileStore) Path(meetingID, filename string) (string, error) {
	dir, err := s.MeetingDir(meetingID)
	if err != nil {
		return "", err
	}
	if err := ValidatePathElement("filename", filename); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// StagedFile is a fully written and synced file that has not been moved into
// place yet. Exactly one of Commit or Discard must be called.
type StagedFile struct {
	WriteResult // Path is the final destination
	tempPath    string
}

// Stage streams r into a temp file next to meetingID/filename.
// The destination is not touched until Commit.
func (s *FileStore) Stage(meetingID, filename string, r io.Reader) (*StagedFile, error) {
	destPath, err := s.Path(meetingID, filename)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "failed to create meeting directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filename+".*.part")
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	staged := false
	defer func() {
		if !staged {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	sh := NewStreamingHash(tmp)
	n, err := io.Copy(sh, r)
	if err != nil {
		if sh.Err() != nil {
			return nil, errors.Wrap(errors.ErrStorage, "failed to write temp file", err)
		}
		return nil, errors.Wrap(errors.ErrTransport, "failed to read artifact body", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "failed to close temp file", err)
	}
	staged = true

	return &StagedFile{
		WriteResult: WriteResult{
			Path:        destPath,
			SizeBytes:   n,
			ContentHash: sh.Hash(),
		},
		tempPath: tmpPath,
	}, nil
}

// Commit renames the staged file over its destination, so readers see either
// the previous file or the complete new one.
func (f *StagedFile) Commit() error {
	if err := os.Rename(f.tempPath, f.Path); err != nil {
		os.Remove(f.tempPath)
		return errors.Wrap(errors.ErrStorage, "failed to move file into place", err)
	}
	return nil
}

// Discard removes the staged file and leaves the destination untouched.
func (f *StagedFile) Discard() {
	os.Remove(f.tempPath)
	// Drop the meeting directory if staging created it
	os.Remove(filepath.Dir(f.Path))
}

// Write stages r and commits it in one step.
func (s *FileStore) Write(meetingID, filename string, r io.Reader) (*WriteResult, error) {
	staged, err := s.Stage(meetingID, filename, r)
	if err != nil {
		return nil, err
	}
	if err := staged.Commit(); err != nil {
		return nil, err
	}
	return &staged.WriteResult, nil
}

// Exists reports whether a regular file is present at path.
func (s *FileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes one file. A missing file is not an error.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrStorage, "failed to delete file", err)
	}

	// Drop the meeting directory once it is empty
	os.Remove(filepath.Dir(path))
	return nil
}

// RemoveMeeting deletes every file stored for meetingID.
func (s *FileStore) RemoveMeeting(meetingID string) error {
	dir, err := s.MeetingDir(meetingID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to delete meeting files", err)
	}
	return nil
}

// CalculateHashFromFile calculates the SHA-256 hash of a file.
func CalculateHashFromFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrap(errors.ErrStorage, "failed to open file", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", errors.Wrap(errors.ErrStorage, "failed to calculate hash", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// StreamingHash wraps a writer and calculates hash as data is written.
type StreamingHash struct {
	hash   hash.Hash
	writer io.Writer
	err    error
}

// NewStreamingHash creates a new StreamingHash.
func NewStreamingHash(writer io.Writer) *StreamingHash {
	return &StreamingHash{
		hash:   sha256.New(),
		writer: writer,
	}
}

// Write writes data and updates hash.
func (s *StreamingHash) Write(p []byte) (int, error) {
	n, err := s.writer.Write(p)
	s.hash.Write(p[:n])
	if err != nil {
		s.err = err
	}
	return n, err
}

// Err returns the first error returned by the underlying writer.
func (s *StreamingHash) Err() error {
	return s.err
}

// Hash returns the calculated hash.
func (s *StreamingHash) Hash() string {
	return hex.EncodeToString(s.hash.Sum(nil))
}
