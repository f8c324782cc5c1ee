package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clipsight/internal/config"
	"clipsight/internal/fileutil"
)

const statusFile = "status.json"

// ArtifactKind identifies a retrievable job artifact.
type ArtifactKind string

const (
	ArtifactVideo        ArtifactKind = "video"
	ArtifactReport       ArtifactKind = "report"
	ArtifactKeyframesDir ArtifactKind = "keyframes"
)

// Record is the persisted status of one job.
type Record struct {
	JobID     string    `json:"job_id"`
	Stage     Stage     `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages per-job directories rooted at a single jobs directory.
type Store struct {
	root  string
	index *index
}

// Open prepares the jobs root and the SQLite listing index. The index is
// recreated empty on every open; job directories from previous runs stay on
// disk but are not re-listed.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	idx, err := openIndex(cfg.IndexPath())
	if err != nil {
		return nil, err
	}

	return &Store{root: cfg.JobsRoot(), index: idx}, nil
}

// Close releases the listing index.
func (s *Store) Close() error {
	if s == nil || s.index == nil {
		return nil
	}
	return s.index.Close()
}

// Root returns the jobs root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory owned by the given job.
func (s *Store) Dir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// Create allocates the job directory and initializes its status record.
func (s *Store) Create(ctx context.Context, jobID string) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}

	dir := s.Dir(jobID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create job %s: %w", jobID, ErrAlreadyExists)
		}
		return "", fmt.Errorf("create job directory: %w", err)
	}

	now := time.Now().UTC()
	record := Record{JobID: jobID, Stage: StageCreated, CreatedAt: now, UpdatedAt: now}
	if err := s.writeRecord(dir, record); err != nil {
		return "", err
	}
	if err := s.index.upsert(ctx, record); err != nil {
		return "", err
	}
	return dir, nil
}

// SetStage overwrites the job's current stage. The write is idempotent.
func (s *Store) SetStage(ctx context.Context, jobID string, stage Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("invalid stage %q", stage)
	}
	return s.update(ctx, jobID, func(record *Record) {
		record.Stage = stage
		record.Detail = ""
	})
}

// SetFailure marks the job failed and records a human-readable detail string.
func (s *Store) SetFailure(ctx context.Context, jobID, detail string) error {
	return s.update(ctx, jobID, func(record *Record) {
		record.Stage = StageFailed
		record.Detail = strings.TrimSpace(detail)
	})
}

func (s *Store) update(ctx context.Context, jobID string, mutate func(*Record)) error {
	if err := validateJobID(jobID); err != nil {
		return err
	}
	dir := s.Dir(jobID)
	record, err := s.readRecord(dir, jobID)
	if err != nil {
		return err
	}

	mutate(&record)
	record.UpdatedAt = time.Now().UTC()

	if err := s.writeRecord(dir, record); err != nil {
		return err
	}
	return s.index.upsert(ctx, record)
}

// GetStage returns the job's current stage.
func (s *Store) GetStage(ctx context.Context, jobID string) (Stage, error) {
	record, err := s.Status(ctx, jobID)
	if err != nil {
		return "", err
	}
	return record.Stage, nil
}

// Status returns the job's full status record.
func (s *Store) Status(_ context.Context, jobID string) (Record, error) {
	if err := validateJobID(jobID); err != nil {
		return Record{}, err
	}
	return s.readRecord(s.Dir(jobID), jobID)
}

// List returns the status records known to the index, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.index.list(ctx)
}

// ArtifactPath resolves a produced artifact for the job. It fails with
// ErrNotFound until the producing stage has written the artifact.
func (s *Store) ArtifactPath(jobID string, kind ArtifactKind) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	dir := s.Dir(jobID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("job %s: %w", jobID, ErrUnknownJob)
		}
		return "", fmt.Errorf("stat job directory: %w", err)
	}

	switch kind {
	case ArtifactVideo:
		return s.findVideo(dir, jobID)
	case ArtifactReport:
		path := s.ReportPath(jobID)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("job %s report: %w", jobID, ErrNotFound)
			}
			return "", fmt.Errorf("stat report: %w", err)
		}
		return path, nil
	case ArtifactKeyframesDir:
		path := s.KeyframesDir(jobID)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("job %s keyframes: %w", jobID, ErrNotFound)
			}
			return "", fmt.Errorf("stat keyframes: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("job %s keyframes: %w", jobID, ErrNotFound)
		}
		return path, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// findVideo locates the stored video regardless of its original extension.
func (s *Store) findVideo(dir, jobID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "video.*"))
	if err != nil {
		return "", fmt.Errorf("glob video: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("job %s video: %w", jobID, ErrNotFound)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// VideoDestination returns the canonical stored-video path for the given
// source extension. Extensions are normalized to lowercase; an empty
// extension falls back to .mp4.
func (s *Store) VideoDestination(jobID, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(s.Dir(jobID), "video."+ext)
}

// AudioPath returns the intermediate extracted-audio location for the job.
func (s *Store) AudioPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), "audio.wav")
}

// TranscriptPath returns the transcript location for the job.
func (s *Store) TranscriptPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), "transcript.txt")
}

// KeyframesDir returns the keyframe image directory for the job.
func (s *Store) KeyframesDir(jobID string) string {
	return filepath.Join(s.Dir(jobID), "keyframes")
}

// ReportPath returns the final report location for the job.
func (s *Store) ReportPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), "report.md")
}

func (s *Store) readRecord(dir, jobID string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, statusFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("job %s: %w", jobID, ErrUnknownJob)
		}
		return Record{}, fmt.Errorf("read status record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("parse status record for %s: %w", jobID, err)
	}
	return record, nil
}

func (s *Store) writeRecord(dir string, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode status record: %w", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(dir, statusFile), data, 0o644); err != nil {
		return fmt.Errorf("write status record: %w", err)
	}
	return nil
}

func validateJobID(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return errors.New("job id must not be empty")
	}
	if strings.ContainsAny(jobID, "/\\") || jobID == "." || jobID == ".." {
		return fmt.Errorf("invalid job id %q", jobID)
	}
	return nil
}
