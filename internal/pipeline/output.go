package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/logging"
)

// RemoteStore archives placed artifacts in object storage.
type RemoteStore interface {
	Upload(ctx context.Context, objectKey, filePath string) error
	Delete(ctx context.Context, objectKey string) error
}

// OutputManager owns the shared output directory. Filenames combine a
// timestamp, a random token and the project id so concurrent placements never
// collide, and placement is staged through a partial file plus rename so a
// half-written artifact is never visible at its final path.
type OutputManager struct {
	dir     string
	archive RemoteStore // optional
	logger  *logging.Logger
}

// NewOutputManager creates the output directory if needed.
func NewOutputManager(dir string, logger *logging.Logger) (*OutputManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &OutputManager{dir: dir, logger: logger}, nil
}

// SetArchive enables best-effort artifact archiving to object storage. The
// local copy remains authoritative; archive failures are logged, never fatal.
func (m *OutputManager) SetArchive(store RemoteStore) {
	m.archive = store
}

func archiveKey(outputPath string) string {
	return "outputs/" + filepath.Base(outputPath)
}

// Place moves the final artifact into the output directory atomically and
// returns its path.
func (m *OutputManager) Place(ctx context.Context, projectID, artifactPath string) (string, error) {
	name := fmt.Sprintf("project_%s_%s_%s.mp4",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8], projectID)

	partial := filepath.Join(m.dir, ".partial-"+name)
	final := filepath.Join(m.dir, name)

	if err := copyFile(artifactPath, partial); err != nil {
		os.Remove(partial)
		return "", err
	}

	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("failed to finalize output: %w", err)
	}

	if m.archive != nil {
		if err := m.archive.Upload(ctx, archiveKey(final), final); err != nil {
			m.logger.WithProjectID(projectID).WithError(err).Warn("failed to archive output artifact")
		}
	}

	return final, nil
}

// Remove reclaims a previously placed artifact, including its archived copy
// when archiving is configured. A missing file is not an error; the project
// may never have completed.
func (m *OutputManager) Remove(ctx context.Context, outputPath string) error {
	if outputPath == "" {
		return nil
	}
	if m.archive != nil {
		if err := m.archive.Delete(ctx, archiveKey(outputPath)); err != nil {
			m.logger.WithError(err).Warn("failed to remove archived artifact")
		}
	}
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove output artifact: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create partial output: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync output: %w", err)
	}
	return out.Close()
}
