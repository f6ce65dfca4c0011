package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clipforge/clipforge/pkg/models"
)

// Repository provides project persistence.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const projectColumns = `id, name, video_track_path, audio_track_path, subtitle_text,
       audio_volume, filter_type, uniquify_subtitles, status, output_path,
       error_message, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.Name, &p.VideoTrackPath, &p.AudioTrackPath, &p.SubtitleText,
		&p.AudioVolume, &p.FilterType, &p.UniquifySubtitles, &p.Status,
		&p.OutputPath, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

// CreateProject inserts a new draft project.
func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO projects (id, name, video_track_path, audio_track_path, subtitle_text,
		                      audio_volume, filter_type, uniquify_subtitles, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		p.ID, p.Name, p.VideoTrackPath, p.AudioTrackPath, p.SubtitleText,
		p.AudioVolume, p.FilterType, p.UniquifySubtitles, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by id.
func (r *Repository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.Pool.QueryRow(ctx, query, id))
}

// ListProjects retrieves all projects, most recently updated first.
func (r *Repository) ListProjects(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// UpdateSettings persists new settings for a project. The update is
// conditional on the project still being editable; a prior error message is
// cleared. Returns the updated project, or InvalidStateError when the project
// exists but is processing or completed.
func (r *Repository) UpdateSettings(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		UPDATE projects
		SET name = $2, video_track_path = $3, audio_track_path = $4, subtitle_text = $5,
		    audio_volume = $6, filter_type = $7, uniquify_subtitles = $8,
		    error_message = '', updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'failed')
		RETURNING ` + projectColumns

	updated, err := scanProject(r.db.Pool.QueryRow(ctx, query,
		p.ID, p.Name, p.VideoTrackPath, p.AudioTrackPath, p.SubtitleText,
		p.AudioVolume, p.FilterType, p.UniquifySubtitles,
	))
	if errors.Is(err, models.ErrNotFound) {
		return nil, r.stateConflict(ctx, p.ID, "update")
	}
	return updated, err
}

// ClaimProcessing atomically transitions a draft or failed project to
// processing. This single conditional UPDATE is the concurrency guard: of two
// racing claims exactly one matches the status predicate.
func (r *Repository) ClaimProcessing(ctx context.Context, id string) (*models.Project, error) {
	query := `
		UPDATE projects
		SET status = 'processing', error_message = '', updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'failed')
		RETURNING ` + projectColumns

	claimed, err := scanProject(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, r.stateConflict(ctx, id, "process")
	}
	return claimed, err
}

// MarkCompleted records a successful pipeline run.
func (r *Repository) MarkCompleted(ctx context.Context, id, outputPath string) error {
	query := `
		UPDATE projects
		SET status = 'completed', output_path = $2, error_message = '', updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, outputPath)
	if err != nil {
		return fmt.Errorf("failed to mark project completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed pipeline run. The output path is cleared so a
// failed project never advertises an artifact.
func (r *Repository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	query := `
		UPDATE projects
		SET status = 'failed', error_message = $2, output_path = '', updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to mark project failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project record.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// stateConflict distinguishes a missing project from one in a state that
// forbids the operation.
func (r *Repository) stateConflict(ctx context.Context, id, op string) error {
	current, err := r.GetProject(ctx, id)
	if err != nil {
		return err
	}
	return &models.InvalidStateError{Op: op, Status: current.Status}
}
