package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/composer"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/internal/tracing"
	"github.com/clipforge/clipforge/pkg/models"
)

// Repository defines the project persistence operations the service needs.
type Repository interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateSettings(ctx context.Context, p *models.Project) (*models.Project, error)
	ClaimProcessing(ctx context.Context, id string) (*models.Project, error)
	MarkCompleted(ctx context.Context, id, outputPath string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	DeleteProject(ctx context.Context, id string) error
}

// Executor runs a stage plan to completion and returns the placed output.
type Executor interface {
	Execute(ctx context.Context, plan *composer.Plan) (string, error)
}

// Dispatcher hands an accepted process request to a worker. Implementations
// queue when no worker is free; they never reject for load.
type Dispatcher interface {
	Dispatch(ctx context.Context, projectID string) error
}

// Outputs reclaims placed artifacts.
type Outputs interface {
	Remove(ctx context.Context, outputPath string) error
}

// ProcessAck acknowledges an accepted process request. Completion is observed
// by re-reading the project.
type ProcessAck struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

// Service owns the project lifecycle: validation, the processing concurrency
// guard, pipeline orchestration and result recording.
type Service struct {
	repo       Repository
	executor   Executor
	outputs    Outputs
	dispatcher Dispatcher
	logger     *logging.Logger
}

// NewService creates a project service. The dispatcher is attached separately
// because the in-process pool runs the service's own pipeline entrypoint.
func NewService(repo Repository, executor Executor, outputs Outputs, logger *logging.Logger) *Service {
	return &Service{
		repo:     repo,
		executor: executor,
		outputs:  outputs,
		logger:   logger,
	}
}

// SetDispatcher attaches the worker dispatcher.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Create validates settings and returns a new draft project.
func (s *Service) Create(ctx context.Context, settings models.ProjectSettings) (*models.Project, error) {
	p := &models.Project{
		Name:           strings.TrimSpace(settings.Name),
		VideoTrackPath: strings.TrimSpace(settings.VideoTrackPath),
		AudioTrackPath: strings.TrimSpace(settings.AudioTrackPath),
		SubtitleText:   settings.SubtitleText,
		AudioVolume:    100,
		FilterType:     models.FilterNone,
		Status:         models.StatusDraft,
	}

	if settings.AudioVolume != nil {
		p.AudioVolume = *settings.AudioVolume
	}
	if settings.FilterType != "" {
		ft, err := models.ParseFilterType(settings.FilterType)
		if err != nil {
			return nil, err
		}
		p.FilterType = ft
	}
	if settings.UniquifySubtitles != nil {
		p.UniquifySubtitles = *settings.UniquifySubtitles
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithProjectID(p.ID).Info("project created")
	return p, nil
}

// Update applies a partial settings change. Settings are mutable only while
// the project is draft or failed; a successful update clears any prior error.
func (s *Service) Update(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Status.Editable() {
		return nil, &models.InvalidStateError{Op: "update", Status: p.Status}
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.VideoTrackPath != nil {
		p.VideoTrackPath = strings.TrimSpace(*patch.VideoTrackPath)
	}
	if patch.AudioTrackPath != nil {
		p.AudioTrackPath = strings.TrimSpace(*patch.AudioTrackPath)
	}
	if patch.SubtitleText != nil {
		p.SubtitleText = *patch.SubtitleText
	}
	if patch.AudioVolume != nil {
		p.AudioVolume = *patch.AudioVolume
	}
	if patch.FilterType != nil {
		ft, err := models.ParseFilterType(*patch.FilterType)
		if err != nil {
			return nil, err
		}
		p.FilterType = ft
	}
	if patch.UniquifySubtitles != nil {
		p.UniquifySubtitles = *patch.UniquifySubtitles
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return s.repo.UpdateSettings(ctx, p)
}

// Process triggers the pipeline for a project. The draft|failed -> processing
// transition is a single atomic check-and-set in the repository; of two
// concurrent calls exactly one is accepted. The call returns as soon as the
// work is handed to a worker.
func (s *Service) Process(ctx context.Context, id string) (*ProcessAck, error) {
	// Refuse before claiming: a claim with no dispatcher would strand the
	// project in processing.
	if s.dispatcher == nil {
		return nil, fmt.Errorf("no dispatcher configured")
	}

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	claimed, err := s.repo.ClaimProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.LogStateTransition(id, string(p.Status), string(claimed.Status))

	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		// The claim is already persisted; record the scheduling failure so
		// the project does not stay processing forever.
		if markErr := s.repo.MarkFailed(ctx, id, "failed to schedule processing: "+err.Error()); markErr != nil {
			s.logger.WithProjectID(id).WithError(markErr).Error("failed to record scheduling failure")
		}
		return nil, err
	}

	return &ProcessAck{ProjectID: id, Message: "video processing started"}, nil
}

// Run executes the pipeline for a claimed project and records the outcome on
// the project record. It is invoked by a worker, never by the API caller;
// its error return is for worker logging only.
func (s *Service) Run(ctx context.Context, projectID string) error {
	span, ctx := tracing.StartSpan(ctx, "generator.run")
	tracing.SetTag(span, "project_id", projectID)
	defer tracing.FinishSpan(span)

	log := s.logger.WithProjectID(projectID)
	started := time.Now()

	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		tracing.LogError(span, err)
		log.WithError(err).Error("failed to load claimed project")
		// The claim is already persisted. Release it into failed so the
		// project stays retryable instead of stuck in processing.
		if !errors.Is(err, models.ErrNotFound) {
			if markErr := s.repo.MarkFailed(ctx, projectID, "failed to load project for processing: "+err.Error()); markErr != nil {
				log.WithError(markErr).Error("failed to record load failure")
			}
		}
		return err
	}

	plan, err := composer.BuildPlan(p)
	if err != nil {
		tracing.LogError(span, err)
		return s.fail(ctx, p.ID, err)
	}

	log.Infof("pipeline started with %d stages", len(plan.Stages))

	outputPath, err := s.executor.Execute(ctx, plan)
	if err != nil {
		tracing.LogError(span, err)
		return s.fail(ctx, p.ID, err)
	}

	if err := s.repo.MarkCompleted(ctx, p.ID, outputPath); err != nil {
		tracing.LogError(span, err)
		log.WithError(err).Error("failed to record completion")
		return err
	}

	metrics.ProjectsProcessedTotal.WithLabelValues(string(models.StatusCompleted)).Inc()
	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	s.logger.LogStateTransition(p.ID, string(models.StatusProcessing), string(models.StatusCompleted))
	log.Infof("pipeline completed in %s", time.Since(started))

	return nil
}

// Export returns the output artifact location of a completed project.
func (s *Service) Export(ctx context.Context, id string) (string, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	if p.Status != models.StatusCompleted {
		return "", &models.InvalidStateError{Op: "export", Status: p.Status}
	}
	return p.OutputPath, nil
}

// Get retrieves a project.
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.repo.GetProject(ctx, id)
}

// List retrieves all projects.
func (s *Service) List(ctx context.Context) ([]*models.Project, error) {
	return s.repo.ListProjects(ctx)
}

// Delete removes a project in any state and reclaims its artifact. Artifact
// removal failure is logged, never fatal to the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}

	if p.OutputPath != "" {
		if err := s.outputs.Remove(ctx, p.OutputPath); err != nil {
			s.logger.WithProjectID(id).WithError(err).Warn("failed to reclaim output artifact")
		}
	}

	s.logger.WithProjectID(id).Info("project deleted")
	return nil
}

// fail records a pipeline failure on the project.
func (s *Service) fail(ctx context.Context, id string, cause error) error {
	metrics.ProjectsProcessedTotal.WithLabelValues(string(models.StatusFailed)).Inc()

	if err := s.repo.MarkFailed(ctx, id, cause.Error()); err != nil {
		s.logger.WithProjectID(id).WithError(err).Error("failed to record pipeline failure")
	}

	s.logger.LogStateTransition(id, string(models.StatusProcessing), string(models.StatusFailed))
	s.logger.WithProjectID(id).WithError(cause).Error("pipeline failed")
	return cause
}
