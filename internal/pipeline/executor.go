package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/composer"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/internal/tracing"
	"github.com/clipforge/clipforge/pkg/models"
)

// Resolver turns a stored path reference into a readable local file, fetching
// it into destDir when it is not already on disk.
type Resolver interface {
	Resolve(ctx context.Context, ref, destDir string) (string, error)
}

// Executor runs a stage plan sequentially, each stage consuming the prior
// stage's artifact and producing a new one inside a per-project temporary
// scope. The scope is removed on every exit path; only the final artifact
// survives, handed to the output manager before teardown.
type Executor struct {
	ffmpeg       *FFmpeg
	outputs      *OutputManager
	resolver     Resolver
	tempDir      string
	stageTimeout time.Duration
	logger       *logging.Logger
}

// NewExecutor creates a stage plan executor.
func NewExecutor(ffmpeg *FFmpeg, outputs *OutputManager, resolver Resolver, tempDir string, stageTimeout time.Duration, logger *logging.Logger) *Executor {
	return &Executor{
		ffmpeg:       ffmpeg,
		outputs:      outputs,
		resolver:     resolver,
		tempDir:      tempDir,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// Execute runs the plan and returns the placed output path. A stage failure
// aborts the remaining plan immediately; no partial artifact survives.
func (e *Executor) Execute(ctx context.Context, plan *composer.Plan) (string, error) {
	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp root: %w", err)
	}

	scope, err := os.MkdirTemp(e.tempDir, "project-"+plan.ProjectID+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp scope: %w", err)
	}
	defer os.RemoveAll(scope)

	source, err := e.resolver.Resolve(ctx, plan.SourcePath, scope)
	if err != nil {
		return "", fmt.Errorf("failed to resolve video track: %w", err)
	}

	current := source
	for i, stage := range plan.Stages {
		span, stageCtx := tracing.StartSpan(ctx, "pipeline.stage."+string(stage.Kind))
		tracing.SetTag(span, "project_id", plan.ProjectID)

		started := time.Now()
		next, err := e.runStage(stageCtx, plan, stage, i, current, scope)
		metrics.StageDuration.WithLabelValues(string(stage.Kind)).Observe(time.Since(started).Seconds())

		if err != nil {
			tracing.LogError(span, err)
			tracing.FinishSpan(span)
			metrics.StagesFailedTotal.WithLabelValues(string(stage.Kind)).Inc()
			return "", err
		}
		tracing.FinishSpan(span)

		e.logger.WithProjectID(plan.ProjectID).WithStage(string(stage.Kind)).
			Debugf("stage completed in %s", time.Since(started))
		current = next
	}

	output, err := e.outputs.Place(ctx, plan.ProjectID, current)
	if err != nil {
		return "", fmt.Errorf("failed to place output artifact: %w", err)
	}

	return output, nil
}

// runStage executes one stage and verifies it produced a usable artifact.
func (e *Executor) runStage(ctx context.Context, plan *composer.Plan, stage composer.Stage, index int, input, scope string) (string, error) {
	output := filepath.Join(scope, fmt.Sprintf("artifact_%02d_%s.mp4", index, stage.Kind))

	args, err := e.stageArgs(ctx, stage, input, output, scope)
	if err != nil {
		return "", err
	}

	if err := e.ffmpeg.Run(ctx, string(stage.Kind), e.stageTimeout, args); err != nil {
		return "", err
	}

	st, statErr := os.Stat(output)
	if statErr != nil || st.Size() == 0 {
		return "", &models.ToolExecutionError{
			Stage:  string(stage.Kind),
			Stderr: "tool exited cleanly but produced no output artifact",
		}
	}

	return output, nil
}

// stageArgs maps a stage to one ffmpeg invocation.
func (e *Executor) stageArgs(ctx context.Context, stage composer.Stage, input, output, scope string) ([]string, error) {
	switch stage.Kind {
	case composer.StageBase:
		// Binds the source as the working artifact without re-encoding.
		return []string{"-i", input, "-c", "copy", "-y", output}, nil

	case composer.StageAudio:
		audio, err := e.resolver.Resolve(ctx, stage.AudioPath, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve audio track: %w", err)
		}
		gain := strconv.FormatFloat(stage.Gain, 'f', -1, 64)
		return []string{
			"-i", input,
			"-i", audio,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-filter:a", "volume=" + gain,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-shortest",
			"-y", output,
		}, nil

	case composer.StageFilter:
		return []string{
			"-i", input,
			"-vf", stage.Preset.FilterGraph(),
			"-c:v", "libx264",
			"-c:a", "copy",
			"-y", output,
		}, nil

	case composer.StageSubtitle:
		srtPath, err := writeSubtitleFile(scope, stage.Subtitle.Text)
		if err != nil {
			return nil, err
		}
		filter := fmt.Sprintf("subtitles=%s:force_style='%s'",
			escapeFilterPath(srtPath), stage.Subtitle.ForceStyle())
		return []string{
			"-i", input,
			"-vf", filter,
			"-c:v", "libx264",
			"-c:a", "copy",
			"-y", output,
		}, nil
	}

	return nil, fmt.Errorf("unknown stage kind %q", stage.Kind)
}

// writeSubtitleFile materializes the caption as a single-cue SRT file inside
// the temp scope.
func writeSubtitleFile(scope, text string) (string, error) {
	path := filepath.Join(scope, fmt.Sprintf("subtitle_%s.srt", uuid.NewString()[:8]))
	content := "1\n00:00:00,000 --> 00:10:00,000\n" + text + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return path, nil
}

// escapeFilterPath escapes a path for use inside an ffmpeg filtergraph.
func escapeFilterPath(path string) string {
	escaped := strings.ReplaceAll(path, "\\", "\\\\")
	return strings.ReplaceAll(escaped, ":", "\\:")
}
