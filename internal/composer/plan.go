package composer

import (
	"strings"

	"github.com/clipforge/clipforge/pkg/models"
)

// StageKind identifies one transformation stage in a plan.
type StageKind string

const (
	StageBase     StageKind = "base"
	StageAudio    StageKind = "audio"
	StageFilter   StageKind = "filter"
	StageSubtitle StageKind = "subtitle"
)

// Stage is one transformation step. Exactly the fields for its kind are set.
type Stage struct {
	Kind StageKind

	// StageAudio
	AudioPath string
	Gain      float64 // linear amplitude factor, volume/100

	// StageFilter
	Filter models.FilterType
	Preset FilterPreset

	// StageSubtitle
	Subtitle SubtitleDescriptor
}

// Plan is the ordered list of stages derived from one project's settings at
// the moment processing was triggered. It is ephemeral and never persisted.
type Plan struct {
	ProjectID  string
	SourcePath string
	Stages     []Stage
}

// BuildPlan derives a stage plan from project settings. It is a pure function
// of the settings: the same project state always yields the same plan.
//
// Stage order is fixed: base, then audio, filter and subtitle as the settings
// call for them.
func BuildPlan(p *models.Project) (*Plan, error) {
	if strings.TrimSpace(p.VideoTrackPath) == "" {
		return nil, &models.ValidationError{Field: "video_track_path", Reason: "video track path is required"}
	}
	if p.AudioVolume < 0 || p.AudioVolume > 100 {
		return nil, &models.ValidationError{Field: "audio_volume", Reason: "audio volume must be between 0 and 100"}
	}

	plan := &Plan{
		ProjectID:  p.ID,
		SourcePath: p.VideoTrackPath,
		Stages:     []Stage{{Kind: StageBase}},
	}

	if p.AudioTrackPath != "" {
		plan.Stages = append(plan.Stages, Stage{
			Kind:      StageAudio,
			AudioPath: p.AudioTrackPath,
			Gain:      float64(p.AudioVolume) / 100.0,
		})
	}

	if p.FilterType != models.FilterNone {
		preset, err := LookupPreset(p.FilterType)
		if err != nil {
			return nil, err
		}
		plan.Stages = append(plan.Stages, Stage{
			Kind:   StageFilter,
			Filter: p.FilterType,
			Preset: preset,
		})
	}

	if p.SubtitleText != "" {
		desc := DefaultSubtitleStyle(p.SubtitleText)
		if p.UniquifySubtitles {
			desc = UniquifySubtitle(p.SubtitleText, UniquifySeed(p.ID))
		}
		plan.Stages = append(plan.Stages, Stage{
			Kind:     StageSubtitle,
			Subtitle: desc,
		})
	}

	return plan, nil
}
