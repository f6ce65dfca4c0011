package models

import (
	"strings"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusProcessing ProjectStatus = "processing"
	StatusCompleted  ProjectStatus = "completed"
	StatusFailed     ProjectStatus = "failed"
)

// Editable reports whether project settings may be mutated in this state.
func (s ProjectStatus) Editable() bool {
	return s == StatusDraft || s == StatusFailed
}

// FilterType identifies a visual filter preset. The set is closed: unknown
// values are rejected at validation time, never silently defaulted.
type FilterType string

const (
	FilterNone      FilterType = "none"
	FilterVintage   FilterType = "vintage"
	FilterCold      FilterType = "cold"
	FilterWarm      FilterType = "warm"
	FilterBW        FilterType = "bw"
	FilterVaporwave FilterType = "vaporwave"
)

// FilterTypes lists every valid filter identifier.
var FilterTypes = []FilterType{
	FilterNone, FilterVintage, FilterCold, FilterWarm, FilterBW, FilterVaporwave,
}

// ParseFilterType validates a raw filter identifier.
func ParseFilterType(raw string) (FilterType, error) {
	ft := FilterType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range FilterTypes {
		if ft == known {
			return ft, nil
		}
	}
	return "", &ValidationError{Field: "filter_type", Reason: "unknown filter type: " + raw}
}

// Project is the persisted unit of work describing one video-composition
// request and its lifecycle state.
type Project struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Source files
	VideoTrackPath string `json:"video_track_path" db:"video_track_path"`
	AudioTrackPath string `json:"audio_track_path,omitempty" db:"audio_track_path"`
	SubtitleText   string `json:"subtitle_text,omitempty" db:"subtitle_text"`

	// Processing parameters
	AudioVolume       int        `json:"audio_volume" db:"audio_volume"` // 0-100
	FilterType        FilterType `json:"filter_type" db:"filter_type"`
	UniquifySubtitles bool       `json:"uniquify_subtitles" db:"uniquify_subtitles"`

	Status       ProjectStatus `json:"status" db:"status"`
	OutputPath   string        `json:"output_path,omitempty" db:"output_path"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectSettings carries the caller-supplied fields for project creation.
type ProjectSettings struct {
	Name              string `json:"name"`
	VideoTrackPath    string `json:"video_track_path"`
	AudioTrackPath    string `json:"audio_track_path"`
	SubtitleText      string `json:"subtitle_text"`
	AudioVolume       *int   `json:"audio_volume"`
	FilterType        string `json:"filter_type"`
	UniquifySubtitles *bool  `json:"uniquify_subtitles"`
}

// ProjectPatch is a partial settings update; nil fields are left unchanged.
type ProjectPatch struct {
	Name              *string `json:"name"`
	VideoTrackPath    *string `json:"video_track_path"`
	AudioTrackPath    *string `json:"audio_track_path"`
	SubtitleText      *string `json:"subtitle_text"`
	AudioVolume       *int    `json:"audio_volume"`
	FilterType        *string `json:"filter_type"`
	UniquifySubtitles *bool   `json:"uniquify_subtitles"`
}

// Validate checks the project invariants that hold independent of lifecycle:
// a present video track, a volume within 0-100 and a known filter type.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.VideoTrackPath) == "" {
		return &ValidationError{Field: "video_track_path", Reason: "video track path is required"}
	}
	if p.AudioVolume < 0 || p.AudioVolume > 100 {
		return &ValidationError{Field: "audio_volume", Reason: "audio volume must be between 0 and 100"}
	}
	if _, err := ParseFilterType(string(p.FilterType)); err != nil {
		return err
	}
	return nil
}
