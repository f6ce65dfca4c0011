package composer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func baseProject() *models.Project {
	return &models.Project{
		ID:             "11111111-2222-3333-4444-555555555555",
		Name:           "clip",
		VideoTrackPath: "/media/source.mp4",
		AudioVolume:    100,
		FilterType:     models.FilterNone,
		Status:         models.StatusDraft,
	}
}

func TestBuildPlan_BaseOnly(t *testing.T) {
	plan, err := BuildPlan(baseProject())
	require.NoError(t, err)

	require.Len(t, plan.Stages, 1)
	assert.Equal(t, StageBase, plan.Stages[0].Kind)
	assert.Equal(t, "/media/source.mp4", plan.SourcePath)
}

func TestBuildPlan_AudioGain(t *testing.T) {
	// The gain law is exact: volume/100 as a linear amplitude factor.
	for volume := 0; volume <= 100; volume++ {
		p := baseProject()
		p.AudioTrackPath = "/media/track.mp3"
		p.AudioVolume = volume

		plan, err := BuildPlan(p)
		require.NoError(t, err)

		require.Len(t, plan.Stages, 2)
		audio := plan.Stages[1]
		assert.Equal(t, StageAudio, audio.Kind)
		assert.Equal(t, float64(volume)/100.0, audio.Gain)
		assert.Equal(t, "/media/track.mp3", audio.AudioPath)
	}
}

func TestBuildPlan_FilterStageMatchesPresetTable(t *testing.T) {
	tests := []struct {
		filter models.FilterType
		want   FilterPreset
	}{
		{models.FilterVintage, FilterPreset{Saturation: -15, Contrast: -5, Vignette: VignetteStrong}},
		{models.FilterCold, FilterPreset{Saturation: -5, HueShift: -20, Vignette: VignetteOff}},
		{models.FilterWarm, FilterPreset{Saturation: 5, HueShift: 20, Vignette: VignetteOff}},
		{models.FilterBW, FilterPreset{Saturation: -100, Contrast: 10, Vignette: VignetteOff}},
		{models.FilterVaporwave, FilterPreset{Saturation: 25, HueShift: 300, Contrast: 5, Vignette: VignetteOff}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			p := baseProject()
			p.FilterType = tt.filter

			plan, err := BuildPlan(p)
			require.NoError(t, err)

			require.Len(t, plan.Stages, 2)
			stage := plan.Stages[1]
			assert.Equal(t, StageFilter, stage.Kind)
			assert.Equal(t, tt.filter, stage.Filter)
			assert.Equal(t, tt.want, stage.Preset)
		})
	}
}

func TestBuildPlan_FilterNoneEmitsNoStage(t *testing.T) {
	p := baseProject()
	p.FilterType = models.FilterNone

	plan, err := BuildPlan(p)
	require.NoError(t, err)
	for _, stage := range plan.Stages {
		assert.NotEqual(t, StageFilter, stage.Kind)
	}
}

func TestBuildPlan_UnknownFilterFails(t *testing.T) {
	p := baseProject()
	p.FilterType = models.FilterType("sepia")

	plan, err := BuildPlan(p)
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestBuildPlan_SubtitleStage(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		p := baseProject()
		p.SubtitleText = "Hello"

		plan, err := BuildPlan(p)
		require.NoError(t, err)

		require.Len(t, plan.Stages, 2)
		stage := plan.Stages[1]
		assert.Equal(t, StageSubtitle, stage.Kind)
		assert.Equal(t, DefaultSubtitleStyle("Hello"), stage.Subtitle)
	})

	t.Run("uniquified", func(t *testing.T) {
		p := baseProject()
		p.SubtitleText = "Hello"
		p.UniquifySubtitles = true

		plan, err := BuildPlan(p)
		require.NoError(t, err)

		stage := plan.Stages[1]
		assert.Equal(t, "Hello", stage.Subtitle.Text)
		assert.NotEqual(t, DefaultSubtitleStyle("Hello").ForceStyle(), stage.Subtitle.ForceStyle())
	})

	t.Run("empty text emits no stage", func(t *testing.T) {
		p := baseProject()
		p.SubtitleText = ""
		p.UniquifySubtitles = true

		plan, err := BuildPlan(p)
		require.NoError(t, err)
		require.Len(t, plan.Stages, 1)
	})
}

func TestBuildPlan_StageOrderIsFixed(t *testing.T) {
	p := baseProject()
	p.AudioTrackPath = "/media/track.mp3"
	p.AudioVolume = 50
	p.FilterType = models.FilterWarm
	p.SubtitleText = "caption"

	plan, err := BuildPlan(p)
	require.NoError(t, err)

	kinds := make([]StageKind, 0, len(plan.Stages))
	for _, s := range plan.Stages {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []StageKind{StageBase, StageAudio, StageFilter, StageSubtitle}, kinds)
}

func TestBuildPlan_Idempotent(t *testing.T) {
	p := baseProject()
	p.AudioTrackPath = "/media/track.mp3"
	p.AudioVolume = 73
	p.FilterType = models.FilterVaporwave
	p.SubtitleText = "same words"
	p.UniquifySubtitles = true

	first, err := BuildPlan(p)
	require.NoError(t, err)
	second, err := BuildPlan(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPlan_ValidationFailures(t *testing.T) {
	t.Run("missing video track", func(t *testing.T) {
		p := baseProject()
		p.VideoTrackPath = "  "
		_, err := BuildPlan(p)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("volume out of range", func(t *testing.T) {
		for _, volume := range []int{-1, 101, 500} {
			p := baseProject()
			p.AudioVolume = volume
			_, err := BuildPlan(p)
			assert.True(t, models.IsValidation(err), fmt.Sprintf("volume %d", volume))
		}
	})
}
