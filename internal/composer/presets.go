package composer

import (
	"fmt"
	"strings"

	"github.com/clipforge/clipforge/pkg/models"
)

// Vignette strength applied by a preset.
type Vignette string

const (
	VignetteOff    Vignette = "off"
	VignetteStrong Vignette = "strong"
)

// FilterPreset is a named, immutable set of tone-curve parameters. Deltas are
// expressed in percent of the neutral value; hue shift in degrees.
type FilterPreset struct {
	Saturation float64 // percent delta, -100 desaturates fully
	HueShift   float64 // degrees, positive toward orange
	Contrast   float64 // percent delta
	Vignette   Vignette
}

// presets maps every closed filter identifier to its tone-curve parameters.
// The table is exhaustive; FilterNone carries the neutral preset and emits no
// stage.
var presets = map[models.FilterType]FilterPreset{
	models.FilterNone:      {},
	models.FilterVintage:   {Saturation: -15, Contrast: -5, Vignette: VignetteStrong},
	models.FilterCold:      {Saturation: -5, HueShift: -20, Vignette: VignetteOff},
	models.FilterWarm:      {Saturation: 5, HueShift: 20, Vignette: VignetteOff},
	models.FilterBW:        {Saturation: -100, Contrast: 10, Vignette: VignetteOff},
	models.FilterVaporwave: {Saturation: 25, HueShift: 300, Contrast: 5, Vignette: VignetteOff},
}

// LookupPreset returns the preset for a filter identifier. Unknown values are
// a validation failure, never a silent default.
func LookupPreset(ft models.FilterType) (FilterPreset, error) {
	preset, ok := presets[ft]
	if !ok {
		return FilterPreset{}, &models.ValidationError{
			Field:  "filter_type",
			Reason: fmt.Sprintf("unknown filter type: %s", ft),
		}
	}
	return preset, nil
}

// FilterGraph renders the preset as an FFmpeg video filtergraph.
func (p FilterPreset) FilterGraph() string {
	var parts []string

	eq := make([]string, 0, 2)
	if p.Saturation != 0 {
		eq = append(eq, fmt.Sprintf("saturation=%.2f", 1+p.Saturation/100))
	}
	if p.Contrast != 0 {
		eq = append(eq, fmt.Sprintf("contrast=%.2f", 1+p.Contrast/100))
	}
	if len(eq) > 0 {
		parts = append(parts, "eq="+strings.Join(eq, ":"))
	}

	if p.HueShift != 0 {
		parts = append(parts, fmt.Sprintf("hue=h=%g", p.HueShift))
	}

	if p.Vignette == VignetteStrong {
		parts = append(parts, "vignette=PI/4")
	}

	if len(parts) == 0 {
		return "null"
	}
	return strings.Join(parts, ",")
}
