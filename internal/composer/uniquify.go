package composer

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

// Subtitle style baseline: bottom-center white text, the fixed style used
// when uniquification is disabled.
const (
	baseFontSize  = 20.0
	baseAlignment = 2 // ASS numpad alignment, bottom-center
)

// SubtitleDescriptor carries the caption words plus the presentation
// parameters the subtitle stage burns in. The words are always the caller's
// text, byte for byte; only presentation varies.
type SubtitleDescriptor struct {
	Text         string
	FontSize     float64 // points, within 19.2-20.8
	Spacing      float64 // letter spacing in px, 0-0.6
	PrimaryColor string  // ASS &HAABBGGRR, near-white
	OutlineAlpha int     // percent, 0-3
	Alignment    int
}

// DefaultSubtitleStyle returns the fixed non-uniquified rendering descriptor.
func DefaultSubtitleStyle(text string) SubtitleDescriptor {
	return SubtitleDescriptor{
		Text:         text,
		FontSize:     baseFontSize,
		PrimaryColor: "&H00FFFFFF",
		Alignment:    baseAlignment,
	}
}

// UniquifySeed derives the deterministic uniquification seed for a project.
// Re-processing the same project yields the same variant.
func UniquifySeed(projectID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(projectID))
	return int64(h.Sum64())
}

// UniquifySubtitle produces a rendering descriptor that is perceptually
// equivalent to the default style but distinct at the byte level across
// seeds. Jitters stay inside tolerance bands invisible at normal viewing
// distance: sub-point font size, sub-pixel letter spacing, a near-white
// colour perturbation and a faint outline alpha.
func UniquifySubtitle(text string, seed int64) SubtitleDescriptor {
	rng := rand.New(rand.NewSource(seed))

	// Font size 20 +/- 0.8 in 0.1 steps, generated in integer tenths and
	// divided once so the band edges land on the same float64 values a
	// literal like 19.2 does.
	size := float64(int(baseFontSize*10)-8+rng.Intn(17)) / 10

	// Letter spacing 0-0.6px in 0.02 steps.
	spacing := float64(rng.Intn(31)) * 0.02

	// Each channel drawn from 0xF7-0xFF keeps the colour within a step of
	// white that no viewer resolves. ASS colour order is &HAABBGGRR.
	r := 0xF7 + rng.Intn(9)
	g := 0xF7 + rng.Intn(9)
	b := 0xF7 + rng.Intn(9)
	color := fmt.Sprintf("&H00%02X%02X%02X", b, g, r)

	return SubtitleDescriptor{
		Text:         text,
		FontSize:     size,
		Spacing:      spacing,
		PrimaryColor: color,
		OutlineAlpha: rng.Intn(4),
		Alignment:    baseAlignment,
	}
}

// ForceStyle renders the descriptor as an ASS force_style override for the
// FFmpeg subtitles filter.
func (d SubtitleDescriptor) ForceStyle() string {
	parts := []string{
		fmt.Sprintf("FontSize=%.1f", d.FontSize),
		fmt.Sprintf("PrimaryColour=%s", d.PrimaryColor),
		fmt.Sprintf("Alignment=%d", d.Alignment),
	}
	if d.Spacing != 0 {
		parts = append(parts, fmt.Sprintf("Spacing=%.2f", d.Spacing))
	}
	if d.OutlineAlpha != 0 {
		// Outline alpha is expressed as a hex transparency byte.
		parts = append(parts, fmt.Sprintf("OutlineColour=&H%02X000000", d.OutlineAlpha*255/100))
	}
	return strings.Join(parts, ",")
}
