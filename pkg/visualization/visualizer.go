package visualization

import (
	"math"

	"github.com/carepath-ai/platform/pkg/common/models"
)

// Derive maps the reported pain areas and mood to a visualization record.
// The aggregate intensity is the mean of the per-area intensities rounded
// to the nearest integer and clamped to [1,10]; with no pain areas it is 0.
// Derivation from the mean is the single authoritative rule for every code
// path that renders the body diagram.
func Derive(painAreas []models.PainArea, emotion string) models.VisualizationRecord {
	record := models.DefaultVisualizationRecord()
	if emotion != "" {
		record.Emotion = emotion
	}
	if len(painAreas) == 0 {
		return record
	}

	details := make([]models.PainArea, len(painAreas))
	copy(details, painAreas)
	record.PainDetails = details

	sum := 0
	for _, area := range painAreas {
		sum += area.Intensity
	}
	mean := int(math.Round(float64(sum) / float64(len(painAreas))))
	if mean < 1 {
		mean = 1
	}
	if mean > 10 {
		mean = 10
	}
	record.Intensity = mean

	return record
}
