package assist

import (
	"testing"

	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/vocabulary"
)

func TestSymptomPayloadNormalize(t *testing.T) {
	payload := symptomPayload{
		PainAreas: []painAreaPayload{
			{Area: "Abdomen", Intensity: 7, Frequency: "often", Description: "sharp"},
		},
		CompletenessScore: 40,
	}

	record := payload.normalize(vocabulary.DefaultCatalog())

	if len(record.PainAreas) != 1 {
		t.Fatalf("expected one pain area, got %v", record.PainAreas)
	}
	area := record.PainAreas[0]
	if area.Area != "abdomen" || area.Intensity != 7 || area.Frequency != models.FrequencyOften || area.Description != models.DescriptionSharp {
		t.Fatalf("unexpected pain area: %+v", area)
	}
	if record.CompletenessScore != 40 {
		t.Fatalf("expected completeness 40, got %d", record.CompletenessScore)
	}
	if record.MainSymptoms == nil || record.AdditionalSymptoms == nil {
		t.Fatal("expected absent symptom lists to materialize as empty")
	}
}

func TestNormalizeSynthesizesMissingDetailFields(t *testing.T) {
	payload := symptomPayload{
		PainAreas: []painAreaPayload{{Area: "pelvis"}},
	}

	record := payload.normalize(vocabulary.DefaultCatalog())
	if len(record.PainAreas) != 1 {
		t.Fatalf("expected one pain area, got %v", record.PainAreas)
	}
	area := record.PainAreas[0]
	if area.Intensity != defaultIntensity {
		t.Fatalf("expected default intensity, got %d", area.Intensity)
	}
	if area.Frequency != defaultFrequency || area.Description != defaultDescription {
		t.Fatalf("expected default detail fields, got %+v", area)
	}
}

func TestNormalizeDropsUnknownAreas(t *testing.T) {
	payload := symptomPayload{
		PainAreas: []painAreaPayload{
			{Area: "abdomen", Intensity: 3},
			{Area: "dorsal-fin", Intensity: 9},
		},
	}

	record := payload.normalize(vocabulary.DefaultCatalog())
	if len(record.PainAreas) != 1 || record.PainAreas[0].Area != "abdomen" {
		t.Fatalf("expected unknown areas discarded, got %v", record.PainAreas)
	}
}

func TestNormalizeClampsScores(t *testing.T) {
	payload := symptomPayload{EmotionalScale: 42, CompletenessScore: -3}
	record := payload.normalize(vocabulary.DefaultCatalog())
	if record.EmotionalScale != 10 {
		t.Fatalf("expected emotional scale clamped to 10, got %d", record.EmotionalScale)
	}
	if record.CompletenessScore != 0 {
		t.Fatalf("expected completeness clamped to 0, got %d", record.CompletenessScore)
	}
}

func TestDiagnosisPayloadNormalize(t *testing.T) {
	payload := diagnosisPayload{
		RecommendationText: "See a specialist within a week",
		Urgent:             false,
		PotentialConditions: []potentialConditionPayload{
			{Name: "Endometriosis", Confidence: "moderate", SymptomMatch: "pelvic pain"},
		},
		Specialty: "gynecology",
	}

	record := payload.normalize()
	if record.RecommendationLevel != models.RecommendationYellow {
		t.Fatalf("expected missing level to default to yellow, got %q", record.RecommendationLevel)
	}
	if len(record.PotentialConditions) != 1 || record.PotentialConditions[0].Name != "Endometriosis" {
		t.Fatalf("unexpected conditions: %+v", record.PotentialConditions)
	}
}

func TestNormalizeMessagesCoercesRoles(t *testing.T) {
	messages := normalizeMessages([]messagePayload{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	if messages[0].Role != models.RoleUser {
		t.Fatalf("expected user role kept, got %q", messages[0].Role)
	}
	if messages[1].Role != models.RoleSystem {
		t.Fatalf("expected non-user roles coerced to system, got %q", messages[1].Role)
	}
}
