package assist

import (
	"strings"

	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/vocabulary"
)

// Default detail values synthesized when the service reports a pain area
// without them.
const (
	defaultIntensity   = 5
	defaultFrequency   = models.FrequencySometimes
	defaultDescription = models.DescriptionDull
)

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type generateBatchRequest struct {
	StepIDs     []string             `json:"step_ids"`
	SymptomData models.SymptomRecord `json:"symptom_data"`
}

// symptomRequestPayload reshapes a symptom record for the wire. The record
// already carries snake_case tags, so this is the identity today; it exists
// to keep the wire coupling in one place.
func symptomRequestPayload(record models.SymptomRecord) models.SymptomRecord {
	return record
}

type painAreaPayload struct {
	Area        string `json:"area"`
	Intensity   int    `json:"intensity"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
}

type symptomPayload struct {
	PainAreas          []painAreaPayload `json:"pain_areas"`
	MainSymptoms       []string          `json:"main_symptoms"`
	AdditionalSymptoms []string          `json:"additional_symptoms"`
	EmotionalState     string            `json:"emotional_state"`
	EmotionalScale     int               `json:"emotional_scale"`
	CompletenessScore  int               `json:"completeness_score"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type conversationStartPayload struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []messagePayload `json:"messages"`
	Symptoms       symptomPayload   `json:"symptoms"`
}

type conversationTurnPayload struct {
	Messages []messagePayload `json:"messages"`
	Symptoms symptomPayload   `json:"symptoms"`
}

type potentialConditionPayload struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Confidence   string `json:"confidence"`
	SymptomMatch string `json:"symptom_match"`
}

type diagnosisPayload struct {
	RecommendationLevel string                      `json:"recommendation_level"`
	RecommendationText  string                      `json:"recommendation_text"`
	Urgent              bool                        `json:"urgent"`
	PotentialConditions []potentialConditionPayload `json:"potential_conditions"`
	Specialty           string                      `json:"specialty"`
}

type dialogPairPayload struct {
	DoctorDialog string `json:"doctor_dialog"`
	UserGuidance string `json:"user_guidance"`
}

type generatedStepPayload struct {
	ID          string              `json:"id"`
	DialogPairs []dialogPairPayload `json:"dialog_pairs"`
	Tips        []string            `json:"tips"`
	ImageURL    string              `json:"image_url"`
	VideoURL    string              `json:"video_url"`
}

// normalize converts a wire symptom payload into the client record,
// materializing absent collections as empty slices, absent numerics as
// zero, and synthesizing default detail values for sparse pain areas.
func (p symptomPayload) normalize(catalog vocabulary.Catalog) models.SymptomRecord {
	record := models.DefaultSymptomRecord()

	for _, area := range p.PainAreas {
		normalized := models.PainArea{
			Area:        strings.ToLower(strings.TrimSpace(area.Area)),
			Intensity:   area.Intensity,
			Frequency:   area.Frequency,
			Description: area.Description,
		}
		if normalized.Area == "" {
			continue
		}
		// areas outside the body-region vocabulary are discarded
		if len(catalog.Regions) > 0 && !catalog.Known(normalized.Area) {
			continue
		}
		if normalized.Intensity < 1 || normalized.Intensity > 10 {
			normalized.Intensity = defaultIntensity
		}
		if !validFrequency(normalized.Frequency) {
			normalized.Frequency = defaultFrequency
		}
		if !validDescription(normalized.Description) {
			normalized.Description = defaultDescription
		}
		record.PainAreas = append(record.PainAreas, normalized)
	}

	if p.MainSymptoms != nil {
		record.MainSymptoms = p.MainSymptoms
	}
	if p.AdditionalSymptoms != nil {
		record.AdditionalSymptoms = p.AdditionalSymptoms
	}
	record.EmotionalState = p.EmotionalState

	record.EmotionalScale = p.EmotionalScale
	if record.EmotionalScale < 0 {
		record.EmotionalScale = 0
	}
	if record.EmotionalScale > 10 {
		record.EmotionalScale = 10
	}

	record.CompletenessScore = p.CompletenessScore
	if record.CompletenessScore < 0 {
		record.CompletenessScore = 0
	}
	if record.CompletenessScore > 100 {
		record.CompletenessScore = 100
	}

	return record
}

func (p diagnosisPayload) normalize() models.DiagnosisRecord {
	record := models.DiagnosisRecord{
		RecommendationLevel: p.RecommendationLevel,
		RecommendationText:  p.RecommendationText,
		Urgent:              p.Urgent,
		PotentialConditions: []models.PotentialCondition{},
		Specialty:           p.Specialty,
	}
	if record.RecommendationLevel == "" {
		record.RecommendationLevel = models.RecommendationYellow
	}
	for _, condition := range p.PotentialConditions {
		record.PotentialConditions = append(record.PotentialConditions, models.PotentialCondition{
			Name:         condition.Name,
			Description:  condition.Description,
			Confidence:   condition.Confidence,
			SymptomMatch: condition.SymptomMatch,
		})
	}
	return record
}

func (p generatedStepPayload) normalize() GeneratedStep {
	content := models.EmptyStepContent()
	for _, pair := range p.DialogPairs {
		content.DialogPairs = append(content.DialogPairs, models.DialogPair{
			DoctorDialog: pair.DoctorDialog,
			UserGuidance: pair.UserGuidance,
		})
	}
	if p.Tips != nil {
		content.Tips = p.Tips
	}
	return GeneratedStep{
		ID:       p.ID,
		Content:  content,
		ImageURL: p.ImageURL,
		VideoURL: p.VideoURL,
	}
}

func normalizeMessages(payloads []messagePayload) []models.Message {
	messages := make([]models.Message, 0, len(payloads))
	for _, m := range payloads {
		role := m.Role
		if role != models.RoleUser {
			role = models.RoleSystem
		}
		messages = append(messages, models.Message{Role: role, Content: m.Content})
	}
	return messages
}

func validFrequency(frequency string) bool {
	switch frequency {
	case models.FrequencyRare, models.FrequencySometimes, models.FrequencyOften, models.FrequencyConstant:
		return true
	}
	return false
}

func validDescription(description string) bool {
	switch description {
	case models.DescriptionSharp, models.DescriptionDull, models.DescriptionThrobbing,
		models.DescriptionBurning, models.DescriptionStabbing:
		return true
	}
	return false
}
