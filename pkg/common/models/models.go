package models

import (
	"time"

	"github.com/google/uuid"
)

// Pain frequency vocabulary.
const (
	FrequencyRare      = "rare"
	FrequencySometimes = "sometimes"
	FrequencyOften     = "often"
	FrequencyConstant  = "constant"
)

// Pain description vocabulary.
const (
	DescriptionSharp     = "sharp"
	DescriptionDull      = "dull"
	DescriptionThrobbing = "throbbing"
	DescriptionBurning   = "burning"
	DescriptionStabbing  = "stabbing"
)

// Recommendation levels returned by the diagnosis service.
const (
	RecommendationYellow = "yellow"
	RecommendationOrange = "orange"
	RecommendationRed    = "red"
)

// Condition confidence levels.
const (
	ConfidenceLow      = "low"
	ConfidenceModerate = "moderate"
	ConfidenceHigh     = "high"
)

// Message roles in the intake conversation.
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// DefaultEmotion is the neutral mood glyph used when no emotion has been
// reported.
const DefaultEmotion = "neutral"

// PainArea is a single reported body region with intensity, frequency, and
// a qualitative description.
type PainArea struct {
	Area        string `json:"area"`
	Intensity   int    `json:"intensity"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
}

// SymptomRecord is the normalized representation of all reported
// pain/symptom/emotional data. Every field materializes to an empty or
// zero value when absent from a remote response.
type SymptomRecord struct {
	PainAreas          []PainArea `json:"pain_areas"`
	MainSymptoms       []string   `json:"main_symptoms"`
	AdditionalSymptoms []string   `json:"additional_symptoms"`
	EmotionalState     string     `json:"emotional_state,omitempty"`
	EmotionalScale     int        `json:"emotional_scale"`
	CompletenessScore  int        `json:"completeness_score"`
}

func DefaultSymptomRecord() SymptomRecord {
	return SymptomRecord{
		PainAreas:          []PainArea{},
		MainSymptoms:       []string{},
		AdditionalSymptoms: []string{},
	}
}

// VisualizationRecord drives the body-diagram rendering.
type VisualizationRecord struct {
	PainDetails []PainArea `json:"pain_details"`
	Intensity   int        `json:"intensity"`
	Emotion     string     `json:"emotion"`
}

func DefaultVisualizationRecord() VisualizationRecord {
	return VisualizationRecord{
		PainDetails: []PainArea{},
		Emotion:     DefaultEmotion,
	}
}

// PotentialCondition is one candidate condition in a diagnosis result.
type PotentialCondition struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Confidence   string `json:"confidence"`
	SymptomMatch string `json:"symptom_match"`
}

// DiagnosisRecord is the recommendation returned by the remote diagnosis
// service for the current symptom record.
type DiagnosisRecord struct {
	RecommendationLevel string               `json:"recommendation_level"`
	RecommendationText  string               `json:"recommendation_text"`
	Urgent              bool                 `json:"urgent"`
	PotentialConditions []PotentialCondition `json:"potential_conditions"`
	Specialty           string               `json:"specialty,omitempty"`
}

// SessionIdentity carries the login state of the current browser session.
type SessionIdentity struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	UserID     string `json:"user_id,omitempty"`
}

// Message is one turn entry in the intake conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StepDescriptor is the static metadata for one stage of the simulated
// clinic visit, independent of generated dialog content.
type StepDescriptor struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

// DialogPair is one doctor line plus the matching guidance for the user.
type DialogPair struct {
	DoctorDialog string `json:"doctor_dialog"`
	UserGuidance string `json:"user_guidance"`
}

// StepContent is the generated dialog/tip payload for a step, fetched
// lazily and cached by step id.
type StepContent struct {
	DialogPairs []DialogPair `json:"dialog_pairs"`
	Tips        []string     `json:"tips"`
}

func EmptyStepContent() StepContent {
	return StepContent{DialogPairs: []DialogPair{}, Tips: []string{}}
}

// FeedbackRequest is a user's rating of the intake experience.
type FeedbackRequest struct {
	Rating   int                    `json:"rating"`
	Category string                 `json:"category,omitempty"`
	Comment  string                 `json:"comment,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Feedback is a stored feedback entry.
type Feedback struct {
	ID        uuid.UUID              `json:"id"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Rating    int                    `json:"rating"`
	Category  string                 `json:"category"`
	Comment   string                 `json:"comment,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Resource is one curated health-education entry surfaced next to the
// intake results.
type Resource struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the envelope for analytics events on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
