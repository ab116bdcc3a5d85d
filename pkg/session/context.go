package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
)

// schemaVersion tags persisted envelopes so older or foreign payloads can
// be discarded instead of half-parsed.
const schemaVersion = 1

const (
	keySymptoms      = "symptoms"
	keyVisualization = "visualization"
	keyDiagnosis     = "diagnosis"
)

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Record        json.RawMessage `json:"record"`
}

// Snapshot is the read view of the session context.
type Snapshot struct {
	Symptoms      models.SymptomRecord       `json:"symptoms"`
	Visualization models.VisualizationRecord `json:"visualization"`
	Diagnosis     *models.DiagnosisRecord    `json:"diagnosis"`
	Session       models.SessionIdentity     `json:"session"`
}

// Context holds the cross-page intake state for one browser session. It is
// constructed explicitly and injected into every handler; mutations replace
// records in full and write through to the store. Malformed persisted
// payloads rehydrate as defaults, never as errors.
type Context struct {
	mu        sync.Mutex
	store     Store
	sessionID string

	symptoms      models.SymptomRecord
	visualization models.VisualizationRecord
	diagnosis     *models.DiagnosisRecord
	identity      models.SessionIdentity
}

// NewContext rehydrates the session records for sessionID from the store.
func NewContext(ctx context.Context, store Store, sessionID string) *Context {
	c := &Context{
		store:         store,
		sessionID:     sessionID,
		symptoms:      models.DefaultSymptomRecord(),
		visualization: models.DefaultVisualizationRecord(),
	}

	if rec, ok := loadRecord[models.SymptomRecord](ctx, store, c.key(keySymptoms)); ok {
		c.symptoms = normalizeSymptoms(rec)
	}
	if rec, ok := loadRecord[models.VisualizationRecord](ctx, store, c.key(keyVisualization)); ok {
		c.visualization = normalizeVisualization(rec)
	}
	if rec, ok := loadRecord[models.DiagnosisRecord](ctx, store, c.key(keyDiagnosis)); ok {
		c.diagnosis = &rec
	}

	return c
}

func (c *Context) SessionID() string {
	return c.sessionID
}

// Read returns the current snapshot. It never fails.
func (c *Context) Read() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Symptoms:      c.symptoms,
		Visualization: c.visualization,
		Diagnosis:     c.diagnosis,
		Session:       c.identity,
	}
}

// UpdateSymptoms replaces the symptom record in full and writes through.
func (c *Context) UpdateSymptoms(ctx context.Context, record models.SymptomRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symptoms = normalizeSymptoms(record)
	c.persist(ctx, keySymptoms, c.symptoms)
}

// UpdateVisualization replaces the visualization record in full and writes
// through.
func (c *Context) UpdateVisualization(ctx context.Context, record models.VisualizationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visualization = normalizeVisualization(record)
	c.persist(ctx, keyVisualization, c.visualization)
}

// UpdateDiagnosis replaces the diagnosis record. A nil record clears it.
func (c *Context) UpdateDiagnosis(ctx context.Context, record *models.DiagnosisRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnosis = record
	if record == nil {
		if err := c.store.Delete(ctx, c.key(keyDiagnosis)); err != nil {
			logger.Log.WithError(err).WithField("session_id", c.sessionID).Error("failed to delete persisted diagnosis")
		}
		return
	}
	c.persist(ctx, keyDiagnosis, *record)
}

// SetIdentity updates the login state. Identity is not persisted; it is
// re-established from the auth flow on each session.
func (c *Context) SetIdentity(identity models.SessionIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity
}

// ClearAll resets all records to their defaults and removes the persisted
// entries.
func (c *Context) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symptoms = models.DefaultSymptomRecord()
	c.visualization = models.DefaultVisualizationRecord()
	c.diagnosis = nil
	err := c.store.Delete(ctx,
		c.key(keySymptoms),
		c.key(keyVisualization),
		c.key(keyDiagnosis),
	)
	if err != nil {
		logger.Log.WithError(err).WithField("session_id", c.sessionID).Error("failed to clear persisted session")
	}
}

func (c *Context) key(record string) string {
	return fmt.Sprintf("carepath:session:%s:%s", c.sessionID, record)
}

func (c *Context) persist(ctx context.Context, record string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Log.WithError(err).WithField("record", record).Error("failed to encode session record")
		return
	}
	data, err := json.Marshal(envelope{SchemaVersion: schemaVersion, Record: raw})
	if err != nil {
		logger.Log.WithError(err).WithField("record", record).Error("failed to encode session envelope")
		return
	}
	if err := c.store.Set(ctx, c.key(record), data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"session_id": c.sessionID,
			"record":     record,
		}).Error("failed to persist session record")
	}
}

// loadRecord decodes a persisted envelope. Absent keys, decode failures,
// and schema mismatches all report !ok so the caller falls back to the
// default record.
func loadRecord[T any](ctx context.Context, store Store, key string) (T, bool) {
	var zero T
	data, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return zero, false
	}
	if err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("failed to read persisted session record")
		return zero, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.SchemaVersion != schemaVersion {
		return zero, false
	}
	var record T
	if err := json.Unmarshal(env.Record, &record); err != nil {
		return zero, false
	}
	return record, true
}

func normalizeSymptoms(record models.SymptomRecord) models.SymptomRecord {
	if record.PainAreas == nil {
		record.PainAreas = []models.PainArea{}
	}
	if record.MainSymptoms == nil {
		record.MainSymptoms = []string{}
	}
	if record.AdditionalSymptoms == nil {
		record.AdditionalSymptoms = []string{}
	}
	if record.EmotionalScale < 0 {
		record.EmotionalScale = 0
	}
	if record.EmotionalScale > 10 {
		record.EmotionalScale = 10
	}
	if record.CompletenessScore < 0 {
		record.CompletenessScore = 0
	}
	if record.CompletenessScore > 100 {
		record.CompletenessScore = 100
	}
	return record
}

func normalizeVisualization(record models.VisualizationRecord) models.VisualizationRecord {
	if record.PainDetails == nil {
		record.PainDetails = []models.PainArea{}
	}
	if record.Emotion == "" {
		record.Emotion = models.DefaultEmotion
	}
	return record
}
