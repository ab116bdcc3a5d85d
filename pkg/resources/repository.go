package resources

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/carepath-ai/platform/pkg/common/models"
)

// Query narrows the resource listing. Zero values match everything.
type Query struct {
	Category string
	Tag      string
	Language string
	Limit    int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type resourceModel struct {
	ID        uuid.UUID      `gorm:"primaryKey;column:id"`
	Title     string         `gorm:"column:title"`
	Summary   string         `gorm:"column:summary"`
	URL       string         `gorm:"column:url"`
	Category  string         `gorm:"column:category;index"`
	Tags      datatypes.JSON `gorm:"column:tags"`
	Language  string         `gorm:"column:language;index"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (resourceModel) TableName() string { return "education_resources" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&resourceModel{})
}

func (r *Repository) Create(ctx context.Context, resource models.Resource) error {
	row := &resourceModel{
		ID:        resource.ID,
		Title:     resource.Title,
		Summary:   resource.Summary,
		URL:       resource.URL,
		Category:  resource.Category,
		Language:  resource.Language,
		CreatedAt: resource.CreatedAt,
	}
	if resource.Tags != nil {
		if data, err := json.Marshal(resource.Tags); err == nil {
			row.Tags = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) List(ctx context.Context, q Query) ([]models.Resource, error) {
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	tx := r.db.WithContext(ctx).Model(&resourceModel{})
	if q.Category != "" {
		tx = tx.Where("category = ?", strings.ToLower(q.Category))
	}
	if q.Language != "" {
		tx = tx.Where("language = ?", strings.ToLower(q.Language))
	}

	var rows []resourceModel
	if err := tx.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Resource, 0, len(rows))
	for _, row := range rows {
		resource := models.Resource{
			ID:        row.ID,
			Title:      row.Title,
			Summary:    row.Summary,
			URL:        row.URL,
			Category:   row.Category,
			Language:  row.Language,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Tags) > 0 {
			_ = json.Unmarshal(row.Tags, &resource.Tags)
		}
		if q.Tag != "" && !hasTag(resource.Tags, q.Tag) {
			continue
		}
		out = append(out, resource)
	}
	return out, nil
}

// Seed inserts the starter catalog when the table is empty.
func (r *Repository) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&resourceModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, resource := range starterCatalog() {
		if err := r.Create(ctx, resource); err != nil {
			return err
		}
	}
	return nil
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func starterCatalog() []models.Resource {
	now := time.Now().UTC()
	return []models.Resource{
		{
			ID:        uuid.New(),
			Title:     "What to Expect at Your First Clinic Visit",
			Summary:   "A walkthrough of check-in, triage, and the consultation itself.",
			URL:       "https://resources.carepath.example/first-visit",
			Category:  "visit-preparation",
			Tags:      []string{"clinic", "first-visit"},
			Language:  "en",
			CreatedAt: now,
		},
		{
			ID:        uuid.New(),
			Title:     "Describing Pain to Your Doctor",
			Summary:   "Vocabulary for intensity, frequency, and pain quality that helps clinicians.",
			URL:       "https://resources.carepath.example/describing-pain",
			Category:  "communication",
			Tags:      []string{"pain", "communication"},
			Language:  "en",
			CreatedAt: now,
		},
		{
			ID:        uuid.New(),
			Title:     "When Symptoms Need Urgent Care",
			Summary:   "Warning signs that call for same-day attention rather than a scheduled visit.",
			URL:       "https://resources.carepath.example/urgent-signs",
			Category:  "triage",
			Tags:      []string{"urgent", "triage"},
			Language:  "en",
			CreatedAt: now,
		},
	}
}
