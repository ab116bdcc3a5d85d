package resources

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"

	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeCatalog struct {
	lastQuery Query
	items     []models.Resource
}

func (f *fakeCatalog) List(ctx context.Context, q Query) ([]models.Resource, error) {
	f.lastQuery = q
	out := make([]models.Resource, 0, len(f.items))
	for _, item := range f.items {
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func TestListResourcesFiltersByCategory(t *testing.T) {
	catalog := &fakeCatalog{items: []models.Resource{
		{Title: "Describing Pain", Category: "communication"},
		{Title: "Urgent Signs", Category: "triage"},
	}}
	handler := NewHandler(catalog)
	router := mux.NewRouter()
	handler.Register(router)

	req := httptest.NewRequest("GET", "/resources?category=triage&limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if catalog.lastQuery.Category != "triage" || catalog.lastQuery.Limit != 5 {
		t.Fatalf("unexpected query: %+v", catalog.lastQuery)
	}

	var payload struct {
		Items []models.Resource `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Title != "Urgent Signs" {
		t.Fatalf("unexpected items: %+v", payload.Items)
	}
}

func TestStarterCatalogIsWellFormed(t *testing.T) {
	for _, resource := range starterCatalog() {
		if resource.Title == "" || resource.URL == "" || resource.Category == "" {
			t.Fatalf("incomplete starter resource: %+v", resource)
		}
		if resource.Language != "en" {
			t.Fatalf("unexpected language: %+v", resource)
		}
	}
}
