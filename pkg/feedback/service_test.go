package feedback

import (
	"context"
	"os"
	"testing"

	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/redact"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	entries []models.Feedback
}

func (f *fakeStore) Create(ctx context.Context, entry models.Feedback) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Feedback, error) {
	out := make([]models.Feedback, 0, len(f.entries))
	for _, e := range f.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []map[string]interface{}
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	f.events = append(f.events, data)
	return nil
}

func newService(t *testing.T, store Store, publisher Publisher) *Service {
	t.Helper()
	redactor, err := redact.NewRedactor(redact.DefaultRules())
	if err != nil {
		t.Fatalf("failed to build redactor: %v", err)
	}
	return NewService(store, publisher, redactor)
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	service := newService(t, store, publisher)

	entry, err := service.Submit(context.Background(), "s1", "", models.FeedbackRequest{
		Rating:  4,
		Comment: "helpful, reach me at jane@example.com",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if entry.Category != "general" {
		t.Fatalf("expected default category, got %q", entry.Category)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(store.entries))
	}
	if store.entries[0].Comment != "helpful, reach me at jane@example.com" {
		t.Fatal("stored comment must keep the original text")
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	comment := publisher.events[0]["comment"].(string)
	if comment != "helpful, reach me at ***@***" {
		t.Fatalf("expected scrubbed event comment, got %q", comment)
	}
}

func TestSubmitRejectsInvalidRating(t *testing.T) {
	service := newService(t, &fakeStore{}, &fakePublisher{})

	if _, err := service.Submit(context.Background(), "s1", "", models.FeedbackRequest{Rating: 0}); err == nil {
		t.Fatal("expected rating validation error")
	}
	if _, err := service.Submit(context.Background(), "s1", "", models.FeedbackRequest{Rating: 6}); err == nil {
		t.Fatal("expected rating validation error")
	}
}

func TestListFiltersBySession(t *testing.T) {
	store := &fakeStore{}
	service := newService(t, store, &fakePublisher{})

	if _, err := service.Submit(context.Background(), "s1", "", models.FeedbackRequest{Rating: 5}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := service.Submit(context.Background(), "s2", "", models.FeedbackRequest{Rating: 3}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	entries, err := service.ListBySession(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Rating != 5 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
