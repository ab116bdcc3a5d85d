package simulation

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/session"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeSimulation struct {
	mu           sync.Mutex
	stepsErr     error
	batchErr     error
	batchHold    chan struct{}
	requestedIDs [][]string
	steps        []models.StepDescriptor
}

func (f *fakeSimulation) FetchSteps(ctx context.Context) ([]models.StepDescriptor, error) {
	if f.stepsErr != nil {
		return nil, f.stepsErr
	}
	return f.steps, nil
}

func (f *fakeSimulation) GenerateStepBatch(ctx context.Context, stepIDs []string, symptoms models.SymptomRecord) ([]assist.GeneratedStep, error) {
	f.mu.Lock()
	ids := make([]string, len(stepIDs))
	copy(ids, stepIDs)
	f.requestedIDs = append(f.requestedIDs, ids)
	f.mu.Unlock()

	if f.batchHold != nil {
		<-f.batchHold
	}
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	out := make([]assist.GeneratedStep, 0, len(stepIDs))
	for _, id := range stepIDs {
		out = append(out, assist.GeneratedStep{
			ID: id,
			Content: models.StepContent{
				DialogPairs: []models.DialogPair{
					{DoctorDialog: "Welcome", UserGuidance: "Say hello"},
					{DoctorDialog: "Any questions?", UserGuidance: "Ask away"},
				},
				Tips: []string{"bring your id"},
			},
		})
	}
	return out, nil
}

func (f *fakeSimulation) batchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requestedIDs)
}

func threeSteps() []models.StepDescriptor {
	return []models.StepDescriptor{
		{ID: "arrival", Title: "Arriving at the Clinic"},
		{ID: "checkin", Title: "Check-in Process"},
		{ID: "consultation", Title: "Doctor Consultation"},
	}
}

func newLoader(client assist.SimulationClient) *Loader {
	sessionCtx := session.NewContext(context.Background(), session.NewMemoryStore(), "test-session")
	return NewLoader(client, sessionCtx)
}

func TestLoadStructurePrefetchesFirstStepOnly(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)

	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	if client.batchCallCount() != 1 {
		t.Fatalf("expected one prefetch call, got %d", client.batchCallCount())
	}
	if len(client.requestedIDs[0]) != 1 || client.requestedIDs[0][0] != "arrival" {
		t.Fatalf("expected only the first step prefetched, got %v", client.requestedIDs[0])
	}

	view := loader.Snapshot()
	if len(view.Steps) != 3 || view.CurrentStep != 0 {
		t.Fatalf("unexpected view after structure load: %+v", view)
	}
	if len(view.Content.DialogPairs) != 2 {
		t.Fatalf("expected first step content loaded, got %+v", view.Content)
	}
}

func TestLoadStructureFailureIsTerminal(t *testing.T) {
	client := &fakeSimulation{stepsErr: errors.New("unreachable")}
	loader := newLoader(client)

	if err := loader.LoadStructure(context.Background()); !errors.Is(err, ErrStructureUnavailable) {
		t.Fatalf("expected ErrStructureUnavailable, got %v", err)
	}
	if err := loader.LoadStructure(context.Background()); !errors.Is(err, ErrStructureUnavailable) {
		t.Fatalf("expected terminal error to persist, got %v", err)
	}
	if err := loader.GoToStep(context.Background(), 1); !errors.Is(err, ErrStructureUnavailable) {
		t.Fatalf("expected navigation blocked by fatal error, got %v", err)
	}
}

func TestLoadContentDeduplicatesInFlightIDs(t *testing.T) {
	hold := make(chan struct{})
	client := &fakeSimulation{steps: threeSteps(), batchHold: hold}
	loader := newLoader(client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = loader.LoadContent(context.Background(), []string{"checkin", "consultation"})
	}()

	// wait for the first batch to be in flight
	for client.batchCallCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	go func() {
		defer wg.Done()
		_ = loader.LoadContent(context.Background(), []string{"checkin", "consultation"})
	}()

	// the overlapping call must filter everything out without a request
	close(hold)
	wg.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	seen := map[string]int{}
	for _, batch := range client.requestedIDs {
		for _, id := range batch {
			seen[id]++
		}
	}
	for id, count := range seen {
		if count > 1 {
			t.Fatalf("step %s fetched %d times", id, count)
		}
	}
}

func TestLoadContentSkipsCachedIDs(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	before := client.batchCallCount()
	if err := loader.LoadContent(context.Background(), []string{"arrival"}); err != nil {
		t.Fatalf("load content failed: %v", err)
	}
	if client.batchCallCount() != before {
		t.Fatal("expected no network call for cached step")
	}
}

func TestLoadContentFailureReleasesInFlightMarkers(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps(), batchErr: errors.New("boom")}
	loader := newLoader(client)

	if err := loader.LoadContent(context.Background(), []string{"checkin"}); err == nil {
		t.Fatal("expected batch error")
	}

	// a failed step must stay loadable
	client.batchErr = nil
	if err := loader.LoadContent(context.Background(), []string{"checkin"}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if client.batchCallCount() != 2 {
		t.Fatalf("expected retry to issue a request, got %d calls", client.batchCallCount())
	}
}

func TestGoToStepNoOps(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	before := loader.Snapshot()

	// same step
	if err := loader.GoToStep(context.Background(), before.CurrentStep); err != nil {
		t.Fatalf("go to current step: %v", err)
	}
	// beyond the step count
	if err := loader.GoToStep(context.Background(), 99); err != nil {
		t.Fatalf("go to out-of-range step: %v", err)
	}
	if err := loader.GoToStep(context.Background(), -1); err != nil {
		t.Fatalf("go to negative step: %v", err)
	}

	after := loader.Snapshot()
	if after.CurrentStep != before.CurrentStep || after.CurrentDialog != before.CurrentDialog {
		t.Fatalf("expected no-op navigation, before=%+v after=%+v", before, after)
	}
	if client.batchCallCount() != 1 {
		t.Fatalf("expected no extra fetches, got %d", client.batchCallCount())
	}
}

func TestGoToStepBlockedWhileFetchInFlight(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	hold := make(chan struct{})
	client.batchHold = hold

	loadDone := make(chan struct{})
	go func() {
		_ = loader.LoadContent(context.Background(), []string{"consultation"})
		close(loadDone)
	}()
	for client.batchCallCount() < 2 {
		time.Sleep(time.Millisecond)
	}

	if err := loader.GoToStep(context.Background(), 1); err != nil {
		t.Fatalf("go to step: %v", err)
	}
	if loader.Snapshot().CurrentStep != 0 {
		t.Fatal("expected navigation to be a no-op while a fetch is in flight")
	}

	close(hold)
	<-loadDone
}

func TestGoToStepResetsDialogCursor(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	loader.NextDialog()
	if loader.Snapshot().CurrentDialog != 1 {
		t.Fatalf("expected dialog cursor at 1, got %d", loader.Snapshot().CurrentDialog)
	}

	if err := loader.GoToStep(context.Background(), 1); err != nil {
		t.Fatalf("go to step: %v", err)
	}
	view := loader.Snapshot()
	if view.CurrentStep != 1 || view.CurrentDialog != 0 {
		t.Fatalf("expected step 1 dialog 0, got %+v", view)
	}
}

func TestDialogCursorStaysInBounds(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	loader.PrevDialog()
	if loader.Snapshot().CurrentDialog != 0 {
		t.Fatal("expected dialog cursor pinned at 0")
	}

	loader.NextDialog()
	loader.NextDialog()
	loader.NextDialog()
	if loader.Snapshot().CurrentDialog != 1 {
		t.Fatalf("expected dialog cursor pinned at last pair, got %d", loader.Snapshot().CurrentDialog)
	}

	before := client.batchCallCount()
	loader.NextDialog()
	if client.batchCallCount() != before {
		t.Fatal("dialog navigation must never trigger a network call")
	}
}

func TestUnloadedStepRendersEmptyContent(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps(), batchErr: errors.New("slow service")}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	view := loader.Snapshot()
	if view.Content.DialogPairs == nil || view.Content.Tips == nil {
		t.Fatalf("expected empty content, not nil: %+v", view.Content)
	}
	if len(view.Content.DialogPairs) != 0 {
		t.Fatalf("expected no dialog pairs, got %+v", view.Content)
	}
}

func TestAdvanceThroughSimulation(t *testing.T) {
	client := &fakeSimulation{steps: threeSteps()[:2]}
	loader := newLoader(client)
	if err := loader.LoadStructure(context.Background()); err != nil {
		t.Fatalf("load structure failed: %v", err)
	}

	// step 0: two dialog pairs
	if finished, _ := loader.Advance(context.Background()); finished {
		t.Fatal("unexpected finish on first dialog")
	}
	// past last dialog of step 0 -> step 1
	if finished, err := loader.Advance(context.Background()); err != nil || finished {
		t.Fatalf("expected step transition, finished=%v err=%v", finished, err)
	}
	if loader.Snapshot().CurrentStep != 1 {
		t.Fatalf("expected step 1, got %d", loader.Snapshot().CurrentStep)
	}

	if finished, _ := loader.Advance(context.Background()); finished {
		t.Fatal("unexpected finish mid step")
	}
	finished, err := loader.Advance(context.Background())
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !finished {
		t.Fatal("expected terminal finish past the last dialog of the last step")
	}
	if !loader.Snapshot().Finished {
		t.Fatal("expected finished view state")
	}
}
