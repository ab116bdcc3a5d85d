package simulation

import (
	"context"
	"errors"
	"sync"

	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/session"
)

// ErrStructureUnavailable is the terminal error when the step list cannot
// be fetched; the simulation cannot recover without a reload.
var ErrStructureUnavailable = errors.New("simulation: step structure unavailable")

// View is the render snapshot for the current step. Content is empty while
// a step's generated payload has not loaded yet; that is valid transient
// state, not an error.
type View struct {
	Steps         []models.StepDescriptor `json:"steps"`
	CurrentStep   int                     `json:"current_step"`
	CurrentDialog int                     `json:"current_dialog"`
	Content       models.StepContent      `json:"content"`
	Finished      bool                    `json:"finished"`
}

// Loader owns the stepwise simulation state for one session: the step list
// fetched once, lazily loaded per-step content, and the step/dialog
// cursors. The in-flight id set guarantees at most one outstanding fetch
// per step under rapid navigation.
type Loader struct {
	mu      sync.Mutex
	client  assist.SimulationClient
	session *session.Context

	steps           []models.StepDescriptor
	content         map[string]models.StepContent
	inflight        map[string]struct{}
	currentStep     int
	currentDialog   int
	structureLoaded bool
	finished        bool
	fatalErr        error
}

func NewLoader(client assist.SimulationClient, sessionCtx *session.Context) *Loader {
	return &Loader{
		client:   client,
		session:  sessionCtx,
		content:  make(map[string]models.StepContent),
		inflight: make(map[string]struct{}),
	}
}

// LoadStructure fetches the ordered step list. It runs once per loader
// lifetime; a failure is terminal. On success the first step's content is
// requested eagerly so the opening scene renders without an extra wait.
func (l *Loader) LoadStructure(ctx context.Context) error {
	l.mu.Lock()
	if l.structureLoaded {
		err := l.fatalErr
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	steps, err := l.client.FetchSteps(ctx)

	l.mu.Lock()
	if l.structureLoaded {
		err := l.fatalErr
		l.mu.Unlock()
		return err
	}
	l.structureLoaded = true
	if err != nil {
		logger.Log.WithError(err).Error("failed to load simulation step structure")
		l.fatalErr = ErrStructureUnavailable
		l.mu.Unlock()
		return l.fatalErr
	}
	l.steps = steps
	var first string
	if len(steps) > 0 {
		first = steps[0].ID
	}
	l.mu.Unlock()

	if first != "" {
		if err := l.LoadContent(ctx, []string{first}); err != nil {
			// content for the first step stays lazily retryable
			logger.Log.WithError(err).Warn("failed to prefetch first simulation step")
		}
	}
	return nil
}

// LoadContent fetches generated content for the given steps in one batched
// request, skipping ids already cached or already in flight. The in-flight
// markers are set before the request goes out and released when it
// resolves, on success and failure alike.
func (l *Loader) LoadContent(ctx context.Context, stepIDs []string) error {
	l.mu.Lock()
	if l.fatalErr != nil {
		l.mu.Unlock()
		return l.fatalErr
	}
	pending := make([]string, 0, len(stepIDs))
	for _, id := range stepIDs {
		if _, ok := l.content[id]; ok {
			continue
		}
		if _, ok := l.inflight[id]; ok {
			continue
		}
		l.inflight[id] = struct{}{}
		pending = append(pending, id)
	}
	l.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	symptoms := l.session.Read().Symptoms
	generated, err := l.client.GenerateStepBatch(ctx, pending, symptoms)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range pending {
		delete(l.inflight, id)
	}
	if err != nil {
		return err
	}
	for _, step := range generated {
		l.content[step.ID] = step.Content
	}
	return nil
}

// GoToStep moves the step cursor to index n (zero-based). It is a no-op
// when n is the current step, out of range, or while any content fetch is
// in flight. Moving resets the dialog cursor and triggers a content load
// for the target step when it is not cached yet.
func (l *Loader) GoToStep(ctx context.Context, n int) error {
	l.mu.Lock()
	if l.fatalErr != nil {
		l.mu.Unlock()
		return l.fatalErr
	}
	if n == l.currentStep || n < 0 || n >= len(l.steps) || len(l.inflight) > 0 {
		l.mu.Unlock()
		return nil
	}
	l.currentDialog = 0
	l.currentStep = n
	id := l.steps[n].ID
	_, loaded := l.content[id]
	l.mu.Unlock()

	if loaded {
		return nil
	}
	return l.LoadContent(ctx, []string{id})
}

// NextDialog moves the dialog cursor forward within the loaded content,
// never past the end and never over the network.
func (l *Loader) NextDialog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentDialog < l.currentDialogCountLocked()-1 {
		l.currentDialog++
	}
}

// PrevDialog moves the dialog cursor backward, never below zero.
func (l *Loader) PrevDialog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentDialog > 0 {
		l.currentDialog--
	}
}

// Advance is the single "next" affordance: it steps through dialogs, then
// steps, and past the last dialog of the last step it finishes the
// simulation entirely. The finished transition is terminal.
func (l *Loader) Advance(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.fatalErr != nil {
		err := l.fatalErr
		l.mu.Unlock()
		return false, err
	}
	if l.finished {
		l.mu.Unlock()
		return true, nil
	}
	if l.currentDialog < l.currentDialogCountLocked()-1 {
		l.currentDialog++
		l.mu.Unlock()
		return false, nil
	}
	if l.currentStep >= len(l.steps)-1 {
		l.finished = true
		l.mu.Unlock()
		return true, nil
	}
	next := l.currentStep + 1
	l.mu.Unlock()

	return false, l.GoToStep(ctx, next)
}

// Snapshot returns the current render view.
func (l *Loader) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	steps := make([]models.StepDescriptor, len(l.steps))
	copy(steps, l.steps)

	view := View{
		Steps:         steps,
		CurrentStep:   l.currentStep,
		CurrentDialog: l.currentDialog,
		Content:       models.EmptyStepContent(),
		Finished:      l.finished,
	}
	if l.currentStep < len(l.steps) {
		if content, ok := l.content[l.steps[l.currentStep].ID]; ok {
			view.Content = content
		}
	}
	return view
}

// Fatal reports the terminal structure error, if any.
func (l *Loader) Fatal() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fatalErr
}

func (l *Loader) currentDialogCountLocked() int {
	if l.currentStep >= len(l.steps) {
		return 0
	}
	content, ok := l.content[l.steps[l.currentStep].ID]
	if !ok {
		return 0
	}
	return len(content.DialogPairs)
}
