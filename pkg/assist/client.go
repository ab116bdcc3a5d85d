package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carepath-ai/platform/pkg/common/httpclient"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/vocabulary"
)

// ConversationStart is the normalized result of opening a new intake
// conversation with the assist service.
type ConversationStart struct {
	ConversationID string
	Messages       []models.Message
	Symptoms       models.SymptomRecord
}

// ConversationTurn is the authoritative reply to one user message. The
// message list replaces the local one wholesale.
type ConversationTurn struct {
	Messages []models.Message
	Symptoms models.SymptomRecord
}

// GeneratedStep is one entry of a batched simulation-content response.
type GeneratedStep struct {
	ID       string
	Content  models.StepContent
	ImageURL string
	VideoURL string
}

type ConversationClient interface {
	StartConversation(ctx context.Context) (ConversationStart, error)
	SendMessage(ctx context.Context, conversationID, content string) (ConversationTurn, error)
}

type DiagnosisClient interface {
	RequestDiagnosis(ctx context.Context, symptoms models.SymptomRecord) (models.DiagnosisRecord, error)
}

type SimulationClient interface {
	FetchSteps(ctx context.Context) ([]models.StepDescriptor, error)
	GenerateStepBatch(ctx context.Context, stepIDs []string, symptoms models.SymptomRecord) ([]GeneratedStep, error)
}

// Client talks to the remote symptom-analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	catalog    vocabulary.Catalog
}

func NewClient(baseURL string, timeout time.Duration, catalog vocabulary.Catalog) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpclient.New(timeout),
		catalog:    catalog,
	}
}

func (c *Client) StartConversation(ctx context.Context) (ConversationStart, error) {
	var resp conversationStartPayload
	if err := c.postJSON(ctx, "/symptoms/conversation/start", struct{}{}, &resp); err != nil {
		return ConversationStart{}, err
	}
	return ConversationStart{
		ConversationID: resp.ConversationID,
		Messages:       normalizeMessages(resp.Messages),
		Symptoms:       resp.Symptoms.normalize(c.catalog),
	}, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (ConversationTurn, error) {
	req := messageRequest{ConversationID: conversationID, Content: content}
	var resp conversationTurnPayload
	if err := c.postJSON(ctx, "/symptoms/message", req, &resp); err != nil {
		return ConversationTurn{}, err
	}
	return ConversationTurn{
		Messages: normalizeMessages(resp.Messages),
		Symptoms: resp.Symptoms.normalize(c.catalog),
	}, nil
}

func (c *Client) RequestDiagnosis(ctx context.Context, symptoms models.SymptomRecord) (models.DiagnosisRecord, error) {
	var resp diagnosisPayload
	if err := c.postJSON(ctx, "/symptoms/diagnosis", symptomRequestPayload(symptoms), &resp); err != nil {
		return models.DiagnosisRecord{}, err
	}
	return resp.normalize(), nil
}

func (c *Client) FetchSteps(ctx context.Context) ([]models.StepDescriptor, error) {
	var resp []models.StepDescriptor
	if err := c.getJSON(ctx, "/simulation/steps", &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []models.StepDescriptor{}
	}
	return resp, nil
}

func (c *Client) GenerateStepBatch(ctx context.Context, stepIDs []string, symptoms models.SymptomRecord) ([]GeneratedStep, error) {
	req := generateBatchRequest{
		StepIDs:     stepIDs,
		SymptomData: symptomRequestPayload(symptoms),
	}
	var resp []generatedStepPayload
	if err := c.postJSON(ctx, "/simulation/generate-batch", req, &resp); err != nil {
		return nil, err
	}
	steps := make([]GeneratedStep, 0, len(resp))
	for _, entry := range resp {
		steps = append(steps, entry.normalize())
	}
	return steps, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	url := c.baseURL + path

	var resp *http.Response
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("assist service error: %s - %s", resp.Status, string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode assist response: %w", err)
	}
	return nil
}
