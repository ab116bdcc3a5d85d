package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carepath-ai/platform/pkg/common/httpclient"
)

// Synthesizer renders text as base64-encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language, voiceType string) (string, error)
}

type ttsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSynthesizer(baseURL string, timeout time.Duration) Synthesizer {
	return &ttsClient{
		baseURL:    baseURL,
		httpClient: httpclient.New(timeout),
	}
}

type ttsRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	VoiceType string `json:"voice_type"`
}

type ttsResponse struct {
	AudioData string `json:"audio_data"`
}

func (c *ttsClient) Synthesize(ctx context.Context, text, language, voiceType string) (string, error) {
	if language == "" {
		language = "en"
	}
	if voiceType == "" {
		voiceType = "female"
	}

	payload, err := json.Marshal(ttsRequest{Text: text, Language: language, VoiceType: voiceType})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("text-to-speech error: %s - %s", resp.Status, string(respBody))
	}

	var result ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AudioData, nil
}
