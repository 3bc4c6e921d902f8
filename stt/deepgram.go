package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
)

const deepgramBaseURL = "https://api.deepgram.com"

// DeepgramClient transcribes prerecorded audio with Deepgram's listen API.
type DeepgramClient struct {
	token   string
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

func NewDeepgramClient(token string, logger *log.Logger) *DeepgramClient {
	return &DeepgramClient{
		token:   token,
		baseURL: deepgramBaseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
		logger:  logger,
	}
}

// WithBaseURL points the client at a different endpoint. Used in tests.
func (c *DeepgramClient) WithBaseURL(u string) *DeepgramClient {
	c.baseURL = u
	return c
}

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (c *DeepgramClient) Transcribe(
	ctx context.Context,
	audio io.Reader,
	contentType string,
) (Result, error) {
	params := url.Values{}
	params.Set("model", "nova-2")
	params.Set("language", "en-US")
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")

	endpoint := c.baseURL + "/v1/listen?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return Result{}, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("deepgram http %d: %s", resp.StatusCode, body)
	}

	var dr deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return Result{}, fmt.Errorf("decode deepgram response: %w", err)
	}

	if len(dr.Results.Channels) == 0 || len(dr.Results.Channels[0].Alternatives) == 0 {
		return Result{}, fmt.Errorf("deepgram returned no alternatives")
	}

	alt := dr.Results.Channels[0].Alternatives[0]

	c.logger.Info("hear", "txt", alt.Transcript, "confidence", alt.Confidence)

	return Result{
		Text:            alt.Transcript,
		Confidence:      alt.Confidence,
		DurationSeconds: dr.Metadata.Duration,
	}, nil
}
