package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"clearspeak/analysis"
	"clearspeak/db"
	"clearspeak/scripts"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoAudio          = errors.New("no audio recorded")
)

// AnalysisResult is the server's response to an analyze-speech upload.
type AnalysisResult struct {
	SessionID       string            `json:"session_id"`
	Transcription   string            `json:"transcription"`
	WordCount       int               `json:"word_count"`
	SpeakingRateWPM float64           `json:"speaking_rate_wpm"`
	AudioFeatures   analysis.Features `json:"audio_features"`
	Score           float64           `json:"score"`
	AIFeedback      string            `json:"ai_feedback"`
}

// Client talks to a clearspeak server. Token returns the current access
// token, or empty when the user is signed out.
type Client struct {
	baseURL string
	token   func() string
	http    *http.Client
}

func New(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{},
	}
}

func (c *Client) FetchScript(ctx context.Context, difficulty string) (scripts.Script, error) {
	endpoint := c.baseURL + "/practice-script"
	if difficulty != "" {
		endpoint += "?difficulty=" + url.QueryEscape(difficulty)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return scripts.Script{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return scripts.Script{}, fmt.Errorf("fetching practice script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return scripts.Script{}, fmt.Errorf("practice script request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Script scripts.Script `json:"script"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return scripts.Script{}, fmt.Errorf("decoding practice script: %w", err)
	}
	return payload.Script, nil
}

// Analyze uploads a WAV clip for transcription and scoring. It refuses to
// issue the request when no token is held.
func (c *Client) Analyze(ctx context.Context, audio []byte) (AnalysisResult, error) {
	token := c.token()
	if token == "" {
		return AnalysisResult{}, ErrNotAuthenticated
	}
	if len(audio) == 0 {
		return AnalysisResult{}, ErrNoAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return AnalysisResult{}, err
	}
	if _, err := fw.Write(audio); err != nil {
		return AnalysisResult{}, err
	}
	if err := mw.Close(); err != nil {
		return AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-speech", &body)
	if err != nil {
		return AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("uploading audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return AnalysisResult{}, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return AnalysisResult{}, fmt.Errorf("analysis failed with status %d: %s", resp.StatusCode, detail)
	}

	var result AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AnalysisResult{}, fmt.Errorf("decoding analysis result: %w", err)
	}
	return result, nil
}

func (c *Client) Sessions(ctx context.Context, limit int) ([]db.Session, error) {
	endpoint := c.baseURL + "/sessions"
	if limit > 0 {
		endpoint += fmt.Sprintf("?limit=%d", limit)
	}
	var payload struct {
		Sessions []db.Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Sessions, nil
}

func (c *Client) Stats(ctx context.Context) (db.Stats, error) {
	var payload struct {
		Stats db.Stats `json:"stats"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/stats", &payload); err != nil {
		return db.Stats{}, err
	}
	return payload.Stats, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	token := c.token()
	if token == "" {
		return ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
