package web

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clearspeak/auth"
	"clearspeak/coach"
	"clearspeak/db"
	"clearspeak/storage"
	"clearspeak/stt"

	"github.com/charmbracelet/log"
)

type memStore struct {
	sessions []db.Session // newest first
}

func (m *memStore) InsertSession(_ context.Context, sess db.Session) error {
	m.sessions = append([]db.Session{sess}, m.sessions...)
	return nil
}

func (m *memStore) RecentSessions(_ context.Context, userID string, limit int) ([]db.Session, error) {
	var out []db.Session
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) GetSession(_ context.Context, userID, id string) (db.Session, error) {
	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.ID == id {
			return sess, nil
		}
	}
	return db.Session{}, fmt.Errorf("session not found")
}

func (m *memStore) UserStats(ctx context.Context, userID string) (db.Stats, error) {
	sessions, _ := m.RecentSessions(ctx, userID, 100)
	return db.ComputeStats(sessions), nil
}

type fakeTranscriber struct {
	calls  int
	result stt.Result
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ io.Reader, _ string) (stt.Result, error) {
	f.calls++
	return f.result, nil
}

type fakeCoach struct{}

func (fakeCoach) Feedback(_ context.Context, _ coach.Observation) string {
	return "Nice work. Slow down a little."
}

type tokenVerifier map[string]string

func (v tokenVerifier) UserID(_ context.Context, token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", auth.ErrInvalidToken
}

func newTestHandler(t *testing.T, store SessionStore, transcriber stt.Transcriber) *Handler {
	t.Helper()
	blobs, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return NewHandler(
		store,
		blobs,
		transcriber,
		fakeCoach{},
		tokenVerifier{"tok": "user-1"},
		t.TempDir(),
		log.New(io.Discard),
	)
}

// testWAV builds a half-second 16kHz tone at moderate volume.
func testWAV() []byte {
	sampleRate := 16000
	samples := sampleRate / 2
	dataLen := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for i := 0; i < samples; i++ {
		v := int16(0.05 * 32767 * math.Sin(2*math.Pi*200*float64(i)/float64(sampleRate)))
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func multipartAudio(t *testing.T, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(audio); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestAnalyzeSpeech(t *testing.T) {
	t.Run("requires auth", func(t *testing.T) {
		transcriber := &fakeTranscriber{}
		h := newTestHandler(t, &memStore{}, transcriber)

		body, contentType := multipartAudio(t, testWAV())
		req := httptest.NewRequest("POST", "/analyze-speech", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if transcriber.calls != 0 {
			t.Errorf("transcriber called %d times on unauthenticated request", transcriber.calls)
		}
	})

	t.Run("analyzes and persists a session", func(t *testing.T) {
		store := &memStore{}
		transcriber := &fakeTranscriber{result: stt.Result{Text: "the quick brown fox", Confidence: 0.95}}
		h := newTestHandler(t, store, transcriber)

		body, contentType := multipartAudio(t, testWAV())
		req := httptest.NewRequest("POST", "/analyze-speech", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			SessionID       string  `json:"session_id"`
			Transcription   string  `json:"transcription"`
			WordCount       int     `json:"word_count"`
			SpeakingRateWPM float64 `json:"speaking_rate_wpm"`
			Score           float64 `json:"score"`
			AIFeedback      string  `json:"ai_feedback"`
			AudioFeatures   struct {
				DurationSeconds float64 `json:"duration_seconds"`
			} `json:"audio_features"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		if resp.Transcription != "the quick brown fox" {
			t.Errorf("transcription = %q", resp.Transcription)
		}
		if resp.WordCount != 4 {
			t.Errorf("word_count = %d, want 4", resp.WordCount)
		}
		if math.Abs(resp.AudioFeatures.DurationSeconds-0.5) > 0.01 {
			t.Errorf("duration_seconds = %f, want 0.5", resp.AudioFeatures.DurationSeconds)
		}
		// 4 words in half a second is 480 wpm.
		if math.Abs(resp.SpeakingRateWPM-480) > 1 {
			t.Errorf("speaking_rate_wpm = %f, want 480", resp.SpeakingRateWPM)
		}
		if resp.Score <= 0 || resp.Score > 100 {
			t.Errorf("score = %f, out of range", resp.Score)
		}
		if resp.AIFeedback == "" {
			t.Error("ai_feedback is empty")
		}

		if len(store.sessions) != 1 {
			t.Fatalf("stored %d sessions, want 1", len(store.sessions))
		}
		if store.sessions[0].UserID != "user-1" {
			t.Errorf("session owner = %q, want user-1", store.sessions[0].UserID)
		}
		if store.sessions[0].ID != resp.SessionID {
			t.Errorf("stored id %q != response id %q", store.sessions[0].ID, resp.SessionID)
		}
	})

	t.Run("rejects non-wav upload", func(t *testing.T) {
		h := newTestHandler(t, &memStore{}, &fakeTranscriber{})

		body, contentType := multipartAudio(t, []byte("definitely not audio"))
		req := httptest.NewRequest("POST", "/analyze-speech", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("rejects missing audio field", func(t *testing.T) {
		h := newTestHandler(t, &memStore{}, &fakeTranscriber{})

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		mw.WriteField("note", "no audio here")
		mw.Close()

		req := httptest.NewRequest("POST", "/analyze-speech", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPracticeScript(t *testing.T) {
	h := newTestHandler(t, &memStore{}, &fakeTranscriber{})

	req := httptest.NewRequest("GET", "/practice-script?difficulty=advanced", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Script struct {
			Text       string `json:"text"`
			Difficulty string `json:"difficulty"`
			Category   string `json:"category"`
			WordCount  int    `json:"word_count"`
		} `json:"script"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Script.Difficulty != "advanced" {
		t.Errorf("difficulty = %q, want advanced", resp.Script.Difficulty)
	}
	if resp.Script.Text == "" || resp.Script.WordCount == 0 {
		t.Errorf("script not populated: %+v", resp.Script)
	}
}

func TestSessionsAndStats(t *testing.T) {
	store := &memStore{}
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, score := range []float64{45, 72, 91} {
		store.InsertSession(context.Background(), db.Session{
			ID:        fmt.Sprintf("s%d", i),
			UserID:    "user-1",
			Score:     score,
			WordCount: 10,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	h := newTestHandler(t, store, &fakeTranscriber{})

	t.Run("sessions honors limit", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions?limit=2", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			Sessions []db.Session `json:"sessions"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Sessions) != 2 {
			t.Errorf("len(sessions) = %d, want 2", len(resp.Sessions))
		}
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions?limit=banana", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("stats aggregates", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/stats", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			Stats db.Stats `json:"stats"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Stats.TotalSessions != 3 {
			t.Errorf("total_sessions = %d, want 3", resp.Stats.TotalSessions)
		}
		if resp.Stats.AverageScore != 69.33 {
			t.Errorf("average_score = %v, want 69.33", resp.Stats.AverageScore)
		}
	})

	t.Run("empty session list encodes as array", func(t *testing.T) {
		empty := newTestHandler(t, &memStore{}, &fakeTranscriber{})
		req := httptest.NewRequest("GET", "/sessions", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		empty.Router().ServeHTTP(rec, req)
		if !bytes.Contains(rec.Body.Bytes(), []byte(`"sessions":[]`)) {
			t.Errorf("body = %s, want empty array", rec.Body.String())
		}
	})
}

func TestDashboardAndHealth(t *testing.T) {
	store := &memStore{}
	store.InsertSession(context.Background(), db.Session{
		ID:        "s1",
		UserID:    "user-1",
		Score:     85,
		CreatedAt: time.Now(),
	})
	h := newTestHandler(t, store, &fakeTranscriber{})

	t.Run("dashboard renders", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard?access_token=tok", nil)
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := rec.Body.String()
		if !bytes.Contains(rec.Body.Bytes(), []byte("Practice Dashboard")) {
			t.Errorf("dashboard body missing title:\n%s", body)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("bg-green-500")) {
			t.Errorf("score 85 should render a green bar:\n%s", body)
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("healthy")) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})
}

func TestAudioPlayback(t *testing.T) {
	store := &memStore{}
	blobs, _ := storage.New(t.TempDir())
	ref, _ := blobs.Save("user-1", []byte("RIFFfake"))
	store.InsertSession(context.Background(), db.Session{
		ID:        "s1",
		UserID:    "user-1",
		AudioPath: ref,
		CreatedAt: time.Now(),
	})

	h := NewHandler(store, blobs, &fakeTranscriber{}, fakeCoach{},
		tokenVerifier{"tok": "user-1"}, t.TempDir(), log.New(io.Discard))

	t.Run("serves stored audio", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/audio/s1", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "RIFFfake" {
			t.Errorf("body = %q, want stored audio", rec.Body.String())
		}
	})

	t.Run("other users cannot fetch it", func(t *testing.T) {
		other := NewHandler(store, blobs, &fakeTranscriber{}, fakeCoach{},
			tokenVerifier{"tok2": "user-2"}, t.TempDir(), log.New(io.Discard))
		req := httptest.NewRequest("GET", "/audio/s1", nil)
		req.Header.Set("Authorization", "Bearer tok2")
		rec := httptest.NewRecorder()
		other.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
