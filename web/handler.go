package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"clearspeak/analysis"
	"clearspeak/auth"
	"clearspeak/coach"
	"clearspeak/db"
	"clearspeak/etc"
	"clearspeak/scripts"
	"clearspeak/storage"
	"clearspeak/stt"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxUploadBytes      = 32 << 20
	defaultSessionLimit = 10
	maxSessionLimit     = 100
)

// SessionStore is the slice of db.Store the handlers need.
type SessionStore interface {
	InsertSession(ctx context.Context, sess db.Session) error
	RecentSessions(ctx context.Context, userID string, limit int) ([]db.Session, error)
	GetSession(ctx context.Context, userID, id string) (db.Session, error)
	UserStats(ctx context.Context, userID string) (db.Stats, error)
}

type Handler struct {
	sessions  SessionStore
	blobs     *storage.Store
	stt       stt.Transcriber
	coach     coach.Generator
	verifier  auth.Verifier
	staticDir string
	logger    *log.Logger
}

func NewHandler(
	sessions SessionStore,
	blobs *storage.Store,
	transcriber stt.Transcriber,
	feedback coach.Generator,
	verifier auth.Verifier,
	staticDir string,
	logger *log.Logger,
) *Handler {
	return &Handler{
		sessions:  sessions,
		blobs:     blobs,
		stt:       transcriber,
		coach:     feedback,
		verifier:  verifier,
		staticDir: staticDir,
		logger:    logger,
	}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/practice-script", h.handlePracticeScript)
	r.Get("/", h.handleIndex)

	fs := http.FileServer(http.Dir(h.staticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.verifier, h.logger))
		r.Post("/analyze-speech", h.handleAnalyzeSpeech)
		r.Get("/sessions", h.handleSessions)
		r.Get("/stats", h.handleStats)
		r.Get("/audio/{id}", h.handleAudio)
		r.Get("/dashboard", h.handleDashboard)
	})

	return r
}

// Serve runs the HTTP server until the listener fails.
func (h *Handler) Serve(port int) error {
	h.logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), h.Router())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, h.staticDir+"/index.html")
}

func (h *Handler) handlePracticeScript(w http.ResponseWriter, r *http.Request) {
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		difficulty = scripts.DefaultDifficulty
	}
	category := r.URL.Query().Get("category")

	script := scripts.Random(difficulty, category)
	respondJSON(w, map[string]any{"script": script}, http.StatusOK)
}

func (h *Handler) handleAnalyzeSpeech(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, "missing audio field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, "read audio", http.StatusBadRequest)
		return
	}
	if len(audio) == 0 {
		respondError(w, "empty audio upload", http.StatusBadRequest)
		return
	}

	clip, err := analysis.DecodeWAV(bytes.NewReader(audio))
	if err != nil {
		h.logger.Error("decode upload", "error", err.Error(), "filename", header.Filename)
		respondError(w, "unsupported audio format", http.StatusUnprocessableEntity)
		return
	}
	features := analysis.ExtractFeatures(clip)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	result, err := h.stt.Transcribe(r.Context(), bytes.NewReader(audio), contentType)
	if err != nil {
		h.logger.Error("transcribe", "error", err.Error())
		respondError(w, "transcription failed", http.StatusBadGateway)
		return
	}

	wordCount := analysis.WordCount(result.Text)
	wpm := analysis.SpeakingRateWPM(wordCount, features.DurationSeconds)
	score := analysis.Score(wpm, features)

	feedback := h.coach.Feedback(r.Context(), coach.Observation{
		Transcription:   result.Text,
		WordCount:       wordCount,
		SpeakingRateWPM: wpm,
		Features:        features,
	})

	audioPath, err := h.blobs.Save(userID, audio)
	if err != nil {
		h.logger.Error("store audio", "error", err.Error())
		respondError(w, "failed to store audio", http.StatusInternalServerError)
		return
	}

	session := db.Session{
		ID:              etc.Gensym(),
		UserID:          userID,
		AudioPath:       audioPath,
		Transcription:   result.Text,
		WordCount:       wordCount,
		SpeakingRateWPM: wpm,
		DurationSeconds: features.DurationSeconds,
		AverageVolume:   features.AverageVolume,
		VolumeVariation: features.VolumeVariation,
		SilenceRatio:    features.SilenceRatio,
		Score:           score,
		AIFeedback:      feedback,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.sessions.InsertSession(r.Context(), session); err != nil {
		h.logger.Error("save session", "error", err.Error())
		respondError(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session analyzed",
		"id", session.ID, "user", userID,
		"words", wordCount, "wpm", fmt.Sprintf("%.1f", wpm), "score", score)

	respondJSON(w, map[string]any{
		"session_id":        session.ID,
		"transcription":     result.Text,
		"word_count":        wordCount,
		"speaking_rate_wpm": wpm,
		"audio_features":    features,
		"score":             score,
		"ai_feedback":       feedback,
	}, http.StatusOK)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxSessionLimit {
		limit = maxSessionLimit
	}

	sessions, err := h.sessions.RecentSessions(r.Context(), auth.UserID(r), limit)
	if err != nil {
		h.logger.Error("fetch sessions", "error", err.Error())
		respondError(w, "failed to fetch sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}

	respondJSON(w, map[string]any{"sessions": sessions}, http.StatusOK)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.UserStats(r.Context(), auth.UserID(r))
	if err != nil {
		h.logger.Error("compute stats", "error", err.Error())
		respondError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"stats": stats}, http.StatusOK)
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.Context(), auth.UserID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "session not found", http.StatusNotFound)
		return
	}

	f, err := h.blobs.Open(sess.AudioPath)
	if err != nil {
		h.logger.Error("open audio", "error", err.Error(), "session", sess.ID)
		respondError(w, "audio not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, sess.ID+".wav", sess.CreatedAt, f)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r)

	sessions, err := h.sessions.RecentSessions(r.Context(), userID, ChartBarCount)
	if err != nil {
		h.logger.Error("fetch sessions", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	stats, err := h.sessions.UserStats(r.Context(), userID)
	if err != nil {
		h.logger.Error("compute stats", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := dashboardData{
		Stats:         stats,
		Bars:          ChartBars(sessions),
		Sessions:      sessions,
		Token:         auth.TokenFromRequest(r),
		ChartHeightPx: ChartHeightPx,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		h.logger.Error("render dashboard", "error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
