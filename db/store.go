package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed db_init.sql
var sqlFS embed.FS

// Session is one stored practice session. Immutable once inserted.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"-"`
	AudioPath       string    `json:"audio_path"`
	Transcription   string    `json:"transcription"`
	WordCount       int       `json:"word_count"`
	SpeakingRateWPM float64   `json:"speaking_rate_wpm"`
	DurationSeconds float64   `json:"duration_seconds"`
	AverageVolume   float64   `json:"average_volume"`
	VolumeVariation float64   `json:"volume_variation"`
	SilenceRatio    float64   `json:"silence_ratio"`
	Score           float64   `json:"score"`
	AIFeedback      string    `json:"ai_feedback"`
	CreatedAt       time.Time `json:"created_at"`
}

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open connects to Postgres and applies the embedded schema.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sqlFile, err := sqlFS.ReadFile("db_init.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read embedded db_init.sql: %w", err)
	}

	if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("execute embedded db_init.sql: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) InsertSession(ctx context.Context, sess Session) error {
	s.logger.Debug("insert session", "id", sess.ID, "user", sess.UserID, "score", sess.Score)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO practice_sessions (
			id, user_id, audio_path, transcription, word_count,
			speaking_rate_wpm, duration_seconds, average_volume,
			volume_variation, silence_ratio, score, ai_feedback, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		sess.ID, sess.UserID, sess.AudioPath, sess.Transcription, sess.WordCount,
		sess.SpeakingRateWPM, sess.DurationSeconds, sess.AverageVolume,
		sess.VolumeVariation, sess.SilenceRatio, sess.Score, sess.AIFeedback,
		sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecentSessions returns the user's sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, audio_path, transcription, word_count,
		       speaking_rate_wpm, duration_seconds, average_volume,
		       volume_variation, silence_ratio, score, ai_feedback, created_at
		FROM practice_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.AudioPath, &sess.Transcription,
			&sess.WordCount, &sess.SpeakingRateWPM, &sess.DurationSeconds,
			&sess.AverageVolume, &sess.VolumeVariation, &sess.SilenceRatio,
			&sess.Score, &sess.AIFeedback, &sess.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// GetSession fetches one session, scoped to its owner.
func (s *Store) GetSession(ctx context.Context, userID, id string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, audio_path, transcription, word_count,
		       speaking_rate_wpm, duration_seconds, average_volume,
		       volume_variation, silence_ratio, score, ai_feedback, created_at
		FROM practice_sessions
		WHERE user_id = $1 AND id = $2
	`, userID, id).Scan(
		&sess.ID, &sess.UserID, &sess.AudioPath, &sess.Transcription,
		&sess.WordCount, &sess.SpeakingRateWPM, &sess.DurationSeconds,
		&sess.AverageVolume, &sess.VolumeVariation, &sess.SilenceRatio,
		&sess.Score, &sess.AIFeedback, &sess.CreatedAt,
	)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}
