package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Stats is the aggregate view over a user's sessions. Averages are rounded
// to two decimal places for display.
type Stats struct {
	TotalSessions int        `json:"total_sessions"`
	AverageScore  float64    `json:"average_score"`
	TotalWords    int        `json:"total_words"`
	AverageWPM    float64    `json:"average_wpm"`
	LatestSession *time.Time `json:"latest_session,omitempty"`
}

// The aggregation window; sessions beyond this many do not move the stats.
const statsSessionCap = 100

// UserStats aggregates the user's most recent sessions.
func (s *Store) UserStats(ctx context.Context, userID string) (Stats, error) {
	sessions, err := s.RecentSessions(ctx, userID, statsSessionCap)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(sessions), nil
}

// ComputeStats folds session rows into aggregate stats. Pure; input order
// does not matter except that the latest timestamp wins.
func ComputeStats(sessions []Session) Stats {
	if len(sessions) == 0 {
		return Stats{}
	}

	var (
		scoreSum = decimal.Zero
		wpmSum   = decimal.Zero
		words    int
		latest   time.Time
	)

	for _, sess := range sessions {
		scoreSum = scoreSum.Add(decimal.NewFromFloat(sess.Score))
		wpmSum = wpmSum.Add(decimal.NewFromFloat(sess.SpeakingRateWPM))
		words += sess.WordCount
		if sess.CreatedAt.After(latest) {
			latest = sess.CreatedAt
		}
	}

	n := decimal.NewFromInt(int64(len(sessions)))

	return Stats{
		TotalSessions: len(sessions),
		AverageScore:  scoreSum.Div(n).Round(2).InexactFloat64(),
		TotalWords:    words,
		AverageWPM:    wpmSum.Div(n).Round(2).InexactFloat64(),
		LatestSession: &latest,
	}
}
