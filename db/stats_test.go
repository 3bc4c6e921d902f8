package db

import (
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		got := ComputeStats(nil)
		if got.TotalSessions != 0 || got.AverageScore != 0 || got.TotalWords != 0 {
			t.Errorf("ComputeStats(nil) = %+v, want zeros", got)
		}
		if got.LatestSession != nil {
			t.Errorf("LatestSession = %v, want nil", got.LatestSession)
		}
	})

	t.Run("three sessions average with display rounding", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		sessions := []Session{
			{Score: 45, SpeakingRateWPM: 110, WordCount: 30, CreatedAt: base},
			{Score: 72, SpeakingRateWPM: 130, WordCount: 40, CreatedAt: base.Add(time.Hour)},
			{Score: 91, SpeakingRateWPM: 150, WordCount: 50, CreatedAt: base.Add(2 * time.Hour)},
		}

		got := ComputeStats(sessions)
		if got.TotalSessions != 3 {
			t.Errorf("TotalSessions = %d, want 3", got.TotalSessions)
		}
		if got.AverageScore != 69.33 {
			t.Errorf("AverageScore = %v, want 69.33", got.AverageScore)
		}
		if got.AverageWPM != 130 {
			t.Errorf("AverageWPM = %v, want 130", got.AverageWPM)
		}
		if got.TotalWords != 120 {
			t.Errorf("TotalWords = %d, want 120", got.TotalWords)
		}
		if got.LatestSession == nil || !got.LatestSession.Equal(base.Add(2*time.Hour)) {
			t.Errorf("LatestSession = %v, want %v", got.LatestSession, base.Add(2*time.Hour))
		}
	})

	t.Run("latest wins regardless of order", func(t *testing.T) {
		early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		late := early.Add(48 * time.Hour)
		got := ComputeStats([]Session{
			{Score: 50, CreatedAt: late},
			{Score: 50, CreatedAt: early},
		})
		if !got.LatestSession.Equal(late) {
			t.Errorf("LatestSession = %v, want %v", got.LatestSession, late)
		}
	})
}
