package services

import (
	"testing"

	"emailgame/db"
	"emailgame/models"
)

func gradedResult(score, possible int, verdict models.GoalVerdict) models.GradingResult {
	return models.GradingResult{
		TotalScore:    score,
		TotalPossible: possible,
		GoalVerdict:   verdict,
	}
}

func TestLeaderboardRanking(t *testing.T) {
	service := NewLeaderboardService(db.NewInMemoryAttemptRepository())

	if _, err := service.RecordAttempt("alice", "3", "email a", gradedResult(12, 25, models.GoalAchieved)); err != nil {
		t.Fatalf("RecordAttempt() unexpected error: %v", err)
	}
	if _, err := service.RecordAttempt("bob", "3", "email b", gradedResult(21, 25, models.GoalAchieved)); err != nil {
		t.Fatalf("RecordAttempt() unexpected error: %v", err)
	}
	if _, err := service.RecordAttempt("carol", "3", "email c", gradedResult(5, 25, models.GoalNotAchieved)); err != nil {
		t.Fatalf("RecordAttempt() unexpected error: %v", err)
	}
	// An attempt for another scenario must not leak into this leaderboard.
	if _, err := service.RecordAttempt("dave", "4", "email d", gradedResult(25, 25, models.GoalAchieved)); err != nil {
		t.Fatalf("RecordAttempt() unexpected error: %v", err)
	}

	entries, err := service.GetLeaderboard("3", 0)
	if err != nil {
		t.Fatalf("GetLeaderboard() unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	expectedOrder := []string{"bob", "alice", "carol"}
	for i, name := range expectedOrder {
		if entries[i].PlayerName != name {
			t.Errorf("rank %d: expected %s, got %s", i+1, name, entries[i].PlayerName)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("expected rank %d, got %d", i+1, entries[i].Rank)
		}
	}

	if !entries[0].GoalAchieved {
		t.Error("expected top entry to have achieved the goal")
	}
	if entries[2].GoalAchieved {
		t.Error("expected bottom entry to have failed the goal")
	}
}

func TestLeaderboardLimit(t *testing.T) {
	service := NewLeaderboardService(db.NewInMemoryAttemptRepository())

	for i := 0; i < 5; i++ {
		if _, err := service.RecordAttempt("player", "3", "email", gradedResult(i, 25, models.GoalNotAchieved)); err != nil {
			t.Fatalf("RecordAttempt() unexpected error: %v", err)
		}
	}

	entries, err := service.GetLeaderboard("3", 2)
	if err != nil {
		t.Fatalf("GetLeaderboard() unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected limit to cap entries at 2, got %d", len(entries))
	}
}

func TestRecordAttemptAnonymousFallback(t *testing.T) {
	service := NewLeaderboardService(db.NewInMemoryAttemptRepository())

	attempt, err := service.RecordAttempt("", "3", "email", gradedResult(10, 25, models.GoalAchieved))
	if err != nil {
		t.Fatalf("RecordAttempt() unexpected error: %v", err)
	}
	if attempt.PlayerName != "anonymous" {
		t.Errorf("expected anonymous fallback, got %q", attempt.PlayerName)
	}
	if attempt.ID == "" {
		t.Error("expected a generated attempt ID")
	}
}
