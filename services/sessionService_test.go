package services

import (
	"testing"

	"emailgame/db"
)

func TestSessionLifecycle(t *testing.T) {
	service := NewSessionService(db.NewInMemorySessionRepository())

	session, err := service.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}
	if session.SessionID == "" {
		t.Fatal("expected a session ID")
	}
	if session.CurrentLevel != 1 {
		t.Errorf("new sessions start at level 1, got %d", session.CurrentLevel)
	}

	loaded, err := service.GetSession(session.SessionID)
	if err != nil {
		t.Fatalf("GetSession() unexpected error: %v", err)
	}
	if loaded.SessionID != session.SessionID {
		t.Errorf("expected session %s, got %s", session.SessionID, loaded.SessionID)
	}

	if _, err := service.GetSession("no-such-session"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestLevelProgression(t *testing.T) {
	service := NewSessionService(db.NewInMemorySessionRepository())

	session, err := service.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	if err := service.HandleLevelSuccess(session.SessionID, 1); err != nil {
		t.Fatalf("HandleLevelSuccess() unexpected error: %v", err)
	}
	if err := service.HandleLevelSuccess(session.SessionID, 2); err != nil {
		t.Fatalf("HandleLevelSuccess() unexpected error: %v", err)
	}

	progress, err := service.GetProgress(session.SessionID)
	if err != nil {
		t.Fatalf("GetProgress() unexpected error: %v", err)
	}

	if len(progress.CompletedLevels) != 2 {
		t.Errorf("expected 2 completed levels, got %v", progress.CompletedLevels)
	}
	if progress.Session.CurrentLevel != 3 {
		t.Errorf("expected current level 3, got %d", progress.Session.CurrentLevel)
	}
	if progress.GameComplete {
		t.Error("game must not be complete before the final level")
	}
}

// Failing a level wipes that completion and every one above it.
func TestLevelFailureInvalidatesProgress(t *testing.T) {
	service := NewSessionService(db.NewInMemorySessionRepository())

	session, err := service.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	for level := 1; level <= 3; level++ {
		if err := service.HandleLevelSuccess(session.SessionID, level); err != nil {
			t.Fatalf("HandleLevelSuccess(%d) unexpected error: %v", level, err)
		}
	}

	if err := service.HandleLevelFailure(session.SessionID, 2); err != nil {
		t.Fatalf("HandleLevelFailure() unexpected error: %v", err)
	}

	progress, err := service.GetProgress(session.SessionID)
	if err != nil {
		t.Fatalf("GetProgress() unexpected error: %v", err)
	}

	if len(progress.CompletedLevels) != 1 || progress.CompletedLevels[0] != 1 {
		t.Errorf("expected only level 1 to remain completed, got %v", progress.CompletedLevels)
	}
	if progress.Session.CurrentLevel != 2 {
		t.Errorf("expected session back on level 2, got %d", progress.Session.CurrentLevel)
	}
}

func TestGameCompleteAtMaxLevel(t *testing.T) {
	service := NewSessionService(db.NewInMemorySessionRepository())

	session, err := service.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	for level := 1; level <= MaxAvailableLevel(); level++ {
		if err := service.HandleLevelSuccess(session.SessionID, level); err != nil {
			t.Fatalf("HandleLevelSuccess(%d) unexpected error: %v", level, err)
		}
	}

	progress, err := service.GetProgress(session.SessionID)
	if err != nil {
		t.Fatalf("GetProgress() unexpected error: %v", err)
	}

	if !progress.GameComplete {
		t.Error("expected game to be complete after finishing every level")
	}
	if progress.Session.CurrentLevel != MaxAvailableLevel() {
		t.Errorf("current level must cap at %d, got %d", MaxAvailableLevel(), progress.Session.CurrentLevel)
	}
}

// Only sessions that finished every level appear, fastest finisher first.
func TestCompletionLeaderboard(t *testing.T) {
	service := NewSessionService(db.NewInMemorySessionRepository())

	finishGame := func(t *testing.T) string {
		t.Helper()
		session, err := service.CreateSession()
		if err != nil {
			t.Fatalf("CreateSession() unexpected error: %v", err)
		}
		for level := 1; level <= MaxAvailableLevel(); level++ {
			if err := service.HandleLevelSuccess(session.SessionID, level); err != nil {
				t.Fatalf("HandleLevelSuccess(%d) unexpected error: %v", level, err)
			}
		}
		return session.SessionID
	}

	first := finishGame(t)
	second := finishGame(t)

	straggler, err := service.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}
	if err := service.HandleLevelSuccess(straggler.SessionID, 1); err != nil {
		t.Fatalf("HandleLevelSuccess() unexpected error: %v", err)
	}

	entries, err := service.GetCompletionLeaderboard()
	if err != nil {
		t.Fatalf("GetCompletionLeaderboard() unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 finishers, got %d", len(entries))
	}
	if entries[0].SessionID != first || entries[1].SessionID != second {
		t.Errorf("expected order [%s %s], got [%s %s]", first, second, entries[0].SessionID, entries[1].SessionID)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("expected ranks 1 and 2, got %d and %d", entries[0].Rank, entries[1].Rank)
	}
	if entries[0].LevelsCompleted != MaxAvailableLevel() {
		t.Errorf("expected %d completed levels, got %d", MaxAvailableLevel(), entries[0].LevelsCompleted)
	}
	if entries[0].PlayTimeSeconds < 0 {
		t.Errorf("play time must not be negative, got %f", entries[0].PlayTimeSeconds)
	}
}
