package services

import (
	"fmt"
	"log"
	"sort"
	"time"

	"emailgame/db"
	"emailgame/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SessionService manages player sessions and level progression on top of the
// session repository.
type SessionService struct {
	repo db.SessionRepository
}

func NewSessionService(repo db.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

func (s *SessionService) CreateSession() (*models.GameSession, error) {
	session := &models.GameSession{
		SessionID:    uuid.NewString(),
		CurrentLevel: 1,
	}

	if err := s.repo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[INFO] Created game session %s", session.SessionID)
	return session, nil
}

func (s *SessionService) GetSession(sessionID string) (*models.GameSession, error) {
	return s.repo.GetSession(sessionID)
}

// SessionProgress is the session plus its derived progression state.
type SessionProgress struct {
	Session         *models.GameSession `json:"session"`
	CompletedLevels []int               `json:"completed_levels"`
	MaxLevel        int                 `json:"max_level"`
	GameComplete    bool                `json:"game_complete"`
}

func (s *SessionService) GetProgress(sessionID string) (*SessionProgress, error) {
	session, err := s.repo.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.GetCompletedLevels(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed levels: %w", err)
	}

	return &SessionProgress{
		Session:         session,
		CompletedLevels: completed,
		MaxLevel:        MaxAvailableLevel(),
		GameComplete:    containsLevel(completed, MaxAvailableLevel()),
	}, nil
}

// HandleLevelSuccess records the completion and moves the session to the next
// level, capped at the highest one.
func (s *SessionService) HandleLevelSuccess(sessionID string, level int) error {
	if err := s.repo.MarkLevelComplete(sessionID, level); err != nil {
		return err
	}

	next := level + 1
	if next > MaxAvailableLevel() {
		next = MaxAvailableLevel()
	}
	if err := s.repo.TouchSession(sessionID, next); err != nil {
		return err
	}

	log.Printf("[INFO] Session %s completed level %d", sessionID, level)
	return nil
}

// HandleLevelFailure drops the completion for this level and every level
// above it, then keeps the session on the failed level.
func (s *SessionService) HandleLevelFailure(sessionID string, level int) error {
	if err := s.repo.ClearCompletionsFrom(sessionID, level); err != nil {
		return err
	}
	if err := s.repo.TouchSession(sessionID, level); err != nil {
		return err
	}

	log.Printf("[INFO] Session %s failed level %d", sessionID, level)
	return nil
}

// CompletionEntry is one finisher on the completion-time leaderboard.
type CompletionEntry struct {
	Rank             int       `json:"rank"`
	SessionID        string    `json:"session_id"`
	CompletedAt      time.Time `json:"completed_at"`
	PlayTimeSeconds  float64   `json:"play_time_seconds"`
	TotalSubmissions int       `json:"total_submissions"`
	LevelsCompleted  int       `json:"levels_completed"`
}

// GetCompletionLeaderboard lists sessions that finished every level, fastest
// finisher first.
func (s *SessionService) GetCompletionLeaderboard() ([]CompletionEntry, error) {
	required := lo.Keys(LevelScenarios)
	sort.Ints(required)

	completions, err := s.repo.ListCompletedSessions(required)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed sessions: %w", err)
	}

	return lo.Map(completions, func(c *models.SessionCompletion, i int) CompletionEntry {
		return CompletionEntry{
			Rank:             i + 1,
			SessionID:        c.SessionID,
			CompletedAt:      c.CompletedAt,
			PlayTimeSeconds:  c.CompletedAt.Sub(c.CreatedAt).Seconds(),
			TotalSubmissions: c.TotalSubmissions,
			LevelsCompleted:  c.LevelsCompleted,
		}
	}), nil
}

func (s *SessionService) GetSubmissions(sessionID string, level int) ([]*models.EmailSubmission, error) {
	return s.repo.GetSubmissions(sessionID, level)
}

func (s *SessionService) GetTurns(sessionID string, level int) ([]*models.TurnRecord, error) {
	return s.repo.GetTurns(sessionID, level)
}

func containsLevel(levels []int, level int) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
