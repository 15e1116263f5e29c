package services

import (
	"fmt"
	"time"

	"emailgame/db"
	"emailgame/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const defaultLeaderboardSize = 20

// LeaderboardEntry is the public projection of a ranked attempt. The email
// text itself stays private.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	PlayerName    string    `json:"player_name"`
	ScenarioID    string    `json:"scenario_id"`
	TotalScore    int       `json:"total_score"`
	TotalPossible int       `json:"total_possible"`
	GoalAchieved  bool      `json:"goal_achieved"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// LeaderboardService records graded attempts and serves per-scenario
// rankings.
type LeaderboardService struct {
	repo db.AttemptRepository
}

func NewLeaderboardService(repo db.AttemptRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

func (s *LeaderboardService) RecordAttempt(playerName, scenarioID, emailText string, result models.GradingResult) (*models.Attempt, error) {
	if playerName == "" {
		playerName = "anonymous"
	}

	attempt := &models.Attempt{
		ID:         uuid.NewString(),
		PlayerName: playerName,
		ScenarioID: scenarioID,
		EmailText:  emailText,
		Result:     result,
	}

	if err := s.repo.AppendAttempt(attempt); err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return attempt, nil
}

func (s *LeaderboardService) GetLeaderboard(scenarioID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}

	attempts, err := s.repo.ListRankedAttempts(scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	return lo.Map(attempts, func(attempt *models.Attempt, i int) LeaderboardEntry {
		return LeaderboardEntry{
			Rank:          i + 1,
			PlayerName:    attempt.PlayerName,
			ScenarioID:    attempt.ScenarioID,
			TotalScore:    attempt.Result.TotalScore,
			TotalPossible: attempt.Result.TotalPossible,
			GoalAchieved:  attempt.Result.Passed(),
			SubmittedAt:   attempt.SubmittedAt,
		}
	}), nil
}
