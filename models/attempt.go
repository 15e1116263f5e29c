package models

import "time"

// Attempt is one graded email submission recorded for the leaderboard.
// Created on submission, never mutated.
type Attempt struct {
	ID          string        `json:"id"`
	PlayerName  string        `json:"player_name"`
	ScenarioID  string        `json:"scenario_id"`
	EmailText   string        `json:"email_text"`
	Result      GradingResult `json:"result"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// StrategyAnalysis reports whether an email leaned on strategies a level
// forbids.
type StrategyAnalysis struct {
	UsedLayoff              bool   `json:"used_layoff"`
	UsedSalaryIncrease      bool   `json:"used_salary_increase"`
	UsedForbiddenStrategies bool   `json:"used_forbidden_strategies"`
	Explanation             string `json:"explanation"`
}
