package models

import "time"

// GameSession tracks one player's run through the levels, keyed by UUID.
type GameSession struct {
	SessionID    string    `json:"session_id"`
	CurrentLevel int       `json:"current_level"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// EmailSubmission is an immutable history record of a single email attempt.
type EmailSubmission struct {
	ID           int       `json:"id"`
	SessionID    string    `json:"session_id"`
	Level        int       `json:"level"`
	TurnNumber   int       `json:"turn_number"`
	EmailContent string    `json:"email_content"`
	GoalAchieved *bool     `json:"goal_achieved,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// EvaluationRecord snapshots everything produced while grading a submission.
type EvaluationRecord struct {
	SubmissionID   int               `json:"submission_id"`
	Result         GradingResult     `json:"result"`
	RecipientReply string            `json:"recipient_reply"`
	RubricText     string            `json:"rubric_text"`
	Strategy       *StrategyAnalysis `json:"strategy,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// LevelCompletion marks a level as currently unlocked/passed for a session.
// Unlike submissions it is mutable: failing a level removes it and everything
// above it.
type LevelCompletion struct {
	SessionID        string    `json:"session_id"`
	Level            int       `json:"level"`
	FirstCompletedAt time.Time `json:"first_completed_at"`
}

// SessionCompletion summarizes a session that finished every required level,
// for the completion-time leaderboard.
type SessionCompletion struct {
	SessionID        string    `json:"session_id"`
	CreatedAt        time.Time `json:"created_at"`
	CompletedAt      time.Time `json:"completed_at"`
	TotalSubmissions int       `json:"total_submissions"`
	LevelsCompleted  int       `json:"levels_completed"`
}

// TurnRecord is one exchange of a multi-turn level, used to rebuild the
// conversation context for the next turn.
type TurnRecord struct {
	TurnNumber     int            `json:"turn_number"`
	EmailContent   string         `json:"email_content"`
	RecipientReply string         `json:"recipient_reply,omitempty"`
	Result         *GradingResult `json:"result,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}
