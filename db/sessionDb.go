package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"emailgame/models"

	"github.com/lib/pq"
)

// SessionRepository persists game sessions, their immutable submission
// history, and the mutable set of completed levels.
type SessionRepository interface {
	CreateSession(session *models.GameSession) error
	GetSession(sessionID string) (*models.GameSession, error)
	TouchSession(sessionID string, currentLevel int) error

	SaveSubmission(submission *models.EmailSubmission) error
	SaveEvaluation(record *models.EvaluationRecord) error
	GetSubmissions(sessionID string, level int) ([]*models.EmailSubmission, error)
	GetTurns(sessionID string, level int) ([]*models.TurnRecord, error)

	MarkLevelComplete(sessionID string, level int) error
	ClearCompletionsFrom(sessionID string, level int) error
	GetCompletedLevels(sessionID string) ([]int, error)
	ListCompletedSessions(requiredLevels []int) ([]*models.SessionCompletion, error)
}

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(databaseURL string) (*PostgresSessionRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSessionRepository{db: db}, nil
}

func (r *PostgresSessionRepository) CreateSession(session *models.GameSession) error {
	query := `
		INSERT INTO emailgame.game_sessions (session_id, current_level)
		VALUES ($1, $2)
		RETURNING created_at, last_accessed`

	row := r.db.QueryRow(query, session.SessionID, session.CurrentLevel)

	if err := row.Scan(&session.CreatedAt, &session.LastAccessed); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *PostgresSessionRepository) GetSession(sessionID string) (*models.GameSession, error) {
	query := `
		SELECT session_id, current_level, created_at, last_accessed
		FROM emailgame.game_sessions
		WHERE session_id = $1`

	session := &models.GameSession{}
	row := r.db.QueryRow(query, sessionID)

	err := row.Scan(&session.SessionID, &session.CurrentLevel, &session.CreatedAt, &session.LastAccessed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (r *PostgresSessionRepository) TouchSession(sessionID string, currentLevel int) error {
	query := `
		UPDATE emailgame.game_sessions
		SET current_level = $2, last_accessed = NOW()
		WHERE session_id = $1`

	result, err := r.db.Exec(query, sessionID, currentLevel)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}

	return nil
}

func (r *PostgresSessionRepository) SaveSubmission(submission *models.EmailSubmission) error {
	query := `
		INSERT INTO emailgame.email_submissions (session_id, level, turn_number, email_content, goal_achieved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at`

	row := r.db.QueryRow(query, submission.SessionID, submission.Level, submission.TurnNumber,
		submission.EmailContent, submission.GoalAchieved)

	if err := row.Scan(&submission.ID, &submission.SubmittedAt); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

func (r *PostgresSessionRepository) SaveEvaluation(record *models.EvaluationRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal grading result: %w", err)
	}

	var strategyJSON []byte
	if record.Strategy != nil {
		strategyJSON, err = json.Marshal(record.Strategy)
		if err != nil {
			return fmt.Errorf("failed to marshal strategy analysis: %w", err)
		}
	}

	query := `
		INSERT INTO emailgame.evaluations (submission_id, result, recipient_reply, rubric_text, strategy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	row := r.db.QueryRow(query, record.SubmissionID, resultJSON, record.RecipientReply,
		record.RubricText, strategyJSON)

	if err := row.Scan(&record.CreatedAt); err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return nil
}

func (r *PostgresSessionRepository) GetSubmissions(sessionID string, level int) ([]*models.EmailSubmission, error) {
	query := `
		SELECT id, session_id, level, turn_number, email_content, goal_achieved, submitted_at
		FROM emailgame.email_submissions
		WHERE session_id = $1 AND level = $2
		ORDER BY turn_number ASC, submitted_at ASC`

	rows, err := r.db.Query(query, sessionID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*models.EmailSubmission, 0)
	for rows.Next() {
		submission := &models.EmailSubmission{}
		err := rows.Scan(&submission.ID, &submission.SessionID, &submission.Level,
			&submission.TurnNumber, &submission.EmailContent, &submission.GoalAchieved,
			&submission.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over submissions: %w", err)
	}

	return submissions, nil
}

func (r *PostgresSessionRepository) GetTurns(sessionID string, level int) ([]*models.TurnRecord, error) {
	query := `
		SELECT s.turn_number, s.email_content, COALESCE(e.recipient_reply, ''), e.result, s.submitted_at
		FROM emailgame.email_submissions s
		LEFT JOIN emailgame.evaluations e ON e.submission_id = s.id
		WHERE s.session_id = $1 AND s.level = $2
		ORDER BY s.turn_number ASC, s.submitted_at ASC`

	rows, err := r.db.Query(query, sessionID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]*models.TurnRecord, 0)
	for rows.Next() {
		turn := &models.TurnRecord{}
		var resultJSON []byte
		err := rows.Scan(&turn.TurnNumber, &turn.EmailContent, &turn.RecipientReply,
			&resultJSON, &turn.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		if len(resultJSON) > 0 {
			result := &models.GradingResult{}
			if err := json.Unmarshal(resultJSON, result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal grading result: %w", err)
			}
			turn.Result = result
		}

		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over turns: %w", err)
	}

	return turns, nil
}

func (r *PostgresSessionRepository) MarkLevelComplete(sessionID string, level int) error {
	query := `
		INSERT INTO emailgame.level_completions (session_id, level)
		VALUES ($1, $2)
		ON CONFLICT (session_id, level) DO NOTHING`

	if _, err := r.db.Exec(query, sessionID, level); err != nil {
		return fmt.Errorf("failed to mark level complete: %w", err)
	}

	return nil
}

// ClearCompletionsFrom removes the completion for the given level and every
// level above it. Used when a later failure invalidates earlier progress.
func (r *PostgresSessionRepository) ClearCompletionsFrom(sessionID string, level int) error {
	query := `
		DELETE FROM emailgame.level_completions
		WHERE session_id = $1 AND level >= $2`

	if _, err := r.db.Exec(query, sessionID, level); err != nil {
		return fmt.Errorf("failed to clear level completions: %w", err)
	}

	return nil
}

func (r *PostgresSessionRepository) GetCompletedLevels(sessionID string) ([]int, error) {
	query := `
		SELECT level
		FROM emailgame.level_completions
		WHERE session_id = $1
		ORDER BY level ASC`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query level completions: %w", err)
	}
	defer rows.Close()

	levels := make([]int, 0)
	for rows.Next() {
		var level int
		if err := rows.Scan(&level); err != nil {
			return nil, fmt.Errorf("failed to scan level completion: %w", err)
		}
		levels = append(levels, level)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over level completions: %w", err)
	}

	return levels, nil
}

// ListCompletedSessions returns every session that completed all of the given
// levels, ranked fastest finisher first.
func (r *PostgresSessionRepository) ListCompletedSessions(requiredLevels []int) ([]*models.SessionCompletion, error) {
	levels := make([]int64, 0, len(requiredLevels))
	for _, level := range requiredLevels {
		levels = append(levels, int64(level))
	}

	query := `
		SELECT c.session_id,
		       s.created_at,
		       MAX(c.first_completed_at) AS completed_at,
		       (SELECT COUNT(*) FROM emailgame.email_submissions es WHERE es.session_id = c.session_id) AS total_submissions,
		       COUNT(*) AS levels_completed
		FROM emailgame.level_completions c
		JOIN emailgame.game_sessions s ON s.session_id = c.session_id
		GROUP BY c.session_id, s.created_at
		HAVING COUNT(*) FILTER (WHERE c.level = ANY($1)) = $2
		ORDER BY completed_at ASC`

	rows, err := r.db.Query(query, pq.Array(levels), len(levels))
	if err != nil {
		return nil, fmt.Errorf("failed to query completed sessions: %w", err)
	}
	defer rows.Close()

	completions := make([]*models.SessionCompletion, 0)
	for rows.Next() {
		completion := &models.SessionCompletion{}
		err := rows.Scan(&completion.SessionID, &completion.CreatedAt, &completion.CompletedAt,
			&completion.TotalSubmissions, &completion.LevelsCompleted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completed session: %w", err)
		}
		completions = append(completions, completion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over completed sessions: %w", err)
	}

	return completions, nil
}

func (r *PostgresSessionRepository) Close() error {
	return r.db.Close()
}

// touchTime exists so the in-memory repository stamps times the same way the
// database does.
func touchTime() time.Time {
	return time.Now().UTC()
}
