package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"emailgame/models"

	_ "github.com/lib/pq"
)

// AttemptRepository is an append-only store of graded attempts backing the
// leaderboard.
type AttemptRepository interface {
	AppendAttempt(attempt *models.Attempt) error
	GetAttemptByID(id string) (*models.Attempt, error)
	ListRankedAttempts(scenarioID string, limit int) ([]*models.Attempt, error)
}

type PostgresAttemptRepository struct {
	db *sql.DB
}

func NewPostgresAttemptRepository(databaseURL string) (*PostgresAttemptRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAttemptRepository{db: db}, nil
}

func (r *PostgresAttemptRepository) AppendAttempt(attempt *models.Attempt) error {
	resultJSON, err := json.Marshal(attempt.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal grading result: %w", err)
	}

	query := `
		INSERT INTO emailgame.attempts (id, player_name, scenario_id, email_text, result, total_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING submitted_at`

	row := r.db.QueryRow(query, attempt.ID, attempt.PlayerName, attempt.ScenarioID,
		attempt.EmailText, resultJSON, attempt.Result.TotalScore)

	if err := row.Scan(&attempt.SubmittedAt); err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}

	return nil
}

func (r *PostgresAttemptRepository) GetAttemptByID(id string) (*models.Attempt, error) {
	query := `
		SELECT id, player_name, scenario_id, email_text, result, submitted_at
		FROM emailgame.attempts
		WHERE id = $1`

	attempt := &models.Attempt{}
	var resultJSON []byte
	row := r.db.QueryRow(query, id)

	err := row.Scan(&attempt.ID, &attempt.PlayerName, &attempt.ScenarioID,
		&attempt.EmailText, &resultJSON, &attempt.SubmittedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("attempt %s not found", id)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := json.Unmarshal(resultJSON, &attempt.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grading result: %w", err)
	}

	return attempt, nil
}

// ListRankedAttempts returns attempts for a scenario ordered by score, best
// first, ties broken by earliest submission.
func (r *PostgresAttemptRepository) ListRankedAttempts(scenarioID string, limit int) ([]*models.Attempt, error) {
	query := `
		SELECT id, player_name, scenario_id, email_text, result, submitted_at
		FROM emailgame.attempts
		WHERE scenario_id = $1
		ORDER BY total_score DESC, submitted_at ASC
		LIMIT $2`

	rows, err := r.db.Query(query, scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.Attempt, 0)
	for rows.Next() {
		attempt := &models.Attempt{}
		var resultJSON []byte
		err := rows.Scan(&attempt.ID, &attempt.PlayerName, &attempt.ScenarioID,
			&attempt.EmailText, &resultJSON, &attempt.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		if err := json.Unmarshal(resultJSON, &attempt.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grading result: %w", err)
		}

		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over attempts: %w", err)
	}

	return attempts, nil
}

func (r *PostgresAttemptRepository) Close() error {
	return r.db.Close()
}
