package db

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"emailgame/models"

	"github.com/samber/lo"
)

// InMemoryAttemptRepository is the DB-less AttemptRepository used when no
// database URL is configured, and in tests.
type InMemoryAttemptRepository struct {
	mu       sync.Mutex
	attempts []*models.Attempt
}

func NewInMemoryAttemptRepository() *InMemoryAttemptRepository {
	return &InMemoryAttemptRepository{}
}

func (r *InMemoryAttemptRepository) AppendAttempt(attempt *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = touchTime()
	}
	stored := *attempt
	r.attempts = append(r.attempts, &stored)
	return nil
}

func (r *InMemoryAttemptRepository) GetAttemptByID(id string) (*models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, found := lo.Find(r.attempts, func(a *models.Attempt) bool { return a.ID == id })
	if !found {
		return nil, fmt.Errorf("attempt %s not found", id)
	}
	stored := *attempt
	return &stored, nil
}

func (r *InMemoryAttemptRepository) ListRankedAttempts(scenarioID string, limit int) ([]*models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matching := lo.Filter(r.attempts, func(a *models.Attempt, _ int) bool {
		return a.ScenarioID == scenarioID
	})

	ranked := make([]*models.Attempt, 0, len(matching))
	for _, attempt := range matching {
		stored := *attempt
		ranked = append(ranked, &stored)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Result.TotalScore != ranked[j].Result.TotalScore {
			return ranked[i].Result.TotalScore > ranked[j].Result.TotalScore
		}
		return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

// InMemorySessionRepository is the DB-less SessionRepository counterpart.
type InMemorySessionRepository struct {
	mu          sync.Mutex
	sessions    map[string]*models.GameSession
	submissions []*models.EmailSubmission
	evaluations map[int]*models.EvaluationRecord
	completions map[string]map[int]time.Time
	nextID      int
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions:    make(map[string]*models.GameSession),
		evaluations: make(map[int]*models.EvaluationRecord),
		completions: make(map[string]map[int]time.Time),
		nextID:      1,
	}
}

func (r *InMemorySessionRepository) CreateSession(session *models.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.SessionID]; exists {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}

	now := touchTime()
	session.CreatedAt = now
	session.LastAccessed = now

	stored := *session
	r.sessions[session.SessionID] = &stored
	return nil
}

func (r *InMemorySessionRepository) GetSession(sessionID string) (*models.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	stored := *session
	return &stored, nil
}

func (r *InMemorySessionRepository) TouchSession(sessionID string, currentLevel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	session.CurrentLevel = currentLevel
	session.LastAccessed = touchTime()
	return nil
}

func (r *InMemorySessionRepository) SaveSubmission(submission *models.EmailSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission.ID = r.nextID
	r.nextID++
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = touchTime()
	}

	stored := *submission
	r.submissions = append(r.submissions, &stored)
	return nil
}

func (r *InMemorySessionRepository) SaveEvaluation(record *models.EvaluationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = touchTime()
	}
	stored := *record
	r.evaluations[record.SubmissionID] = &stored
	return nil
}

func (r *InMemorySessionRepository) GetSubmissions(sessionID string, level int) ([]*models.EmailSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.submissionsLocked(sessionID, level), nil
}

func (r *InMemorySessionRepository) GetTurns(sessionID string, level int) ([]*models.TurnRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submissions := r.submissionsLocked(sessionID, level)

	turns := make([]*models.TurnRecord, 0, len(submissions))
	for _, submission := range submissions {
		turn := &models.TurnRecord{
			TurnNumber:   submission.TurnNumber,
			EmailContent: submission.EmailContent,
			SubmittedAt:  submission.SubmittedAt,
		}
		if record, ok := r.evaluations[submission.ID]; ok {
			turn.RecipientReply = record.RecipientReply
			result := record.Result
			turn.Result = &result
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

func (r *InMemorySessionRepository) submissionsLocked(sessionID string, level int) []*models.EmailSubmission {
	matching := lo.Filter(r.submissions, func(s *models.EmailSubmission, _ int) bool {
		return s.SessionID == sessionID && s.Level == level
	})

	submissions := make([]*models.EmailSubmission, 0, len(matching))
	for _, submission := range matching {
		stored := *submission
		submissions = append(submissions, &stored)
	}

	sort.SliceStable(submissions, func(i, j int) bool {
		return submissions[i].TurnNumber < submissions[j].TurnNumber
	})

	return submissions
}

func (r *InMemorySessionRepository) MarkLevelComplete(sessionID string, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completions[sessionID] == nil {
		r.completions[sessionID] = make(map[int]time.Time)
	}
	// The first completion time sticks; replays do not reset it.
	if _, done := r.completions[sessionID][level]; !done {
		r.completions[sessionID][level] = touchTime()
	}
	return nil
}

func (r *InMemorySessionRepository) ClearCompletionsFrom(sessionID string, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for completed := range r.completions[sessionID] {
		if completed >= level {
			delete(r.completions[sessionID], completed)
		}
	}
	return nil
}

func (r *InMemorySessionRepository) GetCompletedLevels(sessionID string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	levels := lo.Keys(r.completions[sessionID])
	sort.Ints(levels)
	return levels, nil
}

func (r *InMemorySessionRepository) ListCompletedSessions(requiredLevels []int) ([]*models.SessionCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	completions := make([]*models.SessionCompletion, 0)
	for sessionID, completed := range r.completions {
		session, ok := r.sessions[sessionID]
		if !ok {
			continue
		}

		finished := true
		var completedAt time.Time
		for _, level := range requiredLevels {
			at, done := completed[level]
			if !done {
				finished = false
				break
			}
			if at.After(completedAt) {
				completedAt = at
			}
		}
		if !finished {
			continue
		}

		submissions := lo.CountBy(r.submissions, func(s *models.EmailSubmission) bool {
			return s.SessionID == sessionID
		})

		completions = append(completions, &models.SessionCompletion{
			SessionID:        sessionID,
			CreatedAt:        session.CreatedAt,
			CompletedAt:      completedAt,
			TotalSubmissions: submissions,
			LevelsCompleted:  len(completed),
		})
	}

	sort.SliceStable(completions, func(i, j int) bool {
		return completions[i].CompletedAt.Before(completions[j].CompletedAt)
	})

	return completions, nil
}
