package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"emailgame/models"
	"emailgame/services/grading"
)

const maxTurnsFinalReply = `Hi,

Thank you for reaching out multiple times. I appreciate your concern.

After thinking about it, I've decided that rather than continue to discuss this, I'll just adapt to the current situation and handle the issues I mentioned on my own.

I think this will resolve the concerns I raised, and I can continue focusing on my work as usual.

Thanks again for your time.

Best regards`

// StrategyAnalyzer screens an email for strategies the level forbids.
type StrategyAnalyzer interface {
	Enabled() bool
	AnalyzeStrategies(ctx context.Context, email string) *models.StrategyAnalysis
}

// GameService orchestrates one email submission end to end: scenario lookup,
// rubric resolution, recipient simulation, grading, strategy screening, and
// persistence.
type GameService struct {
	scenarios   *ScenarioService
	rubrics     *grading.RubricProvider
	evaluator   *grading.Evaluator
	recipient   *RecipientService
	moderator   StrategyAnalyzer
	sessions    *SessionService
	leaderboard *LeaderboardService
	maxTurns    int
}

func NewGameService(
	scenarios *ScenarioService,
	rubrics *grading.RubricProvider,
	evaluator *grading.Evaluator,
	recipient *RecipientService,
	moderator StrategyAnalyzer,
	sessions *SessionService,
	leaderboard *LeaderboardService,
	maxTurns int,
) *GameService {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &GameService{
		scenarios:   scenarios,
		rubrics:     rubrics,
		evaluator:   evaluator,
		recipient:   recipient,
		moderator:   moderator,
		sessions:    sessions,
		leaderboard: leaderboard,
		maxTurns:    maxTurns,
	}
}

// SubmitEmailRequest is one player email aimed at a level.
type SubmitEmailRequest struct {
	SessionID  string `json:"session_id"`
	Level      int    `json:"level"`
	PlayerName string `json:"player_name,omitempty"`
	EmailText  string `json:"email_text"`
}

// SubmitEmailResult is everything the player sees after a turn resolves.
type SubmitEmailResult struct {
	ScenarioID      string                   `json:"scenario_id"`
	Level           int                      `json:"level"`
	TurnNumber      int                      `json:"turn_number"`
	RecipientReply  string                   `json:"recipient_reply"`
	Replies         map[string]string        `json:"replies,omitempty"`
	Result          *models.GradingResult    `json:"result"`
	Strategy        *models.StrategyAnalysis `json:"strategy,omitempty"`
	LevelPassed     bool                     `json:"level_passed"`
	MaxTurnsReached bool                     `json:"max_turns_reached"`
	GameComplete    bool                     `json:"game_complete"`
}

func (g *GameService) SubmitEmail(ctx context.Context, req *SubmitEmailRequest) (*SubmitEmailResult, error) {
	if strings.TrimSpace(req.EmailText) == "" {
		return nil, fmt.Errorf("email text must not be empty")
	}

	if _, err := g.sessions.GetSession(req.SessionID); err != nil {
		return nil, err
	}

	scenario, err := g.scenarios.ScenarioForLevel(req.Level)
	if err != nil {
		return nil, err
	}

	rubric, err := g.rubrics.GetRubric(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rubric: %w", err)
	}

	turnNumber := 1
	var history []models.Message
	if MultiTurnLevels[req.Level] {
		turns, err := g.sessions.GetTurns(req.SessionID, req.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation history: %w", err)
		}
		turnNumber = len(turns) + 1
		history = conversationHistory(turns)
	}

	recipientReply, replies, err := g.generateReplies(ctx, scenario, req.EmailText, history)
	if err != nil {
		return nil, err
	}

	if scenario.GameMasterPrompt != "" {
		outcome, err := g.recipient.GenerateStoryOutcome(ctx, scenario.GameMasterPrompt, req.EmailText, recipientReply)
		if err != nil {
			log.Printf("[ERROR] Story outcome generation failed: %v", err)
		} else if outcome != "" {
			recipientReply = recipientReply + "\n\n---\n\nStory Outcome:\n" + outcome
		}
	}

	result, err := g.evaluator.Evaluate(ctx, scenario.PromptText, rubric, req.EmailText, recipientReply)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate email: %w", err)
	}

	levelPassed := result.Passed()

	var strategy *models.StrategyAnalysis
	if req.Level == ModeratedLevel && levelPassed && g.moderator != nil && g.moderator.Enabled() {
		strategy = g.moderator.AnalyzeStrategies(ctx, req.EmailText)
		if strategy.UsedForbiddenStrategies {
			log.Printf("[INFO] Forbidden strategy detected on level %d: %s", req.Level, strategy.Explanation)
			levelPassed = false
		}
	}

	maxTurnsReached := false
	if MultiTurnLevels[req.Level] && !levelPassed && turnNumber >= g.maxTurns {
		maxTurnsReached = true
		recipientReply = maxTurnsFinalReply
	}

	goalAchieved := levelPassed
	submission := &models.EmailSubmission{
		SessionID:    req.SessionID,
		Level:        req.Level,
		TurnNumber:   turnNumber,
		EmailContent: req.EmailText,
		GoalAchieved: &goalAchieved,
	}
	if err := g.sessions.repo.SaveSubmission(submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	record := &models.EvaluationRecord{
		SubmissionID:   submission.ID,
		Result:         *result,
		RecipientReply: recipientReply,
		RubricText:     rubric.Raw,
		Strategy:       strategy,
	}
	if err := g.sessions.repo.SaveEvaluation(record); err != nil {
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	levelOver := levelPassed || !MultiTurnLevels[req.Level] || maxTurnsReached
	if levelPassed {
		if err := g.sessions.HandleLevelSuccess(req.SessionID, req.Level); err != nil {
			return nil, err
		}
	} else if levelOver {
		if err := g.sessions.HandleLevelFailure(req.SessionID, req.Level); err != nil {
			return nil, err
		}
	}

	if _, err := g.leaderboard.RecordAttempt(req.PlayerName, scenario.ID, req.EmailText, *result); err != nil {
		log.Printf("[ERROR] Failed to record leaderboard attempt: %v", err)
	}

	gameComplete := false
	if levelPassed && req.Level == MaxAvailableLevel() {
		progress, err := g.sessions.GetProgress(req.SessionID)
		if err == nil {
			gameComplete = progress.GameComplete
		}
	}

	return &SubmitEmailResult{
		ScenarioID:      scenario.ID,
		Level:           req.Level,
		TurnNumber:      turnNumber,
		RecipientReply:  recipientReply,
		Replies:         replies,
		Result:          result,
		Strategy:        strategy,
		LevelPassed:     levelPassed,
		MaxTurnsReached: maxTurnsReached,
		GameComplete:    gameComplete,
	}, nil
}

// generateReplies runs the recipient simulation, fanning out over named
// personas for multi-recipient scenarios. The returned string is the combined
// reply fed to the evaluator.
func (g *GameService) generateReplies(ctx context.Context, scenario *models.Scenario, email string, history []models.Message) (string, map[string]string, error) {
	if !scenario.MultiRecipient() {
		result, err := g.recipient.ReplyWithMajority(ctx, scenario.Personas[""], email, history)
		if err != nil {
			return "", nil, err
		}
		log.Printf("[INFO] Recipient reply selected (majority %s over %d samples)",
			result.MajorityOutcome, result.SampleCount)
		return result.Turn.Reply, nil, nil
	}

	names := make([]string, 0, len(scenario.Personas))
	for name := range scenario.Personas {
		names = append(names, name)
	}
	sort.Strings(names)

	replies := make(map[string]string, len(names))
	var combined []string
	for _, name := range names {
		result, err := g.recipient.ReplyWithMajority(ctx, scenario.Personas[name], email, history)
		if err != nil {
			return "", nil, fmt.Errorf("failed to generate %s's reply: %w", name, err)
		}
		replies[name] = result.Turn.Reply
		combined = append(combined, fmt.Sprintf("%s's Reply:\n%s", titleCase(name), result.Turn.Reply))
	}

	return strings.Join(combined, "\n\n---\n\n"), replies, nil
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func conversationHistory(turns []*models.TurnRecord) []models.Message {
	var history []models.Message
	for _, turn := range turns {
		history = append(history, models.Message{Role: models.RolePlayer, Content: turn.EmailContent})
		if turn.RecipientReply != "" {
			history = append(history, models.Message{Role: models.RoleRecipient, Content: turn.RecipientReply})
		}
	}
	return history
}
