package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"emailgame/db"
	"emailgame/models"
	"emailgame/services/grading"
)

const passingEvaluation = `Professional tone: 2/2
Achieves the goal: 10/10
Total: 12/12
Goal achieved: Yes`

const failingEvaluation = `Professional tone: 1/2
Achieves the goal: 0/10
Total: 1/12
Goal achieved: No`

// gameGenerator routes prompts to canned responses per concern.
type gameGenerator struct {
	mu         sync.Mutex
	reply      string
	evaluation string
	outcome    string
	storyText  string
	evalCalls  int
	replyCalls int
}

func (g *gameGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case strings.Contains(prompt, "judging the outcome"):
		if g.outcome != "" {
			return g.outcome, nil
		}
		return OutcomePass, nil
	case strings.Contains(prompt, "write a reply email as this character"):
		g.replyCalls++
		return g.reply, nil
	case strings.Contains(prompt, "narrate what happens next"):
		return g.storyText, nil
	default:
		g.evalCalls++
		return g.evaluation, nil
	}
}

type fakeModerator struct {
	analysis *models.StrategyAnalysis
	calls    int
}

func (m *fakeModerator) Enabled() bool { return true }

func (m *fakeModerator) AnalyzeStrategies(ctx context.Context, email string) *models.StrategyAnalysis {
	m.calls++
	return m.analysis
}

type gameFixture struct {
	game        *GameService
	sessions    *SessionService
	leaderboard *LeaderboardService
	moderator   *fakeModerator
	sessionID   string
}

func newGameFixture(t *testing.T, generator *gameGenerator, maxTurns int) *gameFixture {
	t.Helper()

	promptsDir := t.TempDir()
	writeScenarioFile(t, promptsDir, "scenarios", "scenario_3.txt", "Coordinate a trip.")
	writeScenarioFile(t, promptsDir, "scenarios", "scenario_4.txt", "Two feuding engineers.")
	writeScenarioFile(t, promptsDir, "recipients", "scenario_4_emily.txt", "You are Emily.")
	writeScenarioFile(t, promptsDir, "recipients", "scenario_4_mark.txt", "You are Mark.")
	writeScenarioFile(t, promptsDir, "scenarios", "scenario_2.txt", "Retain Sarah.")
	writeScenarioFile(t, promptsDir, "scenarios", "scenario_5.4.txt", "Help Adam.")

	rubricsDir := t.TempDir()
	rubric := "Professional tone /2\nAchieves the goal /10"
	for _, key := range []string{"2", "3", "4", "5.4"} {
		writeScenarioFile(t, rubricsDir, ".", "scenario_"+key+".txt", rubric)
	}

	moderator := &fakeModerator{analysis: &models.StrategyAnalysis{}}
	sessions := NewSessionService(db.NewInMemorySessionRepository())
	leaderboard := NewLeaderboardService(db.NewInMemoryAttemptRepository())

	game := NewGameService(
		NewScenarioService(promptsDir),
		grading.NewRubricProvider(generator, rubricsDir),
		grading.NewEvaluator(generator),
		NewRecipientService(generator, 1, false),
		moderator,
		sessions,
		leaderboard,
		maxTurns,
	)

	session, err := sessions.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	return &gameFixture{
		game:        game,
		sessions:    sessions,
		leaderboard: leaderboard,
		moderator:   moderator,
		sessionID:   session.SessionID,
	}
}

func TestSubmitEmailPass(t *testing.T) {
	generator := &gameGenerator{reply: "Sounds good, count me in!", evaluation: passingEvaluation}
	f := newGameFixture(t, generator, 5)

	result, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID:  f.sessionID,
		Level:      1,
		PlayerName: "alice",
		EmailText:  "Hi all, here is the plan...",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() unexpected error: %v", err)
	}

	if !result.LevelPassed {
		t.Error("expected level to pass")
	}
	if result.ScenarioID != "3" {
		t.Errorf("expected scenario 3, got %q", result.ScenarioID)
	}
	if result.RecipientReply != "Sounds good, count me in!" {
		t.Errorf("unexpected recipient reply %q", result.RecipientReply)
	}
	if result.Result.TotalScore != 12 {
		t.Errorf("expected score 12, got %d", result.Result.TotalScore)
	}

	progress, err := f.sessions.GetProgress(f.sessionID)
	if err != nil {
		t.Fatalf("GetProgress() unexpected error: %v", err)
	}
	if len(progress.CompletedLevels) != 1 || progress.CompletedLevels[0] != 1 {
		t.Errorf("expected level 1 completed, got %v", progress.CompletedLevels)
	}
	if progress.Session.CurrentLevel != 2 {
		t.Errorf("expected session advanced to level 2, got %d", progress.Session.CurrentLevel)
	}

	entries, err := f.leaderboard.GetLeaderboard("3", 0)
	if err != nil {
		t.Fatalf("GetLeaderboard() unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerName != "alice" {
		t.Errorf("expected one leaderboard entry for alice, got %v", entries)
	}
}

func TestSubmitEmailValidation(t *testing.T) {
	generator := &gameGenerator{reply: "ok", evaluation: passingEvaluation}
	f := newGameFixture(t, generator, 5)

	if _, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     1,
		EmailText: "   ",
	}); err == nil {
		t.Error("expected error for blank email")
	}

	if _, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: "no-such-session",
		Level:     1,
		EmailText: "hello",
	}); err == nil {
		t.Error("expected error for unknown session")
	}

	if _, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     42,
		EmailText: "hello",
	}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSubmitEmailMultiRecipient(t *testing.T) {
	generator := &gameGenerator{reply: "Fine, I'll do the demo.", evaluation: passingEvaluation}
	f := newGameFixture(t, generator, 5)

	result, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     2,
		EmailText: "Emily, Mark, let's talk.",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() unexpected error: %v", err)
	}

	if len(result.Replies) != 2 {
		t.Fatalf("expected replies from 2 recipients, got %d", len(result.Replies))
	}
	for _, name := range []string{"emily", "mark"} {
		if _, ok := result.Replies[name]; !ok {
			t.Errorf("missing reply from %s", name)
		}
	}
	if !strings.Contains(result.RecipientReply, "Emily's Reply:") || !strings.Contains(result.RecipientReply, "Mark's Reply:") {
		t.Errorf("combined reply missing recipient sections: %q", result.RecipientReply)
	}
}

func TestSubmitEmailForbiddenStrategyBlocksModeratedLevel(t *testing.T) {
	generator := &gameGenerator{reply: "Okay, I'll stay.", evaluation: passingEvaluation}
	f := newGameFixture(t, generator, 5)
	f.moderator.analysis = &models.StrategyAnalysis{
		UsedSalaryIncrease:      true,
		UsedForbiddenStrategies: true,
		Explanation:             "The email offers a raise.",
	}

	result, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     ModeratedLevel,
		EmailText: "Stay and I'll double your salary.",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() unexpected error: %v", err)
	}

	if result.LevelPassed {
		t.Error("forbidden strategy must block progression even when the goal is achieved")
	}
	if result.Strategy == nil || !result.Strategy.UsedForbiddenStrategies {
		t.Errorf("expected strategy analysis on the result, got %v", result.Strategy)
	}
	if f.moderator.calls != 1 {
		t.Errorf("expected 1 moderation call, got %d", f.moderator.calls)
	}
}

func TestSubmitEmailModerationSkippedWhenGoalNotAchieved(t *testing.T) {
	generator := &gameGenerator{reply: "No thanks.", evaluation: failingEvaluation}
	f := newGameFixture(t, generator, 5)

	result, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     ModeratedLevel,
		EmailText: "Please stay.",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() unexpected error: %v", err)
	}

	if result.LevelPassed {
		t.Error("failed goal must not pass the level")
	}
	if f.moderator.calls != 0 {
		t.Errorf("moderation must not run on failed attempts, got %d calls", f.moderator.calls)
	}
}

func TestSubmitEmailMultiTurn(t *testing.T) {
	generator := &gameGenerator{reply: "It's fine, really.", evaluation: failingEvaluation, outcome: OutcomeFail}
	f := newGameFixture(t, generator, 2)

	first, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     4,
		EmailText: "Hey Adam, everything okay?",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() turn 1 unexpected error: %v", err)
	}

	if first.TurnNumber != 1 {
		t.Errorf("expected turn 1, got %d", first.TurnNumber)
	}
	if first.LevelPassed || first.MaxTurnsReached {
		t.Error("turn 1 of 2 must neither pass nor exhaust the turn limit")
	}

	second, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     4,
		EmailText: "Adam, really, talk to me.",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() turn 2 unexpected error: %v", err)
	}

	if second.TurnNumber != 2 {
		t.Errorf("expected turn 2, got %d", second.TurnNumber)
	}
	if !second.MaxTurnsReached {
		t.Error("expected the turn limit to be reached")
	}
	if second.LevelPassed {
		t.Error("exhausting the turns without the goal must fail the level")
	}
	if !strings.Contains(second.RecipientReply, "adapt to the current situation") {
		t.Errorf("expected the canned final reply, got %q", second.RecipientReply)
	}

	turns, err := f.sessions.GetTurns(f.sessionID, 4)
	if err != nil {
		t.Fatalf("GetTurns() unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Errorf("expected 2 persisted turns, got %d", len(turns))
	}
}

func TestSubmitEmailMultiTurnSuccessBeforeLimit(t *testing.T) {
	generator := &gameGenerator{reply: "You're right, I'll email facilities today.", evaluation: passingEvaluation}
	f := newGameFixture(t, generator, 2)

	result, err := f.game.SubmitEmail(context.Background(), &SubmitEmailRequest{
		SessionID: f.sessionID,
		Level:     4,
		EmailText: "Adam, I noticed the desk situation. Want me to handle facilities?",
	})
	if err != nil {
		t.Fatalf("SubmitEmail() unexpected error: %v", err)
	}

	if !result.LevelPassed {
		t.Error("goal achieved on turn 1 must pass the level")
	}
	if result.MaxTurnsReached {
		t.Error("turn limit must not trigger on a passing turn")
	}
}
