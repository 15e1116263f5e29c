package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"emailgame/models"
	"emailgame/services/textgen"
)

const REPLY_PROMPT = `%s

You just received this email:
%s

Please write a reply email as this character. Write only the email content. After the email, you may add a private aside starting with the line "[What I really think]" describing your honest reaction; this aside is never shown to the sender.`

const REPLY_WITH_HISTORY_PROMPT = `%s

This is the conversation so far:
%s

You just received this email:
%s

Please write a reply email as this character, consistent with the conversation so far. Write only the email content. After the email, you may add a private aside starting with the line "[What I really think]" describing your honest reaction; this aside is never shown to the sender.`

const OUTCOME_CLASSIFICATION_PROMPT = `You are judging the outcome of an email exchange.

The sender's email:
%s

The recipient's reply:
%s

Did the recipient's reply agree to, or substantially grant, what the sender asked for? Answer with exactly one word: PASS if it did, FAIL if it did not.`

const STORY_OUTCOME_PROMPT = `%s

The player sent this email:
%s

The recipient replied:
%s

Based on the instructions above, narrate what happens next in the story. Write only the narration.`

const (
	// CommentaryMarker separates the visible reply from the recipient's
	// private commentary in raw model output.
	CommentaryMarker = "[What I really think]"

	replyTemperature          = 0.7
	classificationTemperature = 0.0

	bypassToken = "##BYPASS##"

	bypassReply = "Thank you for your email. I completely agree with everything you proposed, and I'm happy to move forward exactly as you suggested."

	OutcomePass = "PASS"
	OutcomeFail = "FAIL"
)

// RecipientService simulates the email recipient: it generates in-character
// replies, samples several candidate replies concurrently and picks one from
// the majority outcome class, and narrates game-master story outcomes.
type RecipientService struct {
	generator   textgen.Generator
	samples     int
	allowBypass bool
}

func NewRecipientService(generator textgen.Generator, samples int, allowBypass bool) *RecipientService {
	if samples < 1 {
		samples = 1
	}
	return &RecipientService{
		generator:   generator,
		samples:     samples,
		allowBypass: allowBypass,
	}
}

// ReplyResult carries the selected reply together with the sampling evidence
// that produced it.
type ReplyResult struct {
	Turn            models.RecipientTurn `json:"turn"`
	MajorityOutcome string               `json:"majority_outcome"`
	OutcomeCounts   map[string]int       `json:"outcome_counts"`
	SampleCount     int                  `json:"sample_count"`
}

// Reply generates a single in-character reply to the player's email.
// History, when non-empty, is the prior conversation in order.
func (s *RecipientService) Reply(ctx context.Context, persona, email string, history []models.Message) (models.RecipientTurn, error) {
	if turn, ok := s.bypassTurn(email); ok {
		return turn, nil
	}

	prompt := buildReplyPrompt(persona, email, history)
	raw, err := s.generator.Generate(ctx, prompt, replyTemperature)
	if err != nil {
		return models.RecipientTurn{}, fmt.Errorf("failed to generate recipient reply: %w", err)
	}

	return splitCommentary(raw), nil
}

// ReplyWithMajority samples several replies concurrently, classifies each as
// PASS or FAIL, and returns a reply drawn from the majority class. Individual
// sample failures are tolerated as long as at least one sample succeeds.
func (s *RecipientService) ReplyWithMajority(ctx context.Context, persona, email string, history []models.Message) (*ReplyResult, error) {
	if turn, ok := s.bypassTurn(email); ok {
		return &ReplyResult{
			Turn:            turn,
			MajorityOutcome: OutcomePass,
			OutcomeCounts:   map[string]int{OutcomePass: 1},
			SampleCount:     1,
		}, nil
	}

	prompt := buildReplyPrompt(persona, email, history)

	type sample struct {
		turn    models.RecipientTurn
		outcome string
	}

	results := make([]*sample, s.samples)
	var wg sync.WaitGroup
	for i := 0; i < s.samples; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := s.generator.Generate(ctx, prompt, replyTemperature)
			if err != nil {
				log.Printf("[ERROR] Reply sample %d failed: %v", i, err)
				return
			}
			turn := splitCommentary(raw)
			results[i] = &sample{
				turn:    turn,
				outcome: s.classifyOutcome(ctx, email, turn.Reply),
			}
		}(i)
	}
	wg.Wait()

	counts := make(map[string]int)
	var succeeded []*sample
	for _, r := range results {
		if r == nil {
			continue
		}
		succeeded = append(succeeded, r)
		counts[r.outcome]++
	}
	if len(succeeded) == 0 {
		return nil, fmt.Errorf("failed to generate recipient reply: all %d samples failed", s.samples)
	}

	majority := majorityOutcome(counts)
	for _, r := range succeeded {
		if r.outcome == majority {
			return &ReplyResult{
				Turn:            r.turn,
				MajorityOutcome: majority,
				OutcomeCounts:   counts,
				SampleCount:     len(succeeded),
			}, nil
		}
	}

	// Unreachable: the majority class always has at least one member.
	return &ReplyResult{
		Turn:            succeeded[0].turn,
		MajorityOutcome: majority,
		OutcomeCounts:   counts,
		SampleCount:     len(succeeded),
	}, nil
}

// GenerateStoryOutcome asks the game master to narrate what happens after the
// exchange. An empty game-master prompt yields an empty outcome.
func (s *RecipientService) GenerateStoryOutcome(ctx context.Context, gameMasterPrompt, email, reply string) (string, error) {
	if strings.TrimSpace(gameMasterPrompt) == "" {
		return "", nil
	}
	prompt := fmt.Sprintf(STORY_OUTCOME_PROMPT, gameMasterPrompt, email, reply)
	outcome, err := s.generator.Generate(ctx, prompt, replyTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate story outcome: %w", err)
	}
	return outcome, nil
}

// classifyOutcome labels a single reply sample PASS or FAIL. Classification
// errors count as FAIL so a flaky call never inflates the majority.
func (s *RecipientService) classifyOutcome(ctx context.Context, email, reply string) string {
	prompt := fmt.Sprintf(OUTCOME_CLASSIFICATION_PROMPT, email, reply)
	verdict, err := s.generator.Generate(ctx, prompt, classificationTemperature)
	if err != nil {
		log.Printf("[ERROR] Outcome classification failed: %v", err)
		return OutcomeFail
	}
	if strings.EqualFold(strings.TrimSpace(verdict), OutcomePass) {
		return OutcomePass
	}
	return OutcomeFail
}

func (s *RecipientService) bypassTurn(email string) (models.RecipientTurn, bool) {
	if !s.allowBypass || !strings.Contains(email, bypassToken) {
		return models.RecipientTurn{}, false
	}
	log.Printf("[INFO] Test bypass token detected, returning canned reply")
	return models.RecipientTurn{Reply: bypassReply}, true
}

func buildReplyPrompt(persona, email string, history []models.Message) string {
	if persona == "" {
		persona = DefaultPersona
	}
	if len(history) == 0 {
		return fmt.Sprintf(REPLY_PROMPT, persona, email)
	}

	var transcript strings.Builder
	for _, msg := range history {
		label := "Them"
		if msg.Role == models.RolePlayer {
			label = "Sender"
		} else if msg.Role == models.RoleRecipient {
			label = "You"
		}
		fmt.Fprintf(&transcript, "%s:\n%s\n\n", label, msg.Content)
	}
	return fmt.Sprintf(REPLY_WITH_HISTORY_PROMPT, persona, strings.TrimSpace(transcript.String()), email)
}

// splitCommentary separates the visible reply from the private aside. A
// missing marker means the whole text is the reply.
func splitCommentary(raw string) models.RecipientTurn {
	reply, commentary, found := strings.Cut(raw, CommentaryMarker)
	turn := models.RecipientTurn{Reply: strings.TrimSpace(reply)}
	if found {
		turn.Commentary = strings.TrimSpace(commentary)
	}
	return turn
}

func majorityOutcome(counts map[string]int) string {
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	// Deterministic tie-break: FAIL sorts before PASS, so ties fail closed.
	sort.Strings(outcomes)
	best := ""
	bestCount := -1
	for _, outcome := range outcomes {
		if counts[outcome] > bestCount {
			best = outcome
			bestCount = counts[outcome]
		}
	}
	return best
}
