package grading

import (
	"context"
	"fmt"
	"log"

	"emailgame/models"
	"emailgame/services/textgen"
)

// Evaluator grades one email against a rubric through a single low-temperature
// generation call. A malformed grader response degrades the result (zeroed
// criteria, warnings) rather than failing the attempt; only transport errors
// surface as errors.
type Evaluator struct {
	generator textgen.Generator
}

func NewEvaluator(generator textgen.Generator) *Evaluator {
	return &Evaluator{generator: generator}
}

func (e *Evaluator) Evaluate(ctx context.Context, scenarioText string, rubric *models.Rubric, emailText, recipientReply string) (*models.GradingResult, error) {
	if rubric == nil || len(rubric.Criteria) == 0 {
		return nil, fmt.Errorf("a non-empty rubric is required for evaluation")
	}

	prompt := fmt.Sprintf(EVALUATION_TEMPLATE, scenarioText, rubric.Raw, emailText, recipientReply)

	log.Printf("[INFO] Calling LLM for email evaluation (%d criteria)", len(rubric.Criteria))
	response, err := e.generator.Generate(ctx, prompt, evaluationTemperature)
	if err != nil {
		log.Printf("[ERROR] Failed to generate evaluation: %v", err)
		return nil, fmt.Errorf("failed to generate evaluation: %w", err)
	}

	result := ParseGradingResponse(rubric, response)
	for _, warning := range result.Warnings {
		log.Printf("[ERROR] Evaluation parse warning: %s", warning)
	}

	log.Printf("[INFO] Evaluation complete: %d/%d points, goal %s",
		result.TotalScore, result.TotalPossible, result.GoalVerdict)
	return result, nil
}
