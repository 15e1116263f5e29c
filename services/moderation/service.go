package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"emailgame/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
)

const STRATEGY_ANALYSIS_PROMPT = `Analyze the following email sent by a player in a salary negotiation exercise. The player must reach their goal without threatening layoffs and without offering a salary increase.

Email:
%s

Report your analysis using the report_strategy_analysis tool.`

const strategyToolName = "report_strategy_analysis"

type strategyToolInput struct {
	UsedLayoff         bool   `json:"used_layoff" jsonschema:"required,description=True if the email threatens or mentions layoffs or firing as leverage"`
	UsedSalaryIncrease bool   `json:"used_salary_increase" jsonschema:"required,description=True if the email offers a raise or salary increase or bonus as leverage"`
	Explanation        string `json:"explanation" jsonschema:"required,description=One or two sentences explaining the verdicts"`
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

// Service screens player emails for forbidden negotiation strategies using a
// single forced tool call. Enabled is false when no API key was configured.
type Service struct {
	client  *anthropic.Client
	model   anthropic.Model
	enabled bool
}

func NewService(apiKey string) *Service {
	if apiKey == "" {
		log.Printf("[INFO] Strategy moderation disabled: no Anthropic API key configured")
		return &Service{}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Service{
		client:  &client,
		model:   anthropic.ModelClaude4Sonnet20250514,
		enabled: true,
	}
}

func (s *Service) Enabled() bool {
	return s.enabled
}

// AnalyzeStrategies inspects an email for layoff threats and salary-increase
// offers. Any failure degrades to a permissive all-false analysis rather than
// blocking the player's progress.
func (s *Service) AnalyzeStrategies(ctx context.Context, email string) *models.StrategyAnalysis {
	analysis, err := s.analyze(ctx, email)
	if err != nil {
		log.Printf("[ERROR] Strategy analysis failed, allowing progression: %v", err)
		return &models.StrategyAnalysis{
			Explanation: "Strategy analysis unavailable; no forbidden strategies assumed.",
		}
	}
	return analysis
}

func (s *Service) analyze(ctx context.Context, email string) (*models.StrategyAnalysis, error) {
	if !s.enabled {
		return nil, fmt.Errorf("moderation service is disabled")
	}

	prompt := fmt.Sprintf(STRATEGY_ANALYSIS_PROMPT, email)

	response, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       s.model,
		MaxTokens:   1024,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        strategyToolName,
					Description: anthropic.String("Reports whether the email used forbidden negotiation strategies"),
					InputSchema: generateAnthropicSchema[strategyToolInput](),
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: strategyToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Anthropic API: %v", err)
	}

	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			if block.Name != strategyToolName {
				continue
			}
			inputJSON, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input: %v", err)
			}
			var input strategyToolInput
			if err := json.Unmarshal(inputJSON, &input); err != nil {
				return nil, fmt.Errorf("failed to parse strategy analysis: %v", err)
			}
			return &models.StrategyAnalysis{
				UsedLayoff:              input.UsedLayoff,
				UsedSalaryIncrease:      input.UsedSalaryIncrease,
				UsedForbiddenStrategies: input.UsedLayoff || input.UsedSalaryIncrease,
				Explanation:             input.Explanation,
			}, nil
		}
	}

	return nil, fmt.Errorf("model response contained no %s tool call", strategyToolName)
}
