package grading

import (
	"context"
	"errors"
	"testing"

	"emailgame/models"
)

func TestEvaluate(t *testing.T) {
	rubric, _, err := ParseRubric("Professional tone /2\nAchieves the goal /10")
	if err != nil {
		t.Fatalf("failed to build rubric: %v", err)
	}

	tests := []struct {
		name            string
		response        string
		generateErr     error
		expectError     bool
		expectedScore   int
		expectedVerdict models.GoalVerdict
	}{
		{
			name:            "successful evaluation",
			response:        "Professional tone: 2/2\nAchieves the goal: 10/10\nTotal: 12/12\nGoal achieved: Yes",
			expectedScore:   12,
			expectedVerdict: models.GoalAchieved,
		},
		{
			name:            "failed goal",
			response:        "Professional tone: 1/2\nAchieves the goal: 0/10\nGoal achieved: No",
			expectedScore:   1,
			expectedVerdict: models.GoalNotAchieved,
		},
		{
			name:            "garbage response degrades instead of failing",
			response:        "I am unable to grade this email.",
			expectedScore:   0,
			expectedVerdict: models.GoalUnspecified,
		},
		{
			name:        "transport error surfaces",
			generateErr: errors.New("connection refused"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator := NewEvaluator(&fakeGenerator{response: tt.response, err: tt.generateErr})

			result, err := evaluator.Evaluate(context.Background(), "scenario", rubric, "email", "reply")
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got result")
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() unexpected error: %v", err)
			}

			if result.TotalScore != tt.expectedScore {
				t.Errorf("expected score %d, got %d", tt.expectedScore, result.TotalScore)
			}
			if result.GoalVerdict != tt.expectedVerdict {
				t.Errorf("expected verdict %q, got %q", tt.expectedVerdict, result.GoalVerdict)
			}
		})
	}
}

func TestEvaluateRequiresRubric(t *testing.T) {
	evaluator := NewEvaluator(&fakeGenerator{response: "Goal achieved: Yes"})

	if _, err := evaluator.Evaluate(context.Background(), "scenario", nil, "email", "reply"); err == nil {
		t.Error("expected error for nil rubric")
	}

	empty := &models.Rubric{}
	if _, err := evaluator.Evaluate(context.Background(), "scenario", empty, "email", "reply"); err == nil {
		t.Error("expected error for empty rubric")
	}
}
