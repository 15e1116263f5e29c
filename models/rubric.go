package models

// Criterion is a single weighted line item of a grading rubric.
type Criterion struct {
	Description string `json:"description"`
	MaxPoints   int    `json:"max_points"`
}

// Rubric holds the weighted criteria an email is graded against, plus the
// scenario's goal statement. TotalPossible is always recomputed from the
// criteria, never taken from upstream text.
type Rubric struct {
	Criteria      []Criterion `json:"criteria"`
	TotalPossible int         `json:"total_possible"`
	GoalStatement string      `json:"goal_statement,omitempty"`
	GoalSpecified bool        `json:"goal_specified"`
	Raw           string      `json:"raw"`
}

// RecomputeTotal restores the total-possible invariant after any mutation of
// the criteria list.
func (r *Rubric) RecomputeTotal() {
	total := 0
	for _, c := range r.Criteria {
		total += c.MaxPoints
	}
	r.TotalPossible = total
}

type GoalVerdict string

const (
	GoalAchieved    GoalVerdict = "achieved"
	GoalNotAchieved GoalVerdict = "not_achieved"
	// GoalUnspecified means the grader response carried no usable goal line.
	// Callers must surface it rather than treat it as a pass or a fail.
	GoalUnspecified GoalVerdict = "unspecified"
)

type CriterionScore struct {
	Criterion Criterion `json:"criterion"`
	Awarded   int       `json:"awarded"`
}

// GradingResult is the structured outcome of grading one email against a
// rubric. Totals are recomputed by summation; every degraded parse path leaves
// a trace in Warnings.
type GradingResult struct {
	CriterionScores []CriterionScore `json:"criterion_scores"`
	TotalScore      int              `json:"total_score"`
	TotalPossible   int              `json:"total_possible"`
	GoalVerdict     GoalVerdict      `json:"goal_verdict"`
	Rationale       string           `json:"rationale"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// Passed fails closed: only an explicit achieved verdict counts as success.
func (g *GradingResult) Passed() bool {
	return g.GoalVerdict == GoalAchieved
}
