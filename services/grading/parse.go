package grading

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"emailgame/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	// "<description> /<points>" with optional bullet or numbering in front.
	criterionLineRe = regexp.MustCompile(`^(?:[-*•]\s*)?(?:\d+[.)]\s*)?(.*\S)\s*/\s*(\d+)\s*$`)

	// "<description>: <awarded>/<max>" as emitted by the grader.
	scoreLineRe = regexp.MustCompile(`^(?:[-*•]\s*)?(?:\d+[.)]\s*)?(.*?)[:\-]?\s*(\d+)\s*/\s*(\d+)\s*$`)

	goalLineRe = regexp.MustCompile(`(?i)^goal achieved\s*[:\-]?\s*(\S+)`)
)

// ParseRubric turns free-form rubric text into a structured Rubric. The
// upstream generator is treated as unreliable: unrecognized lines are skipped,
// the "Total" line is never trusted, and anomalies come back as warnings
// instead of errors. An empty criteria list is the only fatal outcome.
func ParseRubric(text string) (*models.Rubric, []string, error) {
	rubric := &models.Rubric{Raw: strings.TrimSpace(text)}
	var warnings []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripEmphasis(line))
		if line == "" {
			continue
		}

		if goalMatch := goalLineRe.FindStringSubmatch(line); goalMatch != nil {
			if _, ok := parseYesNo(goalMatch[1]); !ok {
				warnings = append(warnings, fmt.Sprintf("ambiguous goal line in rubric: %q", line))
				continue
			}
			rubric.GoalStatement = line
			rubric.GoalSpecified = true
			continue
		}

		if isTotalLine(line) {
			// Recomputed below; the model's arithmetic is not trusted.
			continue
		}

		if match := criterionLineRe.FindStringSubmatch(line); match != nil {
			points, err := strconv.Atoi(match[2])
			if err != nil || points < 0 {
				warnings = append(warnings, fmt.Sprintf("invalid point value in rubric line: %q", line))
				continue
			}
			rubric.Criteria = append(rubric.Criteria, models.Criterion{
				Description: strings.TrimSpace(strings.TrimSuffix(match[1], ":")),
				MaxPoints:   points,
			})
		}
		// Anything else is rubric prose; ignored.
	}

	if len(rubric.Criteria) == 0 {
		return nil, warnings, fmt.Errorf("no criteria found in rubric text")
	}

	rubric.RecomputeTotal()
	return rubric, warnings, nil
}

// ParseGradingResponse matches grader output line-by-line against the rubric's
// criteria, by order and description text. A criterion with no usable score
// line defaults to 0 awarded points plus a recorded warning; totals are always
// recomputed by summation.
func ParseGradingResponse(rubric *models.Rubric, text string) *models.GradingResult {
	awarded := make([]int, len(rubric.Criteria))
	matched := make([]bool, len(rubric.Criteria))
	var warnings []string

	verdict := models.GoalUnspecified
	goalSeen := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripEmphasis(line))
		if line == "" {
			continue
		}

		if goalMatch := goalLineRe.FindStringSubmatch(line); goalMatch != nil {
			parsed, ok := parseYesNo(goalMatch[1])
			if !ok {
				warnings = append(warnings, fmt.Sprintf("ambiguous goal line: %q", line))
				continue
			}
			verdict = parsed
			goalSeen = true
			continue
		}

		if isTotalLine(line) {
			continue
		}

		match := scoreLineRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		points, err := strconv.Atoi(match[2])
		max, maxErr := strconv.Atoi(match[3])
		if err != nil || maxErr != nil {
			warnings = append(warnings, fmt.Sprintf("unparseable score line: %q", line))
			continue
		}

		idx := matchCriterion(rubric.Criteria, matched, match[1], max)
		if idx < 0 {
			warnings = append(warnings, fmt.Sprintf("score line matches no rubric criterion: %q", line))
			continue
		}

		if points > rubric.Criteria[idx].MaxPoints {
			warnings = append(warnings, fmt.Sprintf("awarded %d exceeds maximum %d for %q; clamped",
				points, rubric.Criteria[idx].MaxPoints, rubric.Criteria[idx].Description))
			points = rubric.Criteria[idx].MaxPoints
		}
		if points < 0 {
			warnings = append(warnings, fmt.Sprintf("negative award for %q; clamped to 0", rubric.Criteria[idx].Description))
			points = 0
		}

		awarded[idx] = points
		matched[idx] = true
	}

	for i, criterion := range rubric.Criteria {
		if !matched[i] {
			warnings = append(warnings, fmt.Sprintf("no score line found for criterion %q; defaulting to 0 points", criterion.Description))
		}
	}

	if !goalSeen {
		// The original grader convention lets the verdict be the final word
		// of the whole evaluation.
		if parsed, ok := finalWordVerdict(text); ok {
			verdict = parsed
		} else {
			warnings = append(warnings, "no goal achievement line found in grader response")
		}
	}

	result := &models.GradingResult{
		GoalVerdict: verdict,
		Rationale:   strings.TrimSpace(text),
		Warnings:    warnings,
	}
	for i, criterion := range rubric.Criteria {
		result.CriterionScores = append(result.CriterionScores, models.CriterionScore{
			Criterion: criterion,
			Awarded:   awarded[i],
		})
		result.TotalScore += awarded[i]
		result.TotalPossible += criterion.MaxPoints
	}

	if len(warnings) > 0 {
		result.Rationale += "\n\nParse warnings:\n- " + strings.Join(warnings, "\n- ")
	}

	return result
}

// matchCriterion finds the rubric criterion a score line belongs to: first by
// description text against unmatched criteria, then by order when the stated
// maximum agrees.
func matchCriterion(criteria []models.Criterion, matched []bool, description string, max int) int {
	normalized := normalizeDescription(description)

	for i, criterion := range criteria {
		if matched[i] {
			continue
		}
		candidate := normalizeDescription(criterion.Description)
		if normalized == candidate ||
			strings.Contains(normalized, candidate) ||
			strings.Contains(candidate, normalized) ||
			fuzzy.MatchNormalizedFold(normalized, candidate) {
			return i
		}
	}

	for i, criterion := range criteria {
		if !matched[i] && criterion.MaxPoints == max {
			return i
		}
	}

	return -1
}

func normalizeDescription(description string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(description), ".,:;-"))
}

func isTotalLine(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "total")
}

func stripEmphasis(line string) string {
	return strings.NewReplacer("**", "", "__", "", "##", "").Replace(line)
}

func parseYesNo(word string) (models.GoalVerdict, bool) {
	switch strings.ToLower(strings.Trim(word, ".,!?;:")) {
	case "yes":
		return models.GoalAchieved, true
	case "no":
		return models.GoalNotAchieved, true
	default:
		return models.GoalUnspecified, false
	}
}

func finalWordVerdict(text string) (models.GoalVerdict, bool) {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return models.GoalUnspecified, false
	}
	return parseYesNo(words[len(words)-1])
}
