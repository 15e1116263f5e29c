package grading

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"emailgame/models"
	"emailgame/services/textgen"
)

// RubricProvider resolves the rubric for a scenario: session cache first, then
// a pre-authored rubric file, then synthesis through the text generator. The
// cache is injected state so each game session (and each test) can run with a
// fresh one.
type RubricProvider struct {
	generator  textgen.Generator
	rubricsDir string

	mu    sync.Mutex
	cache map[string]*models.Rubric
}

func NewRubricProvider(generator textgen.Generator, rubricsDir string) *RubricProvider {
	return &RubricProvider{
		generator:  generator,
		rubricsDir: rubricsDir,
		cache:      make(map[string]*models.Rubric),
	}
}

func (p *RubricProvider) GetRubric(ctx context.Context, scenario *models.Scenario) (*models.Rubric, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.cache[scenario.ID]; ok {
		return cached, nil
	}

	rubric, err := p.loadRubricFile(scenario.ID)
	if err != nil {
		return nil, err
	}
	if rubric != nil {
		log.Printf("[INFO] Loaded pre-authored rubric for scenario %s (%d criteria)", scenario.ID, len(rubric.Criteria))
		p.cache[scenario.ID] = rubric
		return rubric, nil
	}

	rubric, err = p.synthesizeRubric(ctx, scenario)
	if err != nil {
		// A failed synthesis must not poison the cache.
		return nil, err
	}

	p.cache[scenario.ID] = rubric
	p.saveRubricFile(scenario.ID, rubric.Raw)
	return rubric, nil
}

// loadRubricFile returns nil without error when no rubric is pre-authored for
// the scenario; absence falls back to synthesis.
func (p *RubricProvider) loadRubricFile(scenarioID string) (*models.Rubric, error) {
	if p.rubricsDir == "" {
		return nil, nil
	}

	path := filepath.Join(p.rubricsDir, "scenario_"+scenarioID+".txt")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric file %s: %w", path, err)
	}

	rubric, warnings, err := ParseRubric(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pre-authored rubric %s: %w", path, err)
	}
	for _, warning := range warnings {
		log.Printf("[ERROR] Rubric file %s: %s", path, warning)
	}

	return rubric, nil
}

func (p *RubricProvider) synthesizeRubric(ctx context.Context, scenario *models.Scenario) (*models.Rubric, error) {
	log.Printf("[INFO] Synthesizing rubric for scenario %s", scenario.ID)

	response, err := p.generator.Generate(ctx, fmt.Sprintf(RUBRIC_TEMPLATE, scenario.PromptText), rubricTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rubric: %w", err)
	}

	rubric, warnings, err := ParseRubric(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated rubric: %w", err)
	}
	for _, warning := range warnings {
		log.Printf("[ERROR] Generated rubric for scenario %s: %s", scenario.ID, warning)
	}

	log.Printf("[INFO] Synthesized rubric for scenario %s: %d criteria, %d points total",
		scenario.ID, len(rubric.Criteria), rubric.TotalPossible)
	return rubric, nil
}

// saveRubricFile persists a synthesized rubric so later sessions skip the
// generation cost. Best effort only.
func (p *RubricProvider) saveRubricFile(scenarioID, raw string) {
	if p.rubricsDir == "" {
		return
	}

	if err := os.MkdirAll(p.rubricsDir, 0o755); err != nil {
		log.Printf("[ERROR] Failed to create rubrics directory: %v", err)
		return
	}

	path := filepath.Join(p.rubricsDir, "scenario_"+scenarioID+".txt")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		log.Printf("[ERROR] Failed to save rubric to %s: %v", path, err)
	}
}
