package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"emailgame/models"
)

var ErrScenarioNotFound = errors.New("scenario not found")

const (
	DefaultPersona = "You are the recipient of an email. Please respond naturally and appropriately to the email you receive."

	defaultCommunicationGoal = "Achieve effective communication with the recipient."
)

// LevelScenarios maps player-facing levels to backend scenario keys.
var LevelScenarios = map[int]string{
	1: "3",
	2: "4",
	3: "2",
	4: "5.4",
}

// MultiTurnLevels are levels played as a back-and-forth conversation instead
// of a single email.
var MultiTurnLevels = map[int]bool{
	4: true,
}

// ModeratedLevel is the level whose emails are screened for forbidden
// negotiation strategies after the goal is achieved.
const ModeratedLevel = 3

// MaxAvailableLevel is the highest playable level.
func MaxAvailableLevel() int {
	max := 0
	for level := range LevelScenarios {
		if level > max {
			max = level
		}
	}
	return max
}

// ScenarioService loads authored scenarios, personas, and their side files
// from a prompts directory:
//
//	scenarios/scenario_<key>.txt          scenario text
//	scenarios/scenario_<key>_email*.txt   forwarded-email attachments
//	recipients/scenario_<key>.txt         single recipient persona
//	recipients/scenario_<key>_<name>.txt  named recipient personas
//	recipients/scenario_<key>_gm.txt      game master prompt
//	comm_goals/scenario_<key>.txt         communication goal
type ScenarioService struct {
	promptsDir string
}

func NewScenarioService(promptsDir string) *ScenarioService {
	return &ScenarioService{promptsDir: promptsDir}
}

func (s *ScenarioService) ScenarioForLevel(level int) (*models.Scenario, error) {
	key, ok := LevelScenarios[level]
	if !ok {
		return nil, fmt.Errorf("level %d: %w", level, ErrScenarioNotFound)
	}
	return s.LoadScenario(key)
}

func (s *ScenarioService) LoadScenario(id string) (*models.Scenario, error) {
	path := filepath.Join(s.promptsDir, "scenarios", "scenario_"+id+".txt")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario %q: %w", id, ErrScenarioNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %q: %w", id, err)
	}

	scenario := &models.Scenario{
		ID:                id,
		PromptText:        strings.TrimSpace(string(content)),
		CommunicationGoal: s.loadCommunicationGoal(id),
		Personas:          s.loadPersonas(id),
		Attachments:       s.loadAttachments(id),
		GameMasterPrompt:  s.loadGameMasterPrompt(id),
	}

	return scenario, nil
}

// ListScenarios returns every base scenario in the store, sorted by key.
// Variant files (named recipients, forwarded emails) are not scenarios of
// their own.
func (s *ScenarioService) ListScenarios() ([]*models.Scenario, error) {
	pattern := filepath.Join(s.promptsDir, "scenarios", "scenario_*.txt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenarios: %w", err)
	}

	var scenarios []*models.Scenario
	for _, file := range files {
		key := scenarioKey(file)
		if key == "" || strings.Contains(key, "_") {
			continue
		}
		scenario, err := s.LoadScenario(key)
		if err != nil {
			log.Printf("[ERROR] Failed to load scenario %q: %v", key, err)
			continue
		}
		scenarios = append(scenarios, scenario)
	}

	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ID < scenarios[j].ID })
	return scenarios, nil
}

// loadPersonas finds named recipient personas for the scenario, falling back
// to the single persona file and then to the default persona. The empty-string
// key marks the default single recipient.
func (s *ScenarioService) loadPersonas(id string) map[string]string {
	personas := make(map[string]string)

	pattern := filepath.Join(s.promptsDir, "recipients", "scenario_"+id+"_*.txt")
	files, err := filepath.Glob(pattern)
	if err == nil {
		for _, file := range files {
			name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "scenario_"+id+"_"), ".txt")
			if name == "gm" {
				continue
			}
			content, err := os.ReadFile(file)
			if err != nil {
				log.Printf("[ERROR] Failed to load persona %q for scenario %s: %v", name, id, err)
				continue
			}
			personas[name] = strings.TrimSpace(string(content))
		}
	}

	if len(personas) > 0 {
		return personas
	}

	single := filepath.Join(s.promptsDir, "recipients", "scenario_"+id+".txt")
	if content, err := os.ReadFile(single); err == nil {
		personas[""] = strings.TrimSpace(string(content))
	} else {
		personas[""] = DefaultPersona
	}

	return personas
}

func (s *ScenarioService) loadAttachments(id string) []models.Attachment {
	pattern := filepath.Join(s.promptsDir, "scenarios", "scenario_"+id+"_email*.txt")
	files, err := filepath.Glob(pattern)
	if err != nil || len(files) == 0 {
		return nil
	}
	sort.Strings(files)

	var attachments []models.Attachment
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Printf("[ERROR] Failed to load forwarded email %s: %v", file, err)
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "scenario_"+id+"_"), ".txt")
		attachments = append(attachments, models.Attachment{
			Name:    name,
			Content: strings.TrimSpace(string(content)),
		})
	}

	return attachments
}

func (s *ScenarioService) loadGameMasterPrompt(id string) string {
	path := filepath.Join(s.promptsDir, "recipients", "scenario_"+id+"_gm.txt")
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func (s *ScenarioService) loadCommunicationGoal(id string) string {
	path := filepath.Join(s.promptsDir, "comm_goals", "scenario_"+id+".txt")
	content, err := os.ReadFile(path)
	if err != nil {
		return defaultCommunicationGoal
	}
	return strings.TrimSpace(string(content))
}

func scenarioKey(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "scenario_") || !strings.HasSuffix(base, ".txt") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "scenario_"), ".txt")
}
