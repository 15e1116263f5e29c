package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeScenarioFile(t *testing.T, dir, sub, name, content string) {
	t.Helper()
	folder := filepath.Join(dir, sub)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", folder, err)
	}
	if err := os.WriteFile(filepath.Join(folder, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_3.txt", "Coordinate a weekend trip.")
	writeScenarioFile(t, dir, "recipients", "scenario_3.txt", "You are Jordan.")
	writeScenarioFile(t, dir, "comm_goals", "scenario_3.txt", "Everyone confirms by Friday.")

	service := NewScenarioService(dir)

	scenario, err := service.LoadScenario("3")
	if err != nil {
		t.Fatalf("LoadScenario() unexpected error: %v", err)
	}

	if scenario.PromptText != "Coordinate a weekend trip." {
		t.Errorf("unexpected prompt text %q", scenario.PromptText)
	}
	if scenario.Personas[""] != "You are Jordan." {
		t.Errorf("unexpected persona %q", scenario.Personas[""])
	}
	if scenario.CommunicationGoal != "Everyone confirms by Friday." {
		t.Errorf("unexpected goal %q", scenario.CommunicationGoal)
	}
	if scenario.MultiRecipient() {
		t.Error("single-persona scenario must not be multi-recipient")
	}
}

func TestLoadScenarioNotFound(t *testing.T) {
	service := NewScenarioService(t.TempDir())

	_, err := service.LoadScenario("missing")
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("expected ErrScenarioNotFound, got %v", err)
	}
}

func TestLoadScenarioDefaults(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_1.txt", "Bare scenario.")

	service := NewScenarioService(dir)

	scenario, err := service.LoadScenario("1")
	if err != nil {
		t.Fatalf("LoadScenario() unexpected error: %v", err)
	}

	if scenario.Personas[""] != DefaultPersona {
		t.Errorf("expected default persona, got %q", scenario.Personas[""])
	}
	if scenario.CommunicationGoal != defaultCommunicationGoal {
		t.Errorf("expected default communication goal, got %q", scenario.CommunicationGoal)
	}
}

func TestLoadScenarioMultiRecipient(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_4.txt", "Two feuding engineers.")
	writeScenarioFile(t, dir, "recipients", "scenario_4_emily.txt", "You are Emily.")
	writeScenarioFile(t, dir, "recipients", "scenario_4_mark.txt", "You are Mark.")
	writeScenarioFile(t, dir, "recipients", "scenario_4_gm.txt", "You narrate outcomes.")

	service := NewScenarioService(dir)

	scenario, err := service.LoadScenario("4")
	if err != nil {
		t.Fatalf("LoadScenario() unexpected error: %v", err)
	}

	if !scenario.MultiRecipient() {
		t.Error("expected multi-recipient scenario")
	}
	if len(scenario.Personas) != 2 {
		t.Errorf("expected 2 personas, got %d (gm file must not become a persona)", len(scenario.Personas))
	}
	if scenario.Personas["emily"] != "You are Emily." || scenario.Personas["mark"] != "You are Mark." {
		t.Errorf("unexpected personas: %v", scenario.Personas)
	}
	if scenario.GameMasterPrompt != "You narrate outcomes." {
		t.Errorf("unexpected game master prompt %q", scenario.GameMasterPrompt)
	}
}

func TestLoadScenarioAttachments(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_5.4.txt", "Adam forwarded an email.")
	writeScenarioFile(t, dir, "scenarios", "scenario_5.4_email1.txt", "FW: desk assignments")
	writeScenarioFile(t, dir, "recipients", "scenario_5.4.txt", "You are Adam.")

	service := NewScenarioService(dir)

	scenario, err := service.LoadScenario("5.4")
	if err != nil {
		t.Fatalf("LoadScenario() unexpected error: %v", err)
	}

	if len(scenario.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(scenario.Attachments))
	}
	if scenario.Attachments[0].Name != "email1" {
		t.Errorf("unexpected attachment name %q", scenario.Attachments[0].Name)
	}
	if scenario.Attachments[0].Content != "FW: desk assignments" {
		t.Errorf("unexpected attachment content %q", scenario.Attachments[0].Content)
	}
}

func TestListScenariosSkipsVariantFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_2.txt", "Scenario two.")
	writeScenarioFile(t, dir, "scenarios", "scenario_3.txt", "Scenario three.")
	writeScenarioFile(t, dir, "scenarios", "scenario_3_email1.txt", "A forwarded email.")

	service := NewScenarioService(dir)

	scenarios, err := service.ListScenarios()
	if err != nil {
		t.Fatalf("ListScenarios() unexpected error: %v", err)
	}

	if len(scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(scenarios))
	}
	if scenarios[0].ID != "2" || scenarios[1].ID != "3" {
		t.Errorf("unexpected scenario order: %s, %s", scenarios[0].ID, scenarios[1].ID)
	}
}

func TestScenarioForLevel(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "scenarios", "scenario_3.txt", "Level one scenario.")

	service := NewScenarioService(dir)

	scenario, err := service.ScenarioForLevel(1)
	if err != nil {
		t.Fatalf("ScenarioForLevel() unexpected error: %v", err)
	}
	if scenario.ID != "3" {
		t.Errorf("expected level 1 to map to scenario 3, got %q", scenario.ID)
	}

	if _, err := service.ScenarioForLevel(99); !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("expected ErrScenarioNotFound for unknown level, got %v", err)
	}
}
