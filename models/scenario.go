package models

// Attachment is a forwarded email shown to the player as context for a
// scenario.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Scenario is an authored negotiation setting. Immutable once loaded.
// Personas maps recipient names to their persona prompts; single-recipient
// scenarios use the empty-string key.
type Scenario struct {
	ID                string            `json:"id"`
	PromptText        string            `json:"prompt_text"`
	CommunicationGoal string            `json:"communication_goal,omitempty"`
	Personas          map[string]string `json:"-"`
	Attachments       []Attachment      `json:"attachments,omitempty"`
	GameMasterPrompt  string            `json:"-"`
}

// MultiRecipient reports whether the scenario addresses named recipients
// rather than the single default one.
func (s *Scenario) MultiRecipient() bool {
	if len(s.Personas) > 1 {
		return true
	}
	_, hasDefault := s.Personas[""]
	return len(s.Personas) == 1 && !hasDefault
}

// RecipientTurn is one simulated reply to a player email. Commentary is the
// recipient's private aside, never shown to the player in-game.
type RecipientTurn struct {
	Reply      string `json:"reply"`
	Commentary string `json:"commentary,omitempty"`
}

// Message roles in a conversation transcript.
const (
	RolePlayer    = "player"
	RoleRecipient = "recipient"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
