package events

import "time"

// EventType represents the type of event.
type EventType string

const (
	// EventChatbotCreated is emitted after the backend confirms a new chatbot.
	EventChatbotCreated EventType = "chatbot_created"

	// EventChatbotUpdated is emitted after a chatbot edit or enable/disable.
	EventChatbotUpdated EventType = "chatbot_updated"

	// EventChatbotDeleted is emitted after the backend confirms a deletion.
	EventChatbotDeleted EventType = "chatbot_deleted"

	// EventOrganizationChanged is emitted after an organization is created or modified.
	EventOrganizationChanged EventType = "organization_changed"

	// EventSessionChanged is emitted on login, logout and forced logout.
	EventSessionChanged EventType = "session_changed"

	// EventAccountDisabled is emitted when the backend reports the account as disabled.
	EventAccountDisabled EventType = "account_disabled"
)

// Event is the base event structure with polymorphic payload.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// New stamps an event with the current time.
func New(t EventType, data interface{}) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

// ChatbotEvent identifies the chatbot a change applies to.
type ChatbotEvent struct {
	ChatbotID   string `json:"chatbot_id"`
	CompanyName string `json:"company_name,omitempty"`
}

// OrganizationEvent identifies the organization a change applies to.
type OrganizationEvent struct {
	OrganizationID string `json:"organization_id"`
}

// SessionEvent describes a session transition.
type SessionEvent struct {
	LoggedIn bool   `json:"logged_in"`
	Reason   string `json:"reason,omitempty"` // why a session was cleared
}

// AccountDisabledEvent carries the message to show the user.
type AccountDisabledEvent struct {
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to,omitempty"`
}
