package api

import (
	"strings"
	"time"
)

// User is the authenticated account as returned by login and /api/auth/me.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	UserType       string    `json:"userType,omitempty"`
	Image          string    `json:"image,omitempty"`
	IsVerified     bool      `json:"isVerified"`
	IsActive       bool      `json:"isActive,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	ChatbotsLimit  int       `json:"chatbotsLimit,omitempty"`
	Subscription   string    `json:"subscription,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// IsAdmin reports whether the account carries the admin role under either field.
func (u User) IsAdmin() bool {
	return u.Role == "admin" || u.UserType == "admin"
}

// Organization is a tenant managed by admins.
type Organization struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	ContactPerson  string    `json:"contactPerson"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Active         bool      `json:"isActive"`
	Subscription   string    `json:"subscription,omitempty"`
	ChatbotsLimit  int       `json:"chatbotsLimit,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Key implements collection.Item.
func (o Organization) Key() string { return o.ID }

// SearchFields implements collection.Item.
func (o Organization) SearchFields() []string {
	return []string{o.OrganizationID, o.Name, o.ContactPerson, o.Email, o.Phone}
}

// IsActive implements collection.Item.
func (o Organization) IsActive() bool { return o.Active }

// OrganizationInput is the body of organization create and full update.
type OrganizationInput struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// DocumentMetadata describes a knowledge document already stored on the backend.
type DocumentMetadata struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
	Filename   string    `json:"filename,omitempty"`
	Path       string    `json:"path,omitempty"`
}

// Chatbot is a user-owned chatbot configuration.
type Chatbot struct {
	ID                string             `json:"id"`
	CompanyName       string             `json:"companyName"`
	CompanyEmail      string             `json:"companyEmail"`
	CompanyPhone      string             `json:"companyPhone"`
	CompanyAddress    string             `json:"companyAddress"`
	CompanyCategory   string             `json:"companyCategory"`
	Instructions      string             `json:"instructions"`
	ChatEnabled       bool               `json:"chatEnabled"`
	UploadedDocuments []DocumentMetadata `json:"uploadedDocuments"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Key implements collection.Item.
func (c Chatbot) Key() string { return c.ID }

// SearchFields implements collection.Item.
func (c Chatbot) SearchFields() []string {
	return []string{c.CompanyName, c.CompanyEmail, c.CompanyCategory, c.CompanyPhone}
}

// IsActive implements collection.Item.
func (c Chatbot) IsActive() bool { return c.ChatEnabled }

// ChatbotInput is the body of chatbot create and update.
type ChatbotInput struct {
	CompanyName     string `json:"companyName"`
	CompanyEmail    string `json:"companyEmail"`
	CompanyPhone    string `json:"companyPhone"`
	CompanyAddress  string `json:"companyAddress"`
	CompanyCategory string `json:"companyCategory"`
	Instructions    string `json:"instructions"`
	ChatEnabled     bool   `json:"chatEnabled"`
}

// InputOf copies the editable fields of c.
func InputOf(c Chatbot) ChatbotInput {
	return ChatbotInput{
		CompanyName:     c.CompanyName,
		CompanyEmail:    c.CompanyEmail,
		CompanyPhone:    c.CompanyPhone,
		CompanyAddress:  c.CompanyAddress,
		CompanyCategory: c.CompanyCategory,
		Instructions:    c.Instructions,
		ChatEnabled:     c.ChatEnabled,
	}
}

// ChatBotSettings is the admin-managed site assistant configuration.
type ChatBotSettings struct {
	ID                string             `json:"id"`
	CompanyName       string             `json:"companyName"`
	CompanyEmail      string             `json:"companyEmail,omitempty"`
	Instructions      string             `json:"instructions,omitempty"`
	UploadedDocuments []DocumentMetadata `json:"uploadedDocuments,omitempty"`
}

// EmailSettings is the SMTP configuration. Password is write-only: the
// backend never returns it.
type EmailSettings struct {
	SMTPHost     string `json:"smtpHost"`
	SMTPPort     string `json:"smtpPort"`
	SMTPUsername string `json:"smtpUsername"`
	SMTPPassword string `json:"smtpPassword,omitempty"`
	FromEmail    string `json:"fromEmail"`
	FromName     string `json:"fromName"`
	Encryption   string `json:"encryption"`
}

// WithDefaults fills the port and encryption defaults.
func (e EmailSettings) WithDefaults() EmailSettings {
	if strings.TrimSpace(e.SMTPPort) == "" {
		e.SMTPPort = "587"
	}
	if strings.TrimSpace(e.Encryption) == "" {
		e.Encryption = "tls"
	}
	return e
}

// TestEmail is the body of an SMTP test send.
type TestEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ChatRequest is one user message to a chatbot.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	ConfigID  string `json:"configId"`
}

// ChatSource is a knowledge snippet the answer was grounded on.
type ChatSource struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// ChatReply is the bot's answer.
type ChatReply struct {
	Response  string       `json:"response"`
	Sources   []ChatSource `json:"sources,omitempty"`
	SessionID string       `json:"sessionId"`
}

// AuthResult is returned by login.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Registration is the signup body.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
