package tui

import (
	"context"
	"fmt"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/views"
)

// NewOrganizationModel is the admin organization table.
func NewOrganizationModel(ctx context.Context, list *views.OrganizationList) *ListModel[api.Organization] {
	columns := []Column[api.Organization]{
		{Title: "ID", Width: 10, Value: func(o api.Organization) string { return o.OrganizationID }},
		{Title: "Name", Width: 22, Value: func(o api.Organization) string { return o.Name }},
		{Title: "Contact", Width: 18, Value: func(o api.Organization) string { return o.ContactPerson }},
		{Title: "Email", Width: 26, Value: func(o api.Organization) string { return o.Email }},
		{Title: "Phone", Width: 14, Value: func(o api.Organization) string { return o.Phone }},
	}
	return NewListModel(ctx, "Organizations", list.Store(), columns, Actions{
		Load:   list.Refresh,
		Toggle: list.RequestToggle,
	})
}

// NewChatbotModel is the user's chatbot table.
func NewChatbotModel(ctx context.Context, list *views.ChatbotList) *ListModel[api.Chatbot] {
	columns := []Column[api.Chatbot]{
		{Title: "Company", Width: 22, Value: func(c api.Chatbot) string { return c.CompanyName }},
		{Title: "Category", Width: 14, Value: func(c api.Chatbot) string { return c.CompanyCategory }},
		{Title: "Email", Width: 26, Value: func(c api.Chatbot) string { return c.CompanyEmail }},
		{Title: "Docs", Width: 5, Value: func(c api.Chatbot) string { return fmt.Sprint(len(c.UploadedDocuments)) }},
	}
	return NewListModel(ctx, "Chat Bots", list.Store(), columns, Actions{
		Load:   list.Refresh,
		Toggle: list.RequestToggle,
		Delete: list.RequestDelete,
	})
}
