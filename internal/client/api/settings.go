package api

import (
	"context"
	"net/http"
	"net/url"
)

const settingsBase = "/api/dashboard/settings"

// GetEmailConfiguration loads the SMTP settings. The password is blanked
// even if the backend echoes it.
func (c *Client) GetEmailConfiguration(ctx context.Context) (*EmailSettings, error) {
	var out EmailSettings
	if _, err := c.do(ctx, request{method: http.MethodGet, path: settingsBase + "/email-configuration", out: &out}); err != nil {
		return nil, err
	}
	out.SMTPPassword = ""
	out = out.WithDefaults()
	return &out, nil
}

// SaveEmailConfiguration stores the SMTP settings.
func (c *Client) SaveEmailConfiguration(ctx context.Context, in EmailSettings) (string, error) {
	return c.message(ctx, http.MethodPost, settingsBase+"/email-configuration", in.WithDefaults())
}

// SendTestEmail asks the backend to send a message with the stored settings.
func (c *Client) SendTestEmail(ctx context.Context, in TestEmail) (string, error) {
	return c.message(ctx, http.MethodPost, settingsBase+"/email-configuration/test", in)
}

// ListChatBotSettings returns the site assistant configurations.
func (c *Client) ListChatBotSettings(ctx context.Context) ([]ChatBotSettings, error) {
	var out []ChatBotSettings
	if _, err := c.do(ctx, request{method: http.MethodGet, path: settingsBase + "/chat-bot", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveChatBotSettings creates the configuration, or updates it when ID is set.
func (c *Client) SaveChatBotSettings(ctx context.Context, in ChatBotSettings) (*ChatBotSettings, error) {
	method, path := http.MethodPost, settingsBase+"/chat-bot"
	if in.ID != "" {
		method, path = http.MethodPut, path+"/"+url.PathEscape(in.ID)
	}

	var out ChatBotSettings
	if _, err := c.do(ctx, request{method: method, path: path, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
