package api

import (
	"context"
	"net/http"
	"net/url"
)

// SendMessage posts one chat message. The call carries its own timeout,
// shorter than the client default, on top of any deadline in ctx.
func (c *Client) SendMessage(ctx context.Context, in ChatRequest) (*ChatReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()

	if in.ConfigID == "" {
		in.ConfigID = "default"
	}

	var out ChatReply
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/chat", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearChatSession drops the server-side conversation history.
func (c *Client) ClearChatSession(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/chat/session/" + url.PathEscape(sessionID)})
	return err
}
