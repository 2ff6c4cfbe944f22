package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

const chatbotBase = "/api/dashboard/user/chatbot"

// Upload is a local file queued for a chatbot's knowledge base.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ListChatbots fetches every chatbot owned by the caller.
func (c *Client) ListChatbots(ctx context.Context) ([]Chatbot, error) {
	var out []Chatbot
	if _, err := c.do(ctx, request{method: http.MethodGet, path: chatbotBase, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChatbot fetches one chatbot.
func (c *Client) GetChatbot(ctx context.Context, id string) (*Chatbot, error) {
	var out Chatbot
	if _, err := c.do(ctx, request{method: http.MethodGet, path: chatbotBase + "/" + url.PathEscape(id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChatbot stores chatbot metadata. Documents are uploaded separately
// against the returned id.
func (c *Client) CreateChatbot(ctx context.Context, in ChatbotInput) (*Chatbot, error) {
	var out Chatbot
	if _, err := c.do(ctx, request{method: http.MethodPost, path: chatbotBase, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateChatbot replaces chatbot metadata.
func (c *Client) UpdateChatbot(ctx context.Context, id string, in ChatbotInput) (*Chatbot, error) {
	var out Chatbot
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   chatbotBase + "/" + url.PathEscape(id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetChatbotEnabled flips only the chatEnabled flag.
func (c *Client) SetChatbotEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   chatbotBase + "/" + url.PathEscape(id),
		body:   map[string]bool{"chatEnabled": enabled},
	})
	return err
}

// DeleteChatbot removes a chatbot and its documents.
func (c *Client) DeleteChatbot(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: chatbotBase + "/" + url.PathEscape(id)})
	return err
}

// UploadDocuments posts files as multipart field "documents".
func (c *Client) UploadDocuments(ctx context.Context, id string, files []Upload) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="documents"; filename="%s"`, escapeQuotes(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload body: %w", err)
	}

	env, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        chatbotBase + "/" + url.PathEscape(id) + "/documents",
		raw:         &buf,
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
