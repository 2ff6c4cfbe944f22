// Package chat is a conversation with a chatbot through the public chat
// endpoint.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/botdesk/botdesk/internal/client/api"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
)

const (
	DefaultConfigID  = "default"
	DefaultTimeout   = 90 * time.Second
	DefaultSlowAfter = 15 * time.Second
	DefaultHistory   = 200
	DefaultRate      = 1.0
	DefaultBurst     = 3
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a reply is still pending")
)

// Status is the connection indicator.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusOffline    Status = "offline"
)

// Sender tells user and bot messages apart.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
	Sources   []api.ChatSource
	Pending   bool // the "still processing" notice, dropped once the reply lands
}

// Backend is the part of the API a conversation needs.
type Backend interface {
	ListChatBotSettings(ctx context.Context) ([]api.ChatBotSettings, error)
	SendMessage(ctx context.Context, in api.ChatRequest) (*api.ChatReply, error)
	ClearChatSession(ctx context.Context, sessionID string) error
}

// Options configures a Conversation.
type Options struct {
	ConfigID    string
	CompanyName string
	Rate        float64 // messages per second
	Burst       int
	History     int
	Timeout     time.Duration
	SlowAfter   time.Duration
	Now         func() time.Time
}

// Conversation holds one chat session.
type Conversation struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger

	transcript *Transcript

	mu        sync.Mutex
	status    Status
	configID  string
	company   string
	sessionID string
	busy      bool
	onUpdate  func()
}

// New creates a conversation. Call Initialize before Send.
func New(backend Backend, opts Options) *Conversation {
	if opts.ConfigID == "" {
		opts.ConfigID = DefaultConfigID
	}
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SlowAfter <= 0 {
		opts.SlowAfter = DefaultSlowAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Conversation{
		backend:    backend,
		opts:       opts,
		limiter:    rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		log:        logger.WithComponent("chat"),
		transcript: NewTranscript(opts.History),
		status:     StatusConnecting,
		configID:   opts.ConfigID,
		company:    opts.CompanyName,
	}
}

// OnUpdate registers a callback run whenever the transcript or status changes.
func (c *Conversation) OnUpdate(fn func()) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Initialize picks the configuration to talk to and posts the welcome
// message. The configuration matching ConfigID wins, then the first one.
func (c *Conversation) Initialize(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	configs, err := c.backend.ListChatBotSettings(ctx)
	if err != nil {
		c.mu.Lock()
		c.configID = DefaultConfigID
		name := assistantName(c.opts.CompanyName)
		c.mu.Unlock()
		c.transcript.Reset(c.botMessage(welcomeTextOffline(name)))
		c.setStatus(StatusOffline)
		c.log.Warn().Err(err).Msg("Failed to load chatbot configuration")
		return err
	}

	var text string
	c.mu.Lock()
	if len(configs) == 0 {
		c.configID = DefaultConfigID
		text = welcomeTextNoConfig(assistantName(c.opts.CompanyName))
		if c.opts.CompanyName == "" {
			c.company = "AI Assistant"
		}
	} else {
		cfg := configs[0]
		for _, candidate := range configs {
			if candidate.ID == c.opts.ConfigID {
				cfg = candidate
				break
			}
		}
		c.configID = cfg.ID
		if cfg.CompanyName != "" {
			c.company = cfg.CompanyName
		}
		text = welcomeText(assistantName(cfg.CompanyName, c.opts.CompanyName))
	}
	c.mu.Unlock()

	c.transcript.Reset(c.botMessage(text))
	c.setStatus(StatusOnline)
	return nil
}

// Send posts text and appends both the user message and the bot's reply.
// Backend failures never surface as errors here: the reply is a canned
// apology and the status goes offline. The returned error is only set for
// messages that were not sent at all.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	if !c.limiter.Allow() {
		c.mu.Unlock()
		return Message{}, apperrors.ErrRateLimited
	}
	c.busy = true
	req := api.ChatRequest{Message: text, SessionID: c.sessionID, ConfigID: c.configID}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	c.transcript.Append(Message{ID: uuid.NewString(), Text: text, Sender: SenderUser, Timestamp: c.opts.Now()})
	c.setStatus(StatusConnecting)

	var (
		slowMu   sync.Mutex
		answered bool
	)
	slow := time.AfterFunc(c.opts.SlowAfter, func() {
		slowMu.Lock()
		defer slowMu.Unlock()
		if answered {
			return
		}
		m := c.botMessage(SlowText)
		m.Pending = true
		c.transcript.Append(m)
		c.notify()
	})

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	reply, err := c.backend.SendMessage(ctx, req)
	cancel()
	slowMu.Lock()
	answered = true
	slowMu.Unlock()
	slow.Stop()
	c.transcript.RemoveIf(func(m Message) bool { return m.Pending })

	var msg Message
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("config_id", req.ConfigID).Msg("Chat request failed")
		msg = c.botMessage(fallbackText(err))
		c.setStatus(StatusOffline)
	case reply == nil || reply.Response == "":
		msg = c.botMessage(ErrorText)
		c.setStatus(StatusOffline)
	default:
		c.mu.Lock()
		if c.sessionID == "" {
			c.sessionID = reply.SessionID
		}
		c.mu.Unlock()
		msg = c.botMessage(reply.Response)
		msg.Sources = reply.Sources
		c.log.Debug().Int("sources", len(reply.Sources)).Msg("Reply received")
		c.setStatus(StatusOnline)
	}

	c.transcript.Append(msg)
	c.notify()
	return msg, nil
}

func fallbackText(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return TimeoutText
	case errors.Is(err, context.Canceled):
		return AbortText
	default:
		return FailureText
	}
}

// Reset drops the server-side session and restarts the transcript. The
// delete is best-effort; its error is returned for logging only.
func (c *Conversation) Reset(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	c.sessionID = ""
	name := assistantName(c.company, c.opts.CompanyName)
	c.mu.Unlock()

	var err error
	if sessionID != "" {
		if err = c.backend.ClearChatSession(ctx, sessionID); err != nil {
			c.log.Debug().Err(err).Str("session_id", sessionID).Msg("Failed to clear chat session")
		}
	}

	c.transcript.Reset(c.botMessage(resetText(name)))
	c.notify()
	return err
}

// Messages returns the transcript, oldest first.
func (c *Conversation) Messages() []Message {
	return c.transcript.Messages()
}

// Status returns the connection indicator.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the server session id, set by the first reply.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ConfigID returns the configuration being talked to.
func (c *Conversation) ConfigID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configID
}

// CompanyName returns the assistant's display name.
func (c *Conversation) CompanyName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return assistantName(c.company)
}

func (c *Conversation) botMessage(text string) Message {
	return Message{ID: uuid.NewString(), Text: text, Sender: SenderBot, Timestamp: c.opts.Now()}
}

func (c *Conversation) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Conversation) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
