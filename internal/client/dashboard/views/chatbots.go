package views

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	"github.com/botdesk/botdesk/internal/client/session"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
)

// ViewMode is how the chatbot list is laid out.
type ViewMode string

const (
	ViewGrid  ViewMode = "grid"
	ViewTable ViewMode = "table"
)

// ParseViewMode accepts grid or table.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewGrid, ViewTable:
		return m, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (want grid or table)", s)
	}
}

// ChatbotBackend is the part of the API the chatbot list needs.
type ChatbotBackend interface {
	ListChatbots(ctx context.Context) ([]api.Chatbot, error)
	SetChatbotEnabled(ctx context.Context, id string, enabled bool) error
	DeleteChatbot(ctx context.Context, id string) error
}

// ChatbotList is the user's chatbot table.
type ChatbotList struct {
	store   *collection.Store[api.Chatbot]
	backend ChatbotBackend
	bus     *events.Bus
	prefs   session.Repository
	log     zerolog.Logger
}

// NewChatbotList creates an empty list. bus and prefs may be nil.
func NewChatbotList(backend ChatbotBackend, bus *events.Bus, prefs session.Repository, opts ...collection.Option) *ChatbotList {
	opts = append([]collection.Option{collection.WithName("chatbots")}, opts...)
	return &ChatbotList{
		store:   collection.NewStore[api.Chatbot](opts...),
		backend: backend,
		bus:     bus,
		prefs:   prefs,
		log:     logger.WithComponent("chatbots"),
	}
}

// Store exposes the underlying collection.
func (l *ChatbotList) Store() *collection.Store[api.Chatbot] {
	return l.store
}

// Refresh refetches every chatbot.
func (l *ChatbotList) Refresh(ctx context.Context) error {
	return l.store.Load(ctx, l.backend.ListChatbots)
}

// RequestToggle prepares enabling or disabling a chatbot's chat.
func (l *ChatbotList) RequestToggle(id string) (*collection.Confirmation, error) {
	bot, ok := l.store.Find(id)
	if !ok {
		return nil, fmt.Errorf("toggle chatbot %s: %w", id, apperrors.ErrNotFound)
	}
	return l.store.RequestToggle(id, bot.CompanyName, "Chatbot", func(ctx context.Context, enable bool) error {
		if err := l.backend.SetChatbotEnabled(ctx, id, enable); err != nil {
			return err
		}
		l.publish(events.EventChatbotUpdated, bot)
		return nil
	}, func(c api.Chatbot, enabled bool) api.Chatbot {
		c.ChatEnabled = enabled
		return c
	})
}

// RequestDelete prepares a deletion behind a confirmation.
func (l *ChatbotList) RequestDelete(id string) (*collection.Confirmation, error) {
	bot, ok := l.store.Find(id)
	if !ok {
		return nil, fmt.Errorf("delete chatbot %s: %w", id, apperrors.ErrNotFound)
	}
	return l.store.RequestDelete(id, bot.CompanyName, "Chatbot", func(ctx context.Context) error {
		return l.delete(ctx, bot)
	})
}

// Delete removes a chatbot without asking.
func (l *ChatbotList) Delete(ctx context.Context, id string) error {
	bot, ok := l.store.Find(id)
	if !ok {
		return fmt.Errorf("delete chatbot %s: %w", id, apperrors.ErrNotFound)
	}
	return l.store.Delete(ctx, id, func(ctx context.Context) error {
		return l.delete(ctx, bot)
	})
}

func (l *ChatbotList) delete(ctx context.Context, bot api.Chatbot) error {
	if err := l.backend.DeleteChatbot(ctx, bot.ID); err != nil {
		return err
	}
	l.log.Info().Str("chatbot_id", bot.ID).Msg("Chatbot deleted")
	l.publish(events.EventChatbotDeleted, bot)
	return nil
}

// ViewMode returns the saved layout, grid when none is saved.
func (l *ChatbotList) ViewMode(ctx context.Context) ViewMode {
	if l.prefs == nil {
		return ViewGrid
	}
	var mode ViewMode
	ok, err := l.prefs.GetPreference(ctx, session.PrefViewMode, &mode)
	if err != nil {
		l.log.Debug().Err(err).Msg("Failed to read view mode")
	}
	if !ok || err != nil {
		return ViewGrid
	}
	if _, err := ParseViewMode(string(mode)); err != nil {
		return ViewGrid
	}
	return mode
}

// SetViewMode saves the layout.
func (l *ChatbotList) SetViewMode(ctx context.Context, mode ViewMode) error {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return err
	}
	if l.prefs == nil {
		return nil
	}
	return l.prefs.SetPreference(ctx, session.PrefViewMode, mode)
}

func (l *ChatbotList) publish(t events.EventType, bot api.Chatbot) {
	if l.bus != nil {
		l.bus.Emit(t, events.ChatbotEvent{ChatbotID: bot.ID, CompanyName: bot.CompanyName})
	}
}
