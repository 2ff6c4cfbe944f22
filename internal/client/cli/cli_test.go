package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

func testBots(n int) []api.Chatbot {
	bots := make([]api.Chatbot, n)
	for i := range bots {
		bots[i] = api.Chatbot{
			ID:          fmt.Sprintf("bot-%02d", i+1),
			CompanyName: fmt.Sprintf("Bot %02d", i+1),
			ChatEnabled: i%2 == 0,
		}
	}
	return bots
}

func testCommand(input string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestApplyListFlags(t *testing.T) {
	store := collection.NewStore[api.Chatbot]()
	store.Replace(testBots(12))

	t.Run("status and page size", func(t *testing.T) {
		v, err := applyListFlags(store, listFlags{status: "active", page: 1, pageSize: 5, output: outputTable})
		require.NoError(t, err)
		assert.Equal(t, 6, v.TotalCount)
		assert.Equal(t, 12, v.Total)
		assert.Equal(t, 2, v.TotalPages)
		assert.Len(t, v.Items, 5)
	})

	t.Run("search", func(t *testing.T) {
		v, err := applyListFlags(store, listFlags{search: "BOT 1", status: "all", page: 1, output: outputJSON})
		require.NoError(t, err)
		require.Len(t, v.Items, 3)
		assert.Equal(t, "bot-10", v.Items[0].ID)
	})

	t.Run("page past the end is clamped", func(t *testing.T) {
		v, err := applyListFlags(store, listFlags{status: "all", page: 9, pageSize: 10, output: outputTable})
		require.NoError(t, err)
		assert.Equal(t, 2, v.Page)
		assert.Len(t, v.Items, 2)
	})

	tests := []struct {
		name  string
		flags listFlags
	}{
		{"bad status", listFlags{status: "paused", page: 1, output: outputTable}},
		{"bad output", listFlags{status: "all", page: 1, output: "xml"}},
		{"bad page size", listFlags{status: "all", page: 1, pageSize: 7, output: outputTable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyListFlags(store, tt.flags)
			assert.Error(t, err)
		})
	}
}

func TestRunConfirmation(t *testing.T) {
	newToggle := func(t *testing.T, sendErr error) (*collection.Store[api.Chatbot], *collection.Confirmation, *int) {
		store := collection.NewStore[api.Chatbot]()
		store.Replace(testBots(2))
		sent := 0
		c, err := store.RequestToggle("bot-01", "Bot 01", "Chatbot",
			func(context.Context, bool) error {
				sent++
				return sendErr
			},
			func(b api.Chatbot, enabled bool) api.Chatbot {
				b.ChatEnabled = enabled
				return b
			})
		require.NoError(t, err)
		return store, c, &sent
	}

	t.Run("yes applies", func(t *testing.T) {
		store, c, sent := newToggle(t, nil)
		cmd, out := testCommand("y\n")

		require.NoError(t, runConfirmation(cmd, c))
		assert.Equal(t, 1, *sent)
		bot, _ := store.Find("bot-01")
		assert.False(t, bot.ChatEnabled)
		assert.Contains(t, out.String(), "Disable Chatbot completed")
	})

	t.Run("anything else cancels", func(t *testing.T) {
		store, c, sent := newToggle(t, nil)
		cmd, out := testCommand("\n")

		require.NoError(t, runConfirmation(cmd, c))
		assert.Zero(t, *sent)
		assert.True(t, c.Decided())
		bot, _ := store.Find("bot-01")
		assert.True(t, bot.ChatEnabled)
		assert.Contains(t, out.String(), "Canceled.")
	})

	t.Run("backend failure keeps the flag", func(t *testing.T) {
		store, c, _ := newToggle(t, &api.APIError{StatusCode: 500, Detail: "boom"})
		cmd, _ := testCommand("yes\n")

		err := runConfirmation(cmd, c)
		require.Error(t, err)
		bot, _ := store.Find("bot-01")
		assert.True(t, bot.ChatEnabled)
	})
}

func TestFriendly(t *testing.T) {
	assert.NoError(t, friendly(nil, "x"))

	err := friendly(fmt.Errorf("wrapped: %w", apperrors.ErrNotFound), "Failed to load")
	assert.EqualError(t, err, "Failed to load")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPrompterFill(t *testing.T) {
	cmd, _ := testCommand("Acme\n\n")
	name, phone, email := "", "", "set@example.com"

	require.NoError(t, newPrompter(cmd).fill(
		promptField{"Name", &name},
		promptField{"Email", &email},
		promptField{"Phone", &phone},
	))
	assert.Equal(t, "Acme", name)
	assert.Equal(t, "set@example.com", email)
	assert.Empty(t, phone)
}

func TestRenderChatbotGrid(t *testing.T) {
	grid := renderChatbotGrid(testBots(4), 3)
	for _, name := range []string{"Bot 01", "Bot 02", "Bot 03", "Bot 04"} {
		assert.Contains(t, grid, name)
	}
	assert.Contains(t, grid, "Enabled")
	assert.Contains(t, grid, "Disabled")
}

func TestRenderChatbots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderChatbots(&buf, testBots(2)))
	assert.Contains(t, buf.String(), "Bot 02")
	assert.Contains(t, buf.String(), "Disabled")
}

func TestUsageBar(t *testing.T) {
	bar := usageBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))
	assert.Equal(t, 10, strings.Count(usageBar(100, 10), "█"))
}

func TestPick(t *testing.T) {
	assert.Equal(t, "new", pick("new", "old"))
	assert.Equal(t, "old", pick("", "old"))
}
