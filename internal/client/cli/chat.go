package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/chat"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

var (
	chatConfigID string
	chatCompany  string
	chatWidth    int
	chatPlain    bool
)

var (
	chatYou    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	chatBot    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	chatFaint  = lipgloss.NewStyle().Faint(true)
	chatStatus = map[chat.Status]lipgloss.Style{
		chat.StatusOnline:     lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		chat.StatusConnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		chat.StatusOffline:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
	}
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the site assistant",
	Long: `Start a conversation with the assistant configured under Settings > Chatbot.

Commands inside the chat:
  /reset   start a new conversation
  /status  show the connection status
  /quit    leave`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		conv := chat.New(a.Client, chat.Options{
			ConfigID:    chatConfigID,
			CompanyName: chatCompany,
			Rate:        a.Config.Chat.Rate,
			Burst:       a.Config.Chat.Burst,
			History:     a.Config.Chat.History,
			Timeout:     a.Config.API.ChatTimeout,
		})

		render := func(text string) string { return text }
		if !chatPlain {
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(chatWidth))
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			render = func(text string) string {
				s, err := r.Render(text)
				if err != nil {
					return text
				}
				return strings.TrimRight(s, "\n")
			}
		}

		// The slow notice is posted from a timer while Send blocks.
		var noticeShown atomic.Bool
		conv.OnUpdate(func() {
			msgs := conv.Messages()
			if len(msgs) == 0 {
				return
			}
			if last := msgs[len(msgs)-1]; last.Pending && noticeShown.CompareAndSwap(false, true) {
				fmt.Fprintln(out, chatFaint.Render(last.Text))
			}
		})

		_ = conv.Initialize(ctx)
		printChatHeader(out, conv)
		for _, m := range conv.Messages() {
			printBotMessage(out, conv, m, render)
		}

		in := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, chatYou.Render("you")+" › ")
			if !in.Scan() {
				fmt.Fprintln(out)
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())

			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/status":
				printChatHeader(out, conv)
				continue
			case "/reset":
				_ = conv.Reset(ctx)
				for _, m := range conv.Messages() {
					printBotMessage(out, conv, m, render)
				}
				continue
			}

			noticeShown.Store(false)
			reply, err := conv.Send(ctx, line)
			switch {
			case errors.Is(err, apperrors.ErrRateLimited):
				fmt.Fprintln(out, chatFaint.Render("Slow down a little and try again."))
				continue
			case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrEmptyMessage):
				continue
			case err != nil:
				return err
			}
			printBotMessage(out, conv, reply, render)
		}
	},
}

func printChatHeader(w io.Writer, conv *chat.Conversation) {
	status := conv.Status()
	fmt.Fprintf(w, "%s · %s\n\n", chatBot.Render(conv.CompanyName()+" Assistant"), chatStatus[status].Render(string(status)))
}

func printBotMessage(w io.Writer, conv *chat.Conversation, m chat.Message, render func(string) string) {
	if m.Sender != chat.SenderBot {
		return
	}
	fmt.Fprintf(w, "%s %s\n%s\n", chatBot.Render(conv.CompanyName()), chatFaint.Render(m.Timestamp.Format("15:04")), render(m.Text))
	for _, s := range m.Sources {
		fmt.Fprintln(w, chatFaint.Render("  source: "+s.Source))
	}
	fmt.Fprintln(w)
}

func init() {
	chatCmd.Flags().StringVar(&chatConfigID, "config-id", "", "chatbot configuration to talk to (default: first configured)")
	chatCmd.Flags().StringVar(&chatCompany, "company", "", "assistant name shown before a configuration loads")
	chatCmd.Flags().IntVar(&chatWidth, "width", 80, "wrap replies at this width")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "print replies without markdown rendering")
	rootCmd.AddCommand(chatCmd)
}
