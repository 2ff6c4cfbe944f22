package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/tablewriter"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/metrics"
	"github.com/botdesk/botdesk/internal/client/dashboard/views"
	"github.com/botdesk/botdesk/internal/client/tui"
	"github.com/botdesk/botdesk/pkg/utils"
)

const chatbotsPath = "/chat-bot"

var botCmd = &cobra.Command{
	Use:     "bot",
	Aliases: []string{"chatbot", "chatbots"},
	Short:   "Manage your chatbots",
}

func chatbotList(a *App) *views.ChatbotList {
	return views.NewChatbotList(a.Client, a.Bus, a.Session.Repository(), a.StoreOptions()...)
}

var (
	botListFlags listFlags
	botListView  string
)

var botListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List chatbots",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(chatbotsPath); err != nil {
			return err
		}

		list := chatbotList(a)
		if err := list.Refresh(cmd.Context()); err != nil {
			return friendly(err, "Failed to fetch chatbots")
		}
		v, err := applyListFlags(list.Store(), botListFlags)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if botListFlags.output == outputJSON {
			return printJSON(out, v.Items)
		}
		if len(v.Items) == 0 {
			fmt.Fprintln(out, "No chatbots found. Create one with: botdesk bot create")
			return nil
		}

		mode := list.ViewMode(cmd.Context())
		if botListView != "" {
			if mode, err = views.ParseViewMode(botListView); err != nil {
				return err
			}
		}
		if mode == views.ViewGrid {
			fmt.Fprintln(out, renderChatbotGrid(v.Items, 3))
		} else if err := renderChatbots(out, v.Items); err != nil {
			return err
		}
		printPageFooter(out, v, "chatbots")
		return nil
	},
}

func renderChatbots(w io.Writer, bots []api.Chatbot) error {
	return tablewriter.Render(
		w,
		bots,
		[]string{"ID", "Company", "Category", "Email", "Docs", "Status", "Updated"},
		func(b api.Chatbot) ([]string, error) {
			updated := "-"
			if !b.UpdatedAt.IsZero() {
				updated = humanize.Time(b.UpdatedAt)
			}
			return []string{
				b.ID,
				b.CompanyName,
				b.CompanyCategory,
				b.CompanyEmail,
				fmt.Sprint(len(b.UploadedDocuments)),
				enabledLabel(b.ChatEnabled),
				updated,
			}, nil
		},
	)
}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(30)
	cardTitle = lipgloss.NewStyle().Bold(true)
	cardMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderChatbotGrid lays the chatbots out as cards, perRow to a line.
func renderChatbotGrid(bots []api.Chatbot, perRow int) string {
	var rows []string
	for start := 0; start < len(bots); start += perRow {
		end := min(start+perRow, len(bots))
		cards := make([]string, 0, end-start)
		for _, b := range bots[start:end] {
			cards = append(cards, cardStyle.Render(strings.Join([]string{
				cardTitle.Render(truncate.StringWithTail(b.CompanyName, 26, "…")),
				cardMuted.Render(truncate.StringWithTail(b.CompanyCategory, 26, "…")),
				fmt.Sprintf("%d documents", len(b.UploadedDocuments)),
				enabledLabel(b.ChatEnabled),
				cardMuted.Render(b.ID),
			}, "\n")))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func enabledLabel(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

var botShowOutput string

var botShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a chatbot and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(chatbotsPath); err != nil {
			return err
		}
		if err := checkOutput(botShowOutput); err != nil {
			return err
		}

		bot, err := a.Client.GetChatbot(cmd.Context(), args[0])
		if err != nil {
			return friendly(err, "Failed to fetch chatbot")
		}

		out := cmd.OutOrStdout()
		if botShowOutput == outputJSON {
			return printJSON(out, bot)
		}

		fmt.Fprintf(out, "%s (%s)\n\n", bot.CompanyName, bot.ID)
		fmt.Fprintf(out, "  Category:  %s\n", bot.CompanyCategory)
		fmt.Fprintf(out, "  Email:     %s\n", bot.CompanyEmail)
		fmt.Fprintf(out, "  Phone:     %s\n", bot.CompanyPhone)
		fmt.Fprintf(out, "  Address:   %s\n", bot.CompanyAddress)
		fmt.Fprintf(out, "  Chat:      %s\n", enabledLabel(bot.ChatEnabled))
		if !bot.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "  Updated:   %s\n", metrics.TimeAgo(bot.UpdatedAt, time.Now()))
		}
		if bot.Instructions != "" {
			fmt.Fprintf(out, "\nInstructions:\n%s\n", bot.Instructions)
		}

		if len(bot.UploadedDocuments) == 0 {
			fmt.Fprintln(out, "\nNo documents uploaded.")
			return nil
		}
		fmt.Fprintln(out, "\nDocuments:")
		return tablewriter.Render(
			out,
			bot.UploadedDocuments,
			[]string{"Name", "Type", "Size", "Uploaded"},
			func(d api.DocumentMetadata) ([]string, error) {
				uploaded := "-"
				if !d.UploadedAt.IsZero() {
					uploaded = humanize.Time(d.UploadedAt)
				}
				return []string{d.Name, d.Type, metrics.FormatSize(d.Size), uploaded}, nil
			},
		)
	},
}

var (
	botInput    api.ChatbotInput
	botDisabled bool
	botFiles    []string
)

func registerBotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&botInput.CompanyName, "name", "", "company name")
	cmd.Flags().StringVar(&botInput.CompanyEmail, "email", "", "company email")
	cmd.Flags().StringVar(&botInput.CompanyPhone, "phone", "", "company phone")
	cmd.Flags().StringVar(&botInput.CompanyAddress, "address", "", "company address")
	cmd.Flags().StringVar(&botInput.CompanyCategory, "category", "", "company category")
	cmd.Flags().StringVar(&botInput.Instructions, "instructions", "", "instructions for the assistant")
	cmd.Flags().BoolVar(&botDisabled, "disabled", false, "create or leave the chat disabled")
	cmd.Flags().StringSliceVarP(&botFiles, "file", "f", nil, "knowledge document to upload (pdf, doc, docx, txt); repeatable")
}

// addFiles queues every --file on the editor.
func addFiles(cmd *cobra.Command, ed *views.Editor, paths []string) error {
	files := make([]views.PendingFile, 0, len(paths))
	for _, p := range paths {
		f, err := views.FileFromPath(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	rejected, err := ed.AddFiles(files...)
	if rejected > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d file(s): only PDF, DOC, DOCX and TXT are accepted\n", rejected)
	}
	return err
}

func reportSave(cmd *cobra.Command, res views.SaveResult) {
	out := cmd.OutOrStdout()
	verb := "updated"
	if res.Created {
		verb = "created"
	}
	fmt.Fprintf(out, "✓ Chatbot %s (%s)\n", verb, res.Chatbot.ID)
	if res.Uploaded > 0 {
		fmt.Fprintf(out, "✓ %d document(s) uploaded\n", res.Uploaded)
	}
	if res.UploadErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Documents were not uploaded: %s\n", api.Message(res.UploadErr, "upload failed"))
	}
}

var botCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a chatbot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		user, err := a.RequirePath(chatbotsPath)
		if err != nil {
			return err
		}

		ed := views.NewEditor(a.Client, a.Quota, a.Bus, user)
		result, err := ed.Open(cmd.Context(), "")
		if err != nil {
			return friendly(err, "Failed to check chatbot limit")
		}
		if result == views.LimitReached {
			u := ed.Usage()
			return fmt.Errorf("chatbot limit reached (%d/%d): delete a chatbot or ask your administrator for a higher limit", u.Current, u.Limit)
		}

		if err := newPrompter(cmd).fill(
			promptField{"Company name", &botInput.CompanyName},
			promptField{"Company email", &botInput.CompanyEmail},
			promptField{"Company phone", &botInput.CompanyPhone},
			promptField{"Company address", &botInput.CompanyAddress},
			promptField{"Company category", &botInput.CompanyCategory},
			promptField{"Instructions", &botInput.Instructions},
		); err != nil {
			return err
		}
		in := botInput
		in.ChatEnabled = !botDisabled
		ed.SetForm(in)

		if err := addFiles(cmd, ed, botFiles); err != nil {
			return err
		}
		res, err := ed.Save(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to create chatbot")
		}
		reportSave(cmd, res)
		return nil
	},
}

var botUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update a chatbot",
	Long:  "Update a chatbot. Fields left out keep their current values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		user, err := a.RequirePath(chatbotsPath)
		if err != nil {
			return err
		}

		ed := views.NewEditor(a.Client, a.Quota, a.Bus, user)
		if _, err := ed.Open(cmd.Context(), args[0]); err != nil {
			return friendly(err, "Failed to load chatbot")
		}

		form := ed.Form()
		form.CompanyName = pick(botInput.CompanyName, form.CompanyName)
		form.CompanyEmail = pick(botInput.CompanyEmail, form.CompanyEmail)
		form.CompanyPhone = pick(botInput.CompanyPhone, form.CompanyPhone)
		form.CompanyAddress = pick(botInput.CompanyAddress, form.CompanyAddress)
		form.CompanyCategory = pick(botInput.CompanyCategory, form.CompanyCategory)
		form.Instructions = pick(botInput.Instructions, form.Instructions)
		if cmd.Flags().Changed("disabled") {
			form.ChatEnabled = !botDisabled
		}
		ed.SetForm(form)

		if err := addFiles(cmd, ed, botFiles); err != nil {
			return err
		}
		res, err := ed.Save(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to update chatbot")
		}
		reportSave(cmd, res)
		return nil
	},
}

var botUploadCmd = &cobra.Command{
	Use:   "upload [id] [file...]",
	Short: "Upload knowledge documents to a chatbot",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		user, err := a.RequirePath(chatbotsPath)
		if err != nil {
			return err
		}

		ed := views.NewEditor(a.Client, a.Quota, a.Bus, user)
		if _, err := ed.Open(cmd.Context(), args[0]); err != nil {
			return friendly(err, "Failed to load chatbot")
		}
		if err := addFiles(cmd, ed, args[1:]); err != nil {
			return err
		}
		res, err := ed.Save(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to upload documents")
		}
		if res.UploadErr != nil {
			return friendly(res.UploadErr, "Failed to upload documents")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d document(s) uploaded to %s\n", res.Uploaded, res.Chatbot.ID)
		return nil
	},
}

func botToggleCmd(enable bool) *cobra.Command {
	use, short := "disable [id]", "Disable chat for a chatbot"
	if enable {
		use, short = "enable [id]", "Enable chat for a chatbot"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app(cmd)
			if _, err := a.RequirePath(chatbotsPath); err != nil {
				return err
			}

			list := chatbotList(a)
			if err := list.Refresh(cmd.Context()); err != nil {
				return friendly(err, "Failed to fetch chatbots")
			}
			bot, ok := list.Store().Find(args[0])
			if !ok {
				return fmt.Errorf("chatbot %s not found", args[0])
			}
			if bot.ChatEnabled == enable {
				fmt.Fprintf(cmd.OutOrStdout(), "Chatbot %q is already %s\n", bot.CompanyName, strings.ToLower(enabledLabel(enable)))
				return nil
			}

			c, err := list.RequestToggle(bot.ID)
			if err != nil {
				return err
			}
			return runConfirmation(cmd, c)
		},
	}
	cmd.Flags().BoolVarP(&toggleYes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

var botDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a chatbot and its documents",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(chatbotsPath); err != nil {
			return err
		}

		list := chatbotList(a)
		if err := list.Refresh(cmd.Context()); err != nil {
			return friendly(err, "Failed to fetch chatbots")
		}
		c, err := list.RequestDelete(args[0])
		if err != nil {
			return fmt.Errorf("chatbot %s not found", args[0])
		}
		return runConfirmation(cmd, c)
	},
}

var botEmbedReact bool

var botEmbedCmd = &cobra.Command{
	Use:   "embed [id]",
	Short: "Print the snippet that embeds a chatbot on a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(chatbotsPath); err != nil {
			return err
		}

		bot, err := a.Client.GetChatbot(cmd.Context(), args[0])
		if err != nil {
			return friendly(err, "Failed to fetch chatbot")
		}

		base := a.Client.BaseURL()
		out := cmd.OutOrStdout()
		if botEmbedReact {
			fmt.Fprintln(out, utils.EmbedReact(base, bot.ID, time.Now()))
		} else {
			fmt.Fprintln(out, utils.EmbedScript(base, bot.ID, bot.CompanyName, time.Now()))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\nPreview: %s\n", utils.PreviewURL(base, bot.ID))
		return nil
	},
}

var botUsageOutput string

var botUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show how many chatbots you can still create",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		user, err := a.RequirePath(chatbotsPath)
		if err != nil {
			return err
		}
		if err := checkOutput(botUsageOutput); err != nil {
			return err
		}

		u, err := a.Quota.Usage(cmd.Context(), user)
		if err != nil {
			return friendly(err, "Failed to fetch chatbot usage")
		}

		out := cmd.OutOrStdout()
		if botUsageOutput == outputJSON {
			return printJSON(out, struct {
				Current int  `json:"current"`
				Limit   int  `json:"limit"`
				Percent int  `json:"percent"`
				Reached bool `json:"reached"`
			}{u.Current, u.Limit, u.Percent(), u.Reached()})
		}

		fmt.Fprintf(out, "Chatbots: %d / %d (%d%%)\n%s\n", u.Current, u.Limit, u.Percent(), usageBar(u.BarPercent(), 30))
		if u.Reached() {
			fmt.Fprintln(out, "Limit reached: delete a chatbot or ask your administrator for a higher limit.")
		}
		return nil
	},
}

var (
	barFull  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func usageBar(percent, width int) string {
	filled := percent * width / 100
	return barFull.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}

var botViewModeCmd = &cobra.Command{
	Use:       "view-mode [grid|table]",
	Short:     "Show or set how bot list lays out chatbots",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(views.ViewGrid), string(views.ViewTable)},
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		list := chatbotList(a)
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), list.ViewMode(cmd.Context()))
			return nil
		}

		mode, err := views.ParseViewMode(args[0])
		if err != nil {
			return err
		}
		if err := list.SetViewMode(cmd.Context(), mode); err != nil {
			return fmt.Errorf("save view mode: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ View mode set to %s\n", mode)
		return nil
	},
}

var botBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse chatbots interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(chatbotsPath); err != nil {
			return err
		}
		ctx, stop := a.WatchSession(cmd.Context())
		defer stop()

		return runInteractive(ctx, tui.NewChatbotModel(ctx, chatbotList(a)))
	},
}

func init() {
	botListFlags.register(botListCmd)
	botListCmd.Flags().StringVar(&botListView, "view", "", "layout: grid or table (default: saved view mode)")
	botShowCmd.Flags().StringVarP(&botShowOutput, "output", "o", outputTable, "output format: table or json")
	botUsageCmd.Flags().StringVarP(&botUsageOutput, "output", "o", outputTable, "output format: table or json")
	botEmbedCmd.Flags().BoolVar(&botEmbedReact, "react", false, "print a React component instead of a script tag")
	botDeleteCmd.Flags().BoolVarP(&toggleYes, "yes", "y", false, "skip confirmation prompt")
	registerBotFlags(botCreateCmd)
	registerBotFlags(botUpdateCmd)

	botCmd.AddCommand(
		botListCmd,
		botShowCmd,
		botCreateCmd,
		botUpdateCmd,
		botUploadCmd,
		botToggleCmd(true),
		botToggleCmd(false),
		botDeleteCmd,
		botEmbedCmd,
		botUsageCmd,
		botViewModeCmd,
		botBrowseCmd,
	)
	rootCmd.AddCommand(botCmd)
}
