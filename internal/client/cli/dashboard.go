package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/metrics"
	"github.com/botdesk/botdesk/internal/client/quota"
	"github.com/botdesk/botdesk/internal/client/session"
	"github.com/botdesk/botdesk/pkg/logger"
)

var (
	dashboardOutput string
	dashboardWatch  bool
	dashboardCalls  bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show account statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		user, err := a.RequirePath("/dashboard")
		if err != nil {
			return err
		}
		if err := checkOutput(dashboardOutput); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if session.RoleOf(user) == session.RoleAdmin {
			err = adminDashboard(cmd, a, out)
		} else {
			err = userDashboard(cmd, a, user, out)
		}
		if err != nil {
			return err
		}

		if dashboardCalls {
			printCalls(out, a.Calls.Snapshot())
		}
		if dashboardWatch && dashboardOutput == outputTable && session.RoleOf(user) != session.RoleAdmin {
			return watchUsage(cmd, a, out)
		}
		return nil
	},
}

func adminDashboard(cmd *cobra.Command, a *App, out io.Writer) error {
	orgs, err := a.Client.ListOrganizations(cmd.Context(), api.ListOptions{Limit: a.Config.API.ListLimit})
	if err != nil {
		return friendly(err, "Failed to fetch organizations")
	}
	stats := metrics.ComputeOrganizations(orgs)

	if dashboardOutput == outputJSON {
		return printJSON(out, stats)
	}
	fmt.Fprintln(out, "Organizations")
	fmt.Fprintf(out, "  Total:     %d\n", stats.Total)
	fmt.Fprintf(out, "  Active:    %d\n", stats.Active)
	fmt.Fprintf(out, "  Inactive:  %d\n", stats.Inactive)

	recent := append([]api.Organization(nil), orgs...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	recent = recent[:min(len(recent), metrics.RecentCount)]
	if len(recent) > 0 {
		fmt.Fprintln(out, "\nRecently added")
		now := time.Now()
		for _, o := range recent {
			fmt.Fprintf(out, "  %-30s %-10s %s\n", o.Name, activeLabel(o.Active), metrics.TimeAgo(o.CreatedAt, now))
		}
	}
	return nil
}

func userDashboard(cmd *cobra.Command, a *App, user api.User, out io.Writer) error {
	ctx := cmd.Context()
	bots, err := a.Client.ListChatbots(ctx)
	if err != nil {
		return friendly(err, "Failed to fetch chatbots")
	}
	stats := metrics.Compute(bots, a.Quota.Limit(ctx, user))

	if dashboardOutput == outputJSON {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Welcome back, %s\n\n", displayName(user))
	fmt.Fprintf(out, "  Chatbots:   %d / %d\n", stats.TotalChatbots, stats.ChatbotsLimit)
	fmt.Fprintf(out, "  Enabled:    %d\n", stats.EnabledChatbots)
	fmt.Fprintf(out, "  Documents:  %d\n", stats.TotalDocuments)

	u := quota.Usage{Current: stats.TotalChatbots, Limit: stats.ChatbotsLimit}
	fmt.Fprintf(out, "\n%s %d%%\n", usageBar(u.BarPercent(), 30), u.Percent())

	if len(stats.Recent) == 0 {
		fmt.Fprintln(out, "\nNo chatbots yet. Create one with: botdesk bot create")
		return nil
	}
	fmt.Fprintln(out, "\nRecent chatbots")
	now := time.Now()
	for _, b := range stats.Recent {
		when := "-"
		if !b.UpdatedAt.IsZero() {
			when = metrics.TimeAgo(b.UpdatedAt, now)
		}
		fmt.Fprintf(out, "  %-30s %-9s %2d docs  %s\n", b.CompanyName, enabledLabel(b.ChatEnabled), len(b.UploadedDocuments), when)
	}
	return nil
}

// watchUsage prints a usage line whenever it changes, until interrupted or
// signed out.
func watchUsage(cmd *cobra.Command, a *App, out io.Writer) error {
	ctx, stop := a.WatchSession(cmd.Context())
	defer stop()

	w := quota.NewUsageWatcher(a.Quota, a.Bus, a.Session.Current, a.Config.Auth.UsageInterval)
	var (
		mu   sync.Mutex
		last *quota.Usage
	)
	w.OnChange(func(u quota.Usage) {
		mu.Lock()
		defer mu.Unlock()
		if last != nil && *last == u {
			return
		}
		last = &u
		fmt.Fprintf(out, "%s  %s %d/%d (%d%%)\n", time.Now().Format("15:04:05"), usageBar(u.BarPercent(), 20), u.Current, u.Limit, u.Percent())
	})

	fmt.Fprintln(out, "\nWatching chatbot usage (Ctrl+C to stop)")
	if err := w.Start(ctx); err != nil {
		logger.WarnEvent().Err(err).Msg("Usage refresh failed")
	}
	defer w.Stop()

	<-ctx.Done()
	return nil
}

func printCalls(out io.Writer, s metrics.CallSnapshot) {
	fmt.Fprintln(out, "\nAPI calls this run")
	fmt.Fprintf(out, "  Total:     %d (%d failed, %d timed out)\n", s.TotalCalls, s.FailedCalls, s.TimedOut)
	fmt.Fprintf(out, "  Latency:   avg %.1fms  p50 %.1fms  p95 %.1fms  max %.1fms\n", s.AvgLatencyMS, s.P50LatencyMS, s.P95LatencyMS, s.MaxLatencyMS)

	codes := make([]int, 0, len(s.ByStatus))
	for code := range s.ByStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "no response"
		}
		fmt.Fprintf(out, "  %-12s %d\n", label, s.ByStatus[code])
	}
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashboardOutput, "output", "o", outputTable, "output format: table or json")
	dashboardCmd.Flags().BoolVarP(&dashboardWatch, "watch", "w", false, "keep watching chatbot usage")
	dashboardCmd.Flags().BoolVar(&dashboardCalls, "calls", false, "print API call statistics for this run")
	rootCmd.AddCommand(dashboardCmd)
}
