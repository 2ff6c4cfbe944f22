// Package metrics computes the dashboard figures and tracks API traffic.
package metrics

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/botdesk/botdesk/internal/client/api"
)

// RecentCount is how many chatbots the dashboard lists as recent.
const RecentCount = 5

// Stats is the user dashboard summary.
type Stats struct {
	TotalChatbots   int           `json:"totalChatbots"`
	EnabledChatbots int           `json:"enabledChatbots"`
	TotalDocuments  int           `json:"totalDocuments"`
	ChatbotsLimit   int           `json:"chatbotsLimit"`
	Recent          []api.Chatbot `json:"recentChatbots"`
}

// Compute summarizes chatbots in backend order. Recent holds the first five.
func Compute(chatbots []api.Chatbot, limit int) Stats {
	s := Stats{TotalChatbots: len(chatbots), ChatbotsLimit: limit}
	for _, b := range chatbots {
		if b.ChatEnabled {
			s.EnabledChatbots++
		}
		s.TotalDocuments += len(b.UploadedDocuments)
	}
	s.Recent = chatbots[:min(len(chatbots), RecentCount)]
	return s
}

// OrganizationStats is the admin dashboard summary.
type OrganizationStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// ComputeOrganizations counts organizations by status.
func ComputeOrganizations(orgs []api.Organization) OrganizationStats {
	s := OrganizationStats{Total: len(orgs)}
	for _, o := range orgs {
		if o.Active {
			s.Active++
		}
	}
	s.Inactive = s.Total - s.Active
	return s
}

// TimeAgo renders the age of t in whole days, hours or minutes.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d >= 24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return "Just now"
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// FormatSize renders a document size in IEC units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
