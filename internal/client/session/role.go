package session

import (
	"strings"

	"github.com/botdesk/botdesk/internal/client/api"
)

// Role is the closed set of account kinds.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// RoleOf derives the role from either the role or the userType field.
func RoleOf(u api.User) Role {
	if u.IsAdmin() {
		return RoleAdmin
	}
	return RoleUser
}

// NavItem is one entry of the dashboard navigation.
type NavItem struct {
	Title   string
	Path    string
	Command string // CLI equivalent
}

// Team is the heading shown above the navigation.
type Team struct {
	Name     string
	Subtitle string
}

// Navigation is what a role is allowed to reach.
type Navigation struct {
	Team     Team
	Sections []NavItem
	Settings []NavItem
}

// NavigationFor returns the navigation for role.
func NavigationFor(role Role) Navigation {
	if role == RoleAdmin {
		return Navigation{
			Team: Team{Name: "System Admin", Subtitle: "Administrator"},
			Sections: []NavItem{
				{Title: "Dashboard", Path: "/dashboard", Command: "botdesk dashboard"},
				{Title: "Organizations", Path: "/dashboard/organizations", Command: "botdesk org list"},
			},
			Settings: []NavItem{
				{Title: "Email Configuration", Path: "/dashboard/settings/email-configuration", Command: "botdesk settings email get"},
			},
		}
	}
	return Navigation{
		Team: Team{Name: "User Dashboard", Subtitle: "User Dashboard"},
		Sections: []NavItem{
			{Title: "Dashboard", Path: "/dashboard", Command: "botdesk dashboard"},
			{Title: "Chat Bot", Path: "/chat-bot", Command: "botdesk bot list"},
		},
		Settings: []NavItem{
			{Title: "General", Path: "/settings/general", Command: "botdesk settings general"},
		},
	}
}

// Allows reports whether role may open path.
func (n Navigation) Allows(path string) bool {
	for _, items := range [][]NavItem{n.Sections, n.Settings} {
		for _, it := range items {
			// /dashboard only matches exactly, every other entry owns its subtree.
			if path == it.Path || (it.Path != "/dashboard" && strings.HasPrefix(path, it.Path+"/")) {
				return true
			}
		}
	}
	return false
}
