package views

import (
	"context"
	"fmt"

	"github.com/botdesk/botdesk/internal/client/api"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// OrganizationLookup is the part of the API the general settings page needs.
type OrganizationLookup interface {
	GetOrganization(ctx context.Context, id string) (*api.Organization, error)
	ListOrganizations(ctx context.Context, opts api.ListOptions) ([]api.Organization, error)
}

// OrganizationOf finds the organization shown on the general settings page.
// A user with an organization id gets that record; otherwise the first
// organization whose contact email matches the user's email is used.
// ErrNotFound means the account is an individual one.
func OrganizationOf(ctx context.Context, backend OrganizationLookup, user api.User) (*api.Organization, error) {
	if user.OrganizationID != "" {
		org, err := backend.GetOrganization(ctx, user.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("get organization %s: %w", user.OrganizationID, err)
		}
		return org, nil
	}

	orgs, err := backend.ListOrganizations(ctx, api.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	org, ok := matchEmail(orgs, user.Email)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &org, nil
}
