package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

const organizationBase = "/api/dashboard/admin/organization"

// ListOptions bounds a list call.
type ListOptions struct {
	Limit int `url:"limit,omitempty"`
}

// ListOrganizations fetches every organization, up to opts.Limit.
func (c *Client) ListOrganizations(ctx context.Context, opts ListOptions) ([]Organization, error) {
	var out []Organization
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   organizationBase + "/getorganization",
		query:  opts,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrganization fetches one organization by its record id.
func (c *Client) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var out Organization
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   organizationBase + "/getorganizationbyid/" + url.PathEscape(id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OrganizationLimit looks up only the chatbot limit of an organization. found
// is false when the backend answered 2xx without a usable limit, including an
// explicit success=false. err is set only for transport and non-2xx failures.
func (c *Client) OrganizationLimit(ctx context.Context, id string) (limit int, found bool, err error) {
	var out struct {
		ChatbotsLimit *int `json:"chatbotsLimit"`
	}
	_, err = c.do(ctx, request{
		method: http.MethodGet,
		path:   organizationBase + "/getorganizationbyid/" + url.PathEscape(id),
		out:    &out,
	})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 200 && apiErr.StatusCode < 300 {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if out.ChatbotsLimit == nil || *out.ChatbotsLimit <= 0 {
		return 0, false, nil
	}
	return *out.ChatbotsLimit, true, nil
}

// CreateOrganization creates an organization. The backend emails its contact.
func (c *Client) CreateOrganization(ctx context.Context, in OrganizationInput) (*Organization, error) {
	var out Organization
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   organizationBase + "/postorganization",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterOrganization is the public self-service organization signup.
func (c *Client) RegisterOrganization(ctx context.Context, in OrganizationInput) (string, error) {
	return c.message(ctx, http.MethodPost, organizationBase+"/register", in)
}

// UpdateOrganization replaces the editable fields of an organization.
func (c *Client) UpdateOrganization(ctx context.Context, id string, in OrganizationInput) error {
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   organizationBase + "/putorganization/" + url.PathEscape(id),
		body:   in,
	})
	return err
}

// SetOrganizationActive enables or disables an organization.
func (c *Client) SetOrganizationActive(ctx context.Context, id string, active bool) error {
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   organizationBase + "/putorganization/" + url.PathEscape(id),
		body:   map[string]bool{"isActive": active},
	})
	return err
}
