// Package views binds the collection engine to the organization and chatbot
// endpoints and runs the chatbot editor flow.
package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
	"github.com/botdesk/botdesk/internal/client/dashboard/events"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/logger"
	"github.com/botdesk/botdesk/pkg/utils"
)

// DefaultListLimit is the page size requested from the organization endpoint.
const DefaultListLimit = 100

// OrganizationBackend is the part of the API the organization list needs.
type OrganizationBackend interface {
	ListOrganizations(ctx context.Context, opts api.ListOptions) ([]api.Organization, error)
	CreateOrganization(ctx context.Context, in api.OrganizationInput) (*api.Organization, error)
	UpdateOrganization(ctx context.Context, id string, in api.OrganizationInput) error
	SetOrganizationActive(ctx context.Context, id string, active bool) error
}

// OrganizationList is the admin organization table.
type OrganizationList struct {
	store   *collection.Store[api.Organization]
	backend OrganizationBackend
	bus     *events.Bus
	limit   int
	log     zerolog.Logger
}

// NewOrganizationList creates an empty list. bus may be nil.
func NewOrganizationList(backend OrganizationBackend, bus *events.Bus, limit int, opts ...collection.Option) *OrganizationList {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts = append([]collection.Option{collection.WithName("organizations")}, opts...)
	return &OrganizationList{
		store:   collection.NewStore[api.Organization](opts...),
		backend: backend,
		bus:     bus,
		limit:   limit,
		log:     logger.WithComponent("organizations"),
	}
}

// Store exposes the underlying collection for search, filter and paging.
func (l *OrganizationList) Store() *collection.Store[api.Organization] {
	return l.store
}

// Refresh refetches every organization.
func (l *OrganizationList) Refresh(ctx context.Context) error {
	return l.store.Load(ctx, l.fetch)
}

func (l *OrganizationList) fetch(ctx context.Context) ([]api.Organization, error) {
	return l.backend.ListOrganizations(ctx, api.ListOptions{Limit: l.limit})
}

// Create validates in, creates the organization and refetches the list.
func (l *OrganizationList) Create(ctx context.Context, in api.OrganizationInput) (*api.Organization, error) {
	if err := validateOrganization(in); err != nil {
		return nil, err
	}

	var created *api.Organization
	err := l.store.Create(ctx, func(ctx context.Context) error {
		org, err := l.backend.CreateOrganization(ctx, in)
		created = org
		return err
	}, l.fetch)
	if created == nil {
		return nil, err
	}

	l.log.Info().Str("organization_id", created.ID).Msg("Organization created")
	l.publish(created.ID)
	// A failed refetch leaves the list stale but the organization exists.
	return created, err
}

// Update validates in, saves it and merges it into the stored row.
func (l *OrganizationList) Update(ctx context.Context, id string, in api.OrganizationInput) error {
	if err := validateOrganization(in); err != nil {
		return err
	}

	err := l.store.Update(ctx, id, func(ctx context.Context) error {
		return l.backend.UpdateOrganization(ctx, id, in)
	}, func(o api.Organization) api.Organization {
		o.Name = in.Name
		o.ContactPerson = in.ContactPerson
		o.Email = in.Email
		o.Phone = in.Phone
		o.Address = in.Address
		return o
	})
	if err != nil {
		return err
	}
	l.publish(id)
	return nil
}

// RequestToggle prepares enabling or disabling id behind a confirmation.
func (l *OrganizationList) RequestToggle(id string) (*collection.Confirmation, error) {
	org, ok := l.store.Find(id)
	if !ok {
		return nil, fmt.Errorf("toggle organization %s: %w", id, apperrors.ErrNotFound)
	}
	return l.store.RequestToggle(id, org.Name, "Organization", func(ctx context.Context, enable bool) error {
		if err := l.backend.SetOrganizationActive(ctx, id, enable); err != nil {
			return err
		}
		l.publish(id)
		return nil
	}, func(o api.Organization, active bool) api.Organization {
		o.Active = active
		return o
	})
}

// FindByEmail returns the loaded organization whose contact email matches,
// ignoring case.
func (l *OrganizationList) FindByEmail(email string) (api.Organization, bool) {
	return matchEmail(l.store.Items(), email)
}

func (l *OrganizationList) publish(id string) {
	if l.bus != nil {
		l.bus.Emit(events.EventOrganizationChanged, events.OrganizationEvent{OrganizationID: id})
	}
}

func matchEmail(orgs []api.Organization, email string) (api.Organization, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return api.Organization{}, false
	}
	for _, o := range orgs {
		if strings.ToLower(o.Email) == email {
			return o, true
		}
	}
	return api.Organization{}, false
}

func validateOrganization(in api.OrganizationInput) error {
	return utils.ValidateOrganizationInput(utils.OrganizationInput{
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
	})
}
