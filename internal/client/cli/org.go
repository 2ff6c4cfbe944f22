package cli

import (
	"fmt"
	"io"

	"github.com/caarlos0/tablewriter"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/collection"
	"github.com/botdesk/botdesk/internal/client/dashboard/views"
	"github.com/botdesk/botdesk/internal/client/tui"
	"github.com/botdesk/botdesk/pkg/logger"
	"github.com/botdesk/botdesk/pkg/utils"
)

const organizationsPath = "/dashboard/organizations"

var orgCmd = &cobra.Command{
	Use:     "org",
	Aliases: []string{"organization", "organizations"},
	Short:   "Manage organizations (admin)",
}

// listFlags are shared by org list and bot list.
type listFlags struct {
	search   string
	status   string
	page     int
	pageSize int
	output   string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search text")
	cmd.Flags().StringVar(&f.status, "status", "all", "status filter: all, active or inactive")
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page: 5, 10, 20 or 50 (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputTable, "output format: table or json")
}

// apply narrows store to the requested page.
func applyListFlags[T collection.Item](store *collection.Store[T], f listFlags) (collection.View[T], error) {
	status, err := collection.ParseStatusFilter(f.status)
	if err != nil {
		return collection.View[T]{}, err
	}
	if err := checkOutput(f.output); err != nil {
		return collection.View[T]{}, err
	}
	if f.pageSize != 0 && !collection.ValidPageSize(f.pageSize) {
		return collection.View[T]{}, fmt.Errorf("invalid page size %d (want one of %v)", f.pageSize, collection.PageSizes)
	}

	store.SetSearch(f.search)
	store.SetStatus(status)
	if f.pageSize != 0 {
		store.SetPageSize(f.pageSize)
	}
	store.SetPage(f.page)
	return store.View(), nil
}

func printPageFooter[T collection.Item](w io.Writer, v collection.View[T], noun string) {
	fmt.Fprintf(w, "\nPage %d of %d · %d %s", v.Page, v.TotalPages, v.TotalCount, noun)
	if v.TotalCount != v.Total {
		fmt.Fprintf(w, " (filtered from %d)", v.Total)
	}
	fmt.Fprintln(w)
}

var orgListFlags listFlags

var orgListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List organizations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(organizationsPath); err != nil {
			return err
		}

		list := views.NewOrganizationList(a.Client, a.Bus, a.Config.API.ListLimit, a.StoreOptions()...)
		if err := list.Refresh(cmd.Context()); err != nil {
			return friendly(err, "Failed to fetch organizations")
		}
		v, err := applyListFlags(list.Store(), orgListFlags)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if orgListFlags.output == outputJSON {
			return printJSON(out, v.Items)
		}
		if len(v.Items) == 0 {
			fmt.Fprintln(out, "No organizations found")
			return nil
		}
		if err := renderOrganizations(out, v.Items); err != nil {
			return err
		}
		printPageFooter(out, v, "organizations")
		return nil
	},
}

func renderOrganizations(w io.Writer, orgs []api.Organization) error {
	return tablewriter.Render(
		w,
		orgs,
		[]string{"ID", "Org ID", "Name", "Contact", "Email", "Phone", "Status", "Created"},
		func(o api.Organization) ([]string, error) {
			created := "-"
			if !o.CreatedAt.IsZero() {
				created = humanize.Time(o.CreatedAt)
			}
			return []string{o.ID, o.OrganizationID, o.Name, o.ContactPerson, o.Email, o.Phone, activeLabel(o.Active), created}, nil
		},
	)
}

var orgInput api.OrganizationInput

func registerOrgFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&orgInput.Name, "name", "", "organization name")
	cmd.Flags().StringVar(&orgInput.ContactPerson, "contact", "", "contact person")
	cmd.Flags().StringVar(&orgInput.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&orgInput.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&orgInput.Address, "address", "", "address")
}

func promptOrganization(cmd *cobra.Command) error {
	return newPrompter(cmd).fill(
		promptField{"Organization name", &orgInput.Name},
		promptField{"Contact person", &orgInput.ContactPerson},
		promptField{"Email", &orgInput.Email},
		promptField{"Phone", &orgInput.Phone},
		promptField{"Address", &orgInput.Address},
	)
}

var orgCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an organization",
	Long:  "Create an organization. The backend emails the contact person their credentials.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(organizationsPath); err != nil {
			return err
		}
		if err := promptOrganization(cmd); err != nil {
			return err
		}

		list := views.NewOrganizationList(a.Client, a.Bus, a.Config.API.ListLimit)
		org, err := list.Create(cmd.Context(), orgInput)
		if org == nil {
			return friendly(err, "Failed to create organization")
		}
		if err != nil {
			logger.WarnEvent().Err(err).Msg("Organization created but the list could not be refreshed")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Organization %q created (%s)\n", org.Name, org.ID)
		return nil
	},
}

var orgUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update an organization",
	Long:  "Update an organization. Fields left out keep their current values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(organizationsPath); err != nil {
			return err
		}

		list := views.NewOrganizationList(a.Client, a.Bus, a.Config.API.ListLimit)
		if err := list.Refresh(cmd.Context()); err != nil {
			return friendly(err, "Failed to fetch organizations")
		}
		current, ok := list.Store().Find(args[0])
		if !ok {
			return fmt.Errorf("organization %s not found", args[0])
		}

		in := api.OrganizationInput{
			Name:          pick(orgInput.Name, current.Name),
			ContactPerson: pick(orgInput.ContactPerson, current.ContactPerson),
			Email:         pick(orgInput.Email, current.Email),
			Phone:         pick(orgInput.Phone, current.Phone),
			Address:       pick(orgInput.Address, current.Address),
		}
		if err := list.Update(cmd.Context(), current.ID, in); err != nil {
			return friendly(err, "Failed to update organization")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Organization %q updated\n", in.Name)
		return nil
	},
}

var toggleYes bool

func orgToggleCmd(enable bool) *cobra.Command {
	use, short := "disable [id]", "Disable an organization"
	if enable {
		use, short = "enable [id]", "Enable an organization"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app(cmd)
			if _, err := a.RequirePath(organizationsPath); err != nil {
				return err
			}

			list := views.NewOrganizationList(a.Client, a.Bus, a.Config.API.ListLimit)
			if err := list.Refresh(cmd.Context()); err != nil {
				return friendly(err, "Failed to fetch organizations")
			}
			org, ok := list.Store().Find(args[0])
			if !ok {
				return fmt.Errorf("organization %s not found", args[0])
			}
			if org.Active == enable {
				fmt.Fprintf(cmd.OutOrStdout(), "Organization %q is already %s\n", org.Name, activeLabel(enable))
				return nil
			}

			c, err := list.RequestToggle(org.ID)
			if err != nil {
				return err
			}
			return runConfirmation(cmd, c)
		},
	}
}

// runConfirmation asks the confirmation's question unless --yes was given.
func runConfirmation(cmd *cobra.Command, c *collection.Confirmation) error {
	if !toggleYes && !newPrompter(cmd).confirm(c.Prompt) {
		c.Cancel()
		fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
		return nil
	}
	if err := c.Accept(cmd.Context()); err != nil {
		return friendly(err, c.Action+" failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s completed\n", c.Title)
	return nil
}

var orgBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse organizations interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(organizationsPath); err != nil {
			return err
		}
		ctx, stop := a.WatchSession(cmd.Context())
		defer stop()

		list := views.NewOrganizationList(a.Client, a.Bus, a.Config.API.ListLimit, a.StoreOptions()...)
		return runInteractive(ctx, tui.NewOrganizationModel(ctx, list))
	},
}

var registerOrgCmd = &cobra.Command{
	Use:   "register-org",
	Short: "Register your organization",
	Long:  "Submit an organization signup. An administrator reviews it before it is activated.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := promptOrganization(cmd); err != nil {
			return err
		}
		if err := utils.ValidateOrganizationInput(utils.OrganizationInput{
			Name:          orgInput.Name,
			ContactPerson: orgInput.ContactPerson,
			Email:         orgInput.Email,
			Phone:         orgInput.Phone,
			Address:       orgInput.Address,
		}); err != nil {
			return friendly(err, "Invalid organization")
		}

		msg, err := app(cmd).Client.RegisterOrganization(cmd.Context(), orgInput)
		if err != nil {
			return friendly(err, "Failed to register organization")
		}
		printMessage(cmd.OutOrStdout(), msg, "Organization registered. You will hear from us by email.")
		return nil
	},
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func init() {
	orgListFlags.register(orgListCmd)
	registerOrgFlags(orgCreateCmd)
	registerOrgFlags(orgUpdateCmd)
	registerOrgFlags(registerOrgCmd)

	enable, disable := orgToggleCmd(true), orgToggleCmd(false)
	for _, c := range []*cobra.Command{enable, disable} {
		c.Flags().BoolVarP(&toggleYes, "yes", "y", false, "skip confirmation prompt")
	}

	orgCmd.AddCommand(orgListCmd, orgCreateCmd, orgUpdateCmd, enable, disable, orgBrowseCmd)
	rootCmd.AddCommand(orgCmd)
	authCmd.AddCommand(registerOrgCmd)
}
