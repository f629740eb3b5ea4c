package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"admin-dashboard/internal/models"
	"admin-dashboard/internal/resource"
	"admin-dashboard/internal/services"
)

// controllerFactory builds the manager of one resource on top of the
// configured upstream clients.
type controllerFactory func(sc *services.ServiceClient, opts ...resource.Option) resource.Controller

func newUsersCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, models.UserSchema, func(sc *services.ServiceClient, o ...resource.Option) resource.Controller {
		return resource.NewManager[models.User](models.UserSchema, sc.Users, o...)
	})
}

func newProductsCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, models.ProductSchema, func(sc *services.ServiceClient, o ...resource.Option) resource.Controller {
		return resource.NewManager[models.Product](models.ProductSchema, sc.Products, o...)
	})
}

// resourceCmd runs one terminal command against a freshly built manager.
type resourceCmd struct {
	opts    *rootOptions
	schema  models.Schema
	factory controllerFactory
}

func newResourceCmd(opts *rootOptions, schema models.Schema, factory controllerFactory) *cobra.Command {
	rc := &resourceCmd{opts: opts, schema: schema, factory: factory}

	cmd := &cobra.Command{
		Use:   schema.Name,
		Short: fmt.Sprintf("Manage %s", schema.Name),
	}
	cmd.AddCommand(rc.listCmd(), rc.addCmd(), rc.editCmd(), rc.deleteCmd())
	return cmd
}

func (rc *resourceCmd) run(cmd *cobra.Command, fn func(ctx context.Context, ctl resource.Controller) error) error {
	cfg, logger, err := rc.opts.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	publisher, err := openPublisher(ctx, cfg, logger, 1)
	if err != nil {
		return err
	}
	defer publisher.Close()

	ctl := rc.factory(services.NewServiceClient(cfg),
		resource.WithNotifier(printer(cmd.OutOrStdout(), cmd.ErrOrStderr())),
		resource.WithPublisher(publisher),
		resource.WithLogger(logger),
	)
	return fn(ctx, ctl)
}

func (rc *resourceCmd) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List %s", rc.schema.Name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(cmd, func(ctx context.Context, ctl resource.Controller) error {
				if err := ctl.Mount(ctx); err != nil {
					return reportedError{err}
				}
				printTable(cmd.OutOrStdout(), ctl.View())
				return nil
			})
		},
	}
}

func (rc *resourceCmd) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Create a %s", rc.schema.Singular),
		Long: fmt.Sprintf(`Create a %s.

Without field flags an interactive form asks for every field.`, rc.schema.Singular),
		Args: cobra.NoArgs,
	}
	values := rc.fieldFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rc.run(cmd, func(ctx context.Context, ctl resource.Controller) error {
			fields, err := rc.collect(cmd, values, rc.schema.Empty())
			if err != nil {
				return err
			}
			ctl.SetForm(fields)
			if err := ctl.Submit(ctx); err != nil {
				return reportedError{err}
			}
			return nil
		})
	}
	return cmd
}

func (rc *resourceCmd) editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: fmt.Sprintf("Update a %s", rc.schema.Singular),
		Long: fmt.Sprintf(`Update a %s.

Fields without a flag keep their current value. Without any field flag an
interactive form is shown, pre-filled with the current values.`, rc.schema.Singular),
		Args: cobra.ExactArgs(1),
	}
	values := rc.fieldFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rc.run(cmd, func(ctx context.Context, ctl resource.Controller) error {
			if err := ctl.Mount(ctx); err != nil {
				return reportedError{err}
			}
			if err := ctl.Edit(args[0]); err != nil {
				return err
			}
			fields, err := rc.collect(cmd, values, ctl.View().Form)
			if err != nil {
				return err
			}
			ctl.SetForm(fields)
			if err := ctl.Submit(ctx); err != nil {
				return reportedError{err}
			}
			return nil
		})
	}
	return cmd
}

func (rc *resourceCmd) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete a %s", rc.schema.Singular),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(cmd, func(ctx context.Context, ctl resource.Controller) error {
				if err := ctl.Mount(ctx); err != nil {
					return reportedError{err}
				}
				if err := ctl.RequestDelete(args[0]); err != nil {
					return err
				}

				if !yes {
					confirmed := false
					err := huh.NewConfirm().
						Title(fmt.Sprintf("Are you sure you want to delete this %s? (%s)", rc.schema.Singular, args[0])).
						Affirmative("Delete").
						Negative("Keep").
						Value(&confirmed).
						Run()
					if err != nil {
						return err
					}
					if !confirmed {
						ctl.DeclineDelete()
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted")
						return nil
					}
				}

				if err := ctl.ConfirmDelete(ctx); err != nil {
					return reportedError{err}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

// fieldFlags registers one string flag per schema field.
func (rc *resourceCmd) fieldFlags(cmd *cobra.Command) map[string]*string {
	values := make(map[string]*string, len(rc.schema.Fields))
	for _, f := range rc.schema.Fields {
		values[f.Name] = cmd.Flags().String(f.Name, "", f.Label)
	}
	return values
}

// collect overlays the changed field flags on current. When no field flag
// was given the operator fills in the form interactively.
func (rc *resourceCmd) collect(cmd *cobra.Command, values map[string]*string, current models.Fields) (models.Fields, error) {
	fields := current.Clone()
	changed := false
	for _, f := range rc.schema.Fields {
		if cmd.Flags().Changed(f.Name) {
			fields[f.Name] = *values[f.Name]
			changed = true
		}
	}
	if changed {
		return fields, nil
	}
	return rc.prompt(fields)
}

func (rc *resourceCmd) prompt(fields models.Fields) (models.Fields, error) {
	answers := make([]string, len(rc.schema.Fields))
	inputs := make([]huh.Field, 0, len(rc.schema.Fields))
	for i, f := range rc.schema.Fields {
		answers[i] = fields[f.Name]
		inputs = append(inputs, huh.NewInput().
			Title(f.Label).
			Value(&answers[i]).
			Validate(func(s string) error {
				return rc.schema.ValidateField(f, s)
			}))
	}

	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return nil, err
	}

	out := fields.Clone()
	for i, f := range rc.schema.Fields {
		out[f.Name] = answers[i]
	}
	return out, nil
}

func printer(out, errOut io.Writer) resource.Notifier {
	return resource.NotifierFunc(func(n resource.Notification) {
		switch n.Level {
		case resource.LevelError, resource.LevelWarning:
			fmt.Fprintln(errOut, n.Message)
		default:
			fmt.Fprintln(out, n.Message)
		}
	})
}

func printTable(out io.Writer, v resource.View) {
	if v.Empty() {
		fmt.Fprintf(out, "No %s registered\n", v.Schema.Name)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, f := range v.Schema.Fields {
		header = append(header, strings.ToUpper(f.Label))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range v.Rows {
		fmt.Fprintln(w, row.ID+"\t"+strings.Join(row.Cells, "\t"))
	}
	_ = w.Flush()
}
