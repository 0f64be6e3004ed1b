// Package boxcmd implements the `shelf box` command group.
package boxcmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/models"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf box`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the box command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "box",
		Short: "Manage the boxes on a shelf",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	c.cmd.AddCommand(
		newAdd(ctx),
		newSetup(ctx),
		newStatus(ctx),
		newRemove(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// ---------------------------------------------------------------------------
// box add
// ---------------------------------------------------------------------------

func newAdd(ctx *shared.Context) *cobra.Command {
	var boxType string
	cmd := &cobra.Command{
		Use:   "add <shelf> <name>",
		Short: "Add a box to a shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			shelf, name := args[0], args[1]
			if err := svc.CreateBox(shelf, name, models.BoxType(boxType)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %s box %q to shelf %q\n", boxType, name, shelf)
			fmt.Fprintf(out, "Run `shelf box setup %s %s` to finish configuration.\n", shelf, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&boxType, "type", "drag",
		"Box type: drag (web crawl) | rag (document upload) | bag (raw storage)")
	return cmd
}

// ---------------------------------------------------------------------------
// box setup
// ---------------------------------------------------------------------------

func newSetup(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "setup <shelf> <name>",
		Short: "Mark a box as configured",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			shelf, name := args[0], args[1]
			if err := svc.SetupBox(name, shelf); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Box %q on shelf %q is configured.\n", name, shelf)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// box remove
// ---------------------------------------------------------------------------

func newRemove(ctx *shared.Context) *cobra.Command {
	var shelf string
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a box from its shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			name := args[0]
			deleted, err := svc.DeleteBox(name, shelf)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if deleted {
				fmt.Fprintf(out, "Removed box %q\n", name)
			} else {
				fmt.Fprintf(out, "No box named %q\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shelf, "shelf", "", "Owning shelf (omit to match the box on any shelf)")
	return cmd
}

// ---------------------------------------------------------------------------
// box status
// ---------------------------------------------------------------------------

func newStatus(ctx *shared.Context) *cobra.Command {
	var (
		shelf  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show the current state of a box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			st, err := svc.BoxStatus(cmd.Context(), args[0], shelf)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				payload := map[string]any{
					"name":    st.Context.EntityName,
					"exists":  st.Context.EntityExists,
					"status":  st.Status.String(),
					"summary": st.Context.ContentSummary,
					"actions": st.Actions,
				}
				if st.BoxType != "" {
					payload["box_type"] = string(st.BoxType)
				}
				b, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}

			fmt.Fprintf(out, "Box %q: %s\n", st.Context.EntityName, st.Status)
			if st.Context.EntityExists {
				fmt.Fprintf(out, "  type: %s\n", st.BoxType)
				fmt.Fprintf(out, "  contents: %s\n", st.Context.ContentSummary)
				if !st.Context.LastModified.IsZero() {
					fmt.Fprintf(out, "  modified: %s\n", st.Context.LastModified.UTC().Format(time.RFC3339))
				}
			}
			for _, a := range st.Actions {
				fmt.Fprintf(out, "  next: %s (`%s`)\n", a.Label, a.Command)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shelf, "shelf", "", "Owning shelf (omit to match the box on any shelf)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
