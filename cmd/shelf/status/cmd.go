// Package statuscmd implements the `shelf status` command.
package statuscmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf status`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	asJSON bool
}

// New creates the status command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "status <name>",
		Short: "Show the current state of a shelf",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.asJSON, "json", false, "Output as JSON")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	svc, err := service.New(c.ctx.ShelfHome)
	if err != nil {
		return err
	}
	defer svc.Close()

	st, err := svc.ShelfStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		payload := map[string]any{
			"name":    st.Context.EntityName,
			"exists":  st.Context.EntityExists,
			"status":  st.Status.String(),
			"summary": st.Context.ContentSummary,
			"actions": st.Actions,
		}
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}

	fmt.Fprintf(out, "Shelf %q: %s\n", st.Context.EntityName, st.Status)
	if st.Context.EntityExists {
		fmt.Fprintf(out, "  contents: %s\n", st.Context.ContentSummary)
		if !st.Context.LastModified.IsZero() {
			fmt.Fprintf(out, "  modified: %s\n", st.Context.LastModified.UTC().Format(time.RFC3339))
		}
	}
	for _, a := range st.Actions {
		fmt.Fprintf(out, "  next: %s (`%s`)\n", a.Label, a.Command)
	}
	return nil
}
