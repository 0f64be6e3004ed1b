// Package deletecmd implements the `shelf delete` command.
package deletecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf delete`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the delete command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a shelf and all of its boxes",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
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

	name := args[0]
	deleted, err := svc.DeleteShelf(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if deleted {
		fmt.Fprintf(out, "Deleted shelf %q\n", name)
	} else {
		fmt.Fprintf(out, "No shelf named %q\n", name)
	}
	return nil
}
