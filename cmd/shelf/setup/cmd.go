// Package setupcmd implements the `shelf setup` command.
package setupcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf setup`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the setup command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "setup <name>",
		Short: "Mark a shelf as configured",
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
	if err := svc.SetupShelf(name); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Shelf %q is configured.\n", name)
	return nil
}
