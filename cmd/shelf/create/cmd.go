// Package createcmd implements the `shelf create` command.
package createcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf create`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the create command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new shelf",
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
	if err := svc.CreateShelf(name); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created shelf %q\n", name)
	fmt.Fprintf(out, "Run `shelf setup %s` to finish configuration.\n", name)
	return nil
}
