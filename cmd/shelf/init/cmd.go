// Package initcmd implements the `shelf init` command.
package initcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf init`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the init command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize the shelf home and database",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := service.New(c.ctx.ShelfHome)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Shelf home initialized at %s\n", svc.ShelfHome)
	return nil
}
