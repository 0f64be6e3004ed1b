// Package rootcmd wires the root cobra.Command for the shelf CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/internal/buildinfo"

	boxcmd "github.com/docshelf-dev/docshelf/cmd/shelf/box"
	cachecmd "github.com/docshelf-dev/docshelf/cmd/shelf/cache"
	configcmd "github.com/docshelf-dev/docshelf/cmd/shelf/config"
	createcmd "github.com/docshelf-dev/docshelf/cmd/shelf/create"
	deletecmd "github.com/docshelf-dev/docshelf/cmd/shelf/delete"
	initcmd "github.com/docshelf-dev/docshelf/cmd/shelf/init"
	mcpcmd "github.com/docshelf-dev/docshelf/cmd/shelf/mcp"
	setupcmd "github.com/docshelf-dev/docshelf/cmd/shelf/setup"
	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	statuscmd "github.com/docshelf-dev/docshelf/cmd/shelf/status"
)

// New creates and returns the root cobra.Command for the shelf CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "shelf",
		Short:         "DocShelf, shelves and boxes for crawled documentation",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.ShelfHome, "shelf-home", "",
		"Override shelf home directory (default: $SHELF_HOME env → persisted config → ~/.docshelf)",
	)

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		createcmd.New(ctx).Cmd(),
		deletecmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		statuscmd.New(ctx).Cmd(),
		boxcmd.New(ctx).Cmd(),
		cachecmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
	)

	return root
}
