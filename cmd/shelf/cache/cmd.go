// Package cachecmd implements the `shelf cache` command group.
package cachecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/models"
	"github.com/docshelf-dev/docshelf/internal/service"
)

// Command implements `shelf cache`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the cache command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the context cache",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	c.cmd.AddCommand(
		newStats(ctx),
		newSweep(ctx),
		newInvalidate(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// ---------------------------------------------------------------------------
// cache stats
// ---------------------------------------------------------------------------

func newStats(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hit/miss accounting for the durable cache tier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			stats, err := svc.CacheStats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hits:     %d\n", stats.Hits)
			fmt.Fprintf(out, "misses:   %d\n", stats.Misses)
			fmt.Fprintf(out, "hit rate: %.2f\n", stats.HitRate)
			fmt.Fprintf(out, "entries:  %d\n", stats.TotalEntries)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// cache sweep
// ---------------------------------------------------------------------------

func newSweep(ctx *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired entries from the durable cache tier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			removed, err := svc.SweepCache()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", removed)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// cache invalidate
// ---------------------------------------------------------------------------

func newInvalidate(ctx *shared.Context) *cobra.Command {
	var (
		entityType string
		shelf      string
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "invalidate [name]",
		Short: "Drop cached contexts for one entity, or for a whole entity type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et := models.EntityType(entityType)
			if et != models.EntityShelf && et != models.EntityBox {
				return fmt.Errorf("cache invalidate: unknown entity type %q", entityType)
			}

			svc, err := service.New(ctx.ShelfHome)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			if all {
				count, err := svc.InvalidateType(et)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Dropped %d cached %s contexts.\n", count, et)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("cache invalidate: name required unless --all is set")
			}
			dropped, err := svc.InvalidateEntity(et, args[0], shelf)
			if err != nil {
				return err
			}
			if dropped {
				fmt.Fprintf(out, "Dropped cached context for %s %q.\n", et, args[0])
			} else {
				fmt.Fprintf(out, "No cached context for %s %q.\n", et, args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "shelf", "Entity type: shelf | box")
	cmd.Flags().StringVar(&shelf, "shelf", "", "Owning shelf, for box entries")
	cmd.Flags().BoolVar(&all, "all", false, "Drop every cached context of the given type")
	return cmd
}
