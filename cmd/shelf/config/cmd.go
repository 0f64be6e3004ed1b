// Package configcmd implements the `shelf config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docshelf-dev/docshelf/cmd/shelf/shared"
	"github.com/docshelf-dev/docshelf/internal/config"
)

const configTemplate = `# DocShelf configuration

# Context cache behaviour.
cache:
  ttl_seconds: 300              # how long resolved contexts stay fresh
  sweep_interval_seconds: 60    # minimum gap between expired-row sweeps
  coalesce: true                # collapse concurrent misses for the same key
`

// Command implements `shelf config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newConfigInit(ctx),
		newSetHome(ctx),
		newClearHome(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := config.ResolveShelfHome()
	if c.ctx.ShelfHome != "" {
		home = c.ctx.ShelfHome
		source = "flag"
	}
	cfg, err := config.Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return err
	}
	data := map[string]any{
		"cache": map[string]any{
			"ttl_seconds":            cfg.Cache.TTLSeconds,
			"sweep_interval_seconds": cfg.Cache.SweepIntervalSeconds,
			"coalesce":               cfg.Cache.Coalesce,
		},
		"shelf_home":        home,
		"shelf_home_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := ctx.ShelfHome
			if home == "" {
				home = config.GetShelfHome()
			}
			cfgPath := filepath.Join(home, "config.yaml")
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

// ---------------------------------------------------------------------------
// config set-home
// ---------------------------------------------------------------------------

func newSetHome(_ *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "set-home <path>",
		Short: "Persist shelf home location (used when SHELF_HOME is unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.SetPersistedShelfHome(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Persisted shelf home: %s\n", resolved)
			fmt.Fprintln(out, "Override anytime with SHELF_HOME.")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// config clear-home
// ---------------------------------------------------------------------------

func newClearHome(_ *shared.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-home",
		Short: "Remove persisted shelf home location from global config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := config.ClearPersistedShelfHome()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintln(out, "Cleared persisted shelf home setting.")
			} else {
				fmt.Fprintln(out, "No persisted shelf home setting was found.")
			}
			return nil
		},
	}
}
