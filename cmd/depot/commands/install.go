package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/engine/installer"
	"go.trai.ch/depot/internal/engine/resolver"
)

// DefaultDest is the default installation directory, relative to the project
// root.
const DefaultDest = "lua_modules"

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve the workspace, write the lockfile and install packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dest, _ := cmd.Flags().GetString("dest")
			filters, _ := cmd.Flags().GetStringArray("filter")
			strategyName, _ := cmd.Flags().GetString("strategy")
			lenient, _ := cmd.Flags().GetBool("lenient")
			failFast, _ := cmd.Flags().GetBool("fail-fast")
			concurrency, _ := cmd.Flags().GetInt("concurrency")

			strategy, err := resolver.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			report, err := c.app.Install(cmd.Context(), app.InstallOptions{
				Root:        ".",
				Dest:        dest,
				Filters:     filters,
				Strategy:    strategy,
				Lenient:     lenient,
				FailFast:    failFast,
				Concurrency: concurrency,
			})
			if report != nil {
				for _, o := range report.Failed() {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s@%s: %v\n", o.Package, o.Version, o.Err)
				}
			}
			return err
		},
	}
	cmd.Flags().String("dest", DefaultDest, "Installation directory")
	cmd.Flags().StringArray("filter", nil, "Restrict to workspace members (member, member..., ...member)")
	cmd.Flags().String("strategy", string(resolver.StrategyHighest), "Version selection strategy (highest, lowest, exact)")
	cmd.Flags().Bool("lenient", false, "Downgrade version conflicts to warnings")
	cmd.Flags().Bool("fail-fast", false, "Stop scheduling new packages after the first failure")
	cmd.Flags().IntP("concurrency", "j", installer.DefaultConcurrency, "Maximum concurrent package installations")
	return cmd
}
