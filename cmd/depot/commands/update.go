package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/engine/resolver"
)

func (c *CLI) newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-resolve the workspace and refresh the lockfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, _ := cmd.Flags().GetStringArray("filter")
			strategyName, _ := cmd.Flags().GetString("strategy")
			lenient, _ := cmd.Flags().GetBool("lenient")

			strategy, err := resolver.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			lf, err := c.app.Update(cmd.Context(), app.UpdateOptions{
				Root:     ".",
				Filters:  filters,
				Strategy: strategy,
				Lenient:  lenient,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lockfile updated, %d packages pinned\n", len(lf.Packages))
			return nil
		},
	}
	cmd.Flags().StringArray("filter", nil, "Restrict to workspace members (member, member..., ...member)")
	cmd.Flags().String("strategy", string(resolver.StrategyHighest), "Version selection strategy (highest, lowest, exact)")
	cmd.Flags().Bool("lenient", false, "Downgrade version conflicts to warnings")
	return cmd
}
