package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List packages pinned by the lockfile and their install state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dest, _ := cmd.Flags().GetString("dest")
			entries, err := c.app.List(cmd.Context(), dest)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				state := "installed"
				if !entry.Installed {
					state = "missing"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", entry.Name, entry.Version, entry.Checksum, state)
			}
			return nil
		},
	}
	cmd.Flags().String("dest", DefaultDest, "Installation directory")
	return cmd
}
