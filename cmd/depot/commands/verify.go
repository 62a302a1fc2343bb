package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check installed packages against the lockfile checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dest, _ := cmd.Flags().GetString("dest")

			violations, err := c.app.Verify(cmd.Context(), dest)
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok: installation matches lockfile")
				return nil
			}
			for _, v := range violations {
				fmt.Fprintln(cmd.ErrOrStderr(), v.String())
			}
			return zerr.With(domain.ErrIntegrity, "violations", fmt.Sprintf("%d", len(violations)))
		},
	}
	cmd.Flags().String("dest", DefaultDest, "Installation directory")
	return cmd
}
