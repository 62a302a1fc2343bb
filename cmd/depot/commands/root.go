// Package commands implements the CLI commands for the depot package
// manager.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/build"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for depot.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "depot",
		Short:         "A package manager for Lua workspaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		// Entering the project directory up front anchors every
		// project-relative path (manifests, depot.lock, the registry
		// default and the dest default) to --root, like git -C.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			root, _ := cmd.Flags().GetString("root")
			if root == "" || root == "." {
				return nil
			}
			if err := os.Chdir(root); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to enter project directory"), "root", root)
			}
			return nil
		},
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("root", "C", ".", "Project directory holding the root manifest")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newUpdateCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
