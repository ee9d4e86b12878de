// Package cli implements the h5prun command line.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the h5prun command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "h5prun",
		Short: "Play interactive content and print the xAPI statements it emits",
		Long: `h5prun instantiates interactive content from a JSON descriptor,
applies scripted answers, prints every xAPI statement that reaches the
external bus as one JSON object per line, saves user state and reports the
recorded result.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "settings file (.yaml, .yml or .json)")

	root.AddCommand(newLibrariesCommand())
	root.AddCommand(newPlayCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
