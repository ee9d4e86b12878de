package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLibrariesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List the registered content types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, name := range s.runtime.Registry().Libraries() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
