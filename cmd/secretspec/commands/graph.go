package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "graph",
		Short:   "Print the extends graph in DOT format",
		Example: `  secretspec graph | dot -Tsvg > inheritance.svg`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSecrets(cmd)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), s.Order().ToDOT())
			return err
		},
	}

	return cmd
}
