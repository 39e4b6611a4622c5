package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/secretspec/secretspec/pkg/backend/builtin"
	"github.com/spf13/cobra"
)

func newProvidersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := builtin.NewRegistry().List()

			return writeOutput(cmd.OutOrStdout(), infos, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SCHEME\tDESCRIPTION\tEXAMPLES")
				for _, info := range infos {
					desc := info.Description
					if info.ReadOnly {
						desc += " (read-only)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Scheme, desc, strings.Join(info.Examples, ", "))
				}
				return tw.Flush()
			})
		},
	}

	return cmd
}
