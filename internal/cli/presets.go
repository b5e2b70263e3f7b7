package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/strategy/builtin"
)

func newPresetsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the bundled strategy presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := builtin.Registry()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, p := range reg.Presets() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Config.DefaultName(), p.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !verbose {
				return nil
			}
			for _, p := range reg.Presets() {
				b, err := p.Config.YAML()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n# %s\n%s", p.Name, b)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print each preset's full configuration")
	return cmd
}
