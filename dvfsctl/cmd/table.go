package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/swdvfs/opp"
)

func newTableCmd(flags *globalFlags) *cobra.Command {
	var temp int

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Show the table every domain selects at a temperature.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			logger, err := flags.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			b := opp.MakeBuilder().
				WithSocVersion(cfg.SocVersion).
				WithLogger(logger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			for _, d := range cfg.Domains {
				build, err := b.Build(d.Descriptor(), d.Binning(), temp)
				if err != nil {
					fmt.Fprintf(w, "%s\t%v\n", d.Name, err)
					continue
				}

				fmt.Fprintf(w, "%s\t%s\n", d.Name, build.SelectionKey)

				for i, p := range build.Points {
					fmt.Fprintf(w, "\t%d\t%d kHz\t%d uV\n",
						build.Points.IndexOf(i), p.FreqKHz(), p.VoltUV)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&temp, "temp", "t", 25, "temperature in Celsius")

	return cmd
}
