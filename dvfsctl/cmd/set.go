package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/simulation"
)

func newSetCmd(flags *globalFlags) *cobra.Command {
	var (
		domain int
		index  int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Move a domain to an operating point and show every domain.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.build(cmd)
			if err != nil {
				return err
			}
			defer s.Terminate()

			if err := s.Start(cmd.Context()); err != nil {
				return err
			}

			if err := s.Driver().SetTarget(dvfs.DomainID(domain), index); err != nil {
				return err
			}

			printDomains(cmd.OutOrStdout(), s)

			return nil
		},
	}

	cmd.Flags().IntVarP(&domain, "domain", "d", 0, "domain id")
	cmd.Flags().IntVarP(&index, "index", "i", 0,
		"operating point index, 0 being the slowest")

	return cmd
}

func printDomains(out io.Writer, s *simulation.Simulation) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tONLINE\tTABLE\tFREQ_HZ\tVOLT_UV\tRAIL")

	for _, info := range s.Coordinator().Domains() {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%d\t%d\t%d\n",
			info.ID, info.Name, info.Online, info.SelectionKey,
			info.FreqReqHz, info.VoltReqUV, info.RailOwner)
	}

	w.Flush()
}
