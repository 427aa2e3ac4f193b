package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/thermal"
)

func newSampleCmd(flags *globalFlags) *cobra.Command {
	var (
		domain  int
		samples []int
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Feed temperature samples, in milli-degrees, to a domain.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(samples) == 0 {
				return fmt.Errorf("no sample given")
			}

			s, err := flags.build(cmd)
			if err != nil {
				return err
			}
			defer s.Terminate()

			id := dvfs.DomainID(domain)
			out := cmd.OutOrStdout()

			sampler := thermal.NewSampler(s.Coordinator(), 1).
				WithLogger(s.Coordinator().Logger()).
				OnCeiling(func(id dvfs.DomainID, khz uint32) {
					info, _ := s.Coordinator().Domain(id)
					fmt.Fprintf(out, "domain %d: table %s, max %d kHz\n",
						id, info.SelectionKey, khz)
				})
			sampler.Bind(id, thermal.NewScriptedSource(samples...))

			for range samples {
				sampler.SampleOnce(cmd.Context())
			}

			info, err := s.Coordinator().Domain(id)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "domain %d ends at %d C with table %s\n",
				id, info.TempNow, info.SelectionKey)

			return nil
		},
	}

	cmd.Flags().IntVarP(&domain, "domain", "d", 0, "domain id")
	cmd.Flags().IntSliceVarP(&samples, "samples", "s", nil,
		"comma-separated samples in milli-degrees Celsius")

	return cmd
}
