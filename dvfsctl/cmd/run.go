package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/simulation"
	"github.com/sarchlab/swdvfs/thermal"
)

type runFlags struct {
	duration time.Duration
	period   time.Duration
	sensors  []string
	scripts  []string
	port     int
	record   string
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the board, serving the monitor and sampling temperatures.",
		Long: `Run builds the board and keeps it running until interrupted or ` +
			`until --duration elapses. Temperatures come from host sensors ` +
			`(--sensor 0=coretemp_core_0) or from scripted readings ` +
			`(--script 0=45000:70000:90000).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, rf)
		},
	}

	cmd.Flags().DurationVar(&rf.duration, "duration", 0,
		"stop after this long, 0 to run until interrupted")
	cmd.Flags().DurationVar(&rf.period, "period", 100*time.Millisecond,
		"temperature sampling period")
	cmd.Flags().StringArrayVar(&rf.sensors, "sensor", nil,
		"bind a host sensor to a domain, as id=key")
	cmd.Flags().StringArrayVar(&rf.scripts, "script", nil,
		"bind scripted readings to a domain, as id=mC:mC:...")
	cmd.Flags().IntVar(&rf.port, "monitor-port", -1,
		"serve the monitor on this port, 0 for a random one")
	cmd.Flags().StringVar(&rf.record, "record", "",
		"record traces into this database")

	return cmd
}

func run(cmd *cobra.Command, flags *globalFlags, rf *runFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}

	logger, err := flags.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder(cfg).WithLogger(logger)

	if rf.port >= 0 {
		b = b.WithMonitorPort(rf.port)
	}

	if rf.record != "" {
		b = b.WithOutputFileName(rf.record)
	}

	s, err := b.Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rf.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rf.duration)
		defer cancel()
	}

	sampler := thermal.NewSampler(s.Coordinator(), rf.period).WithLogger(logger)

	if err := bindSources(sampler, rf); err != nil {
		return err
	}

	if err := s.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sampler.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	printDomains(cmd.OutOrStdout(), s)

	return nil
}

func bindSources(sampler *thermal.Sampler, rf *runFlags) error {
	for _, arg := range rf.sensors {
		id, key, err := splitBinding(arg)
		if err != nil {
			return err
		}

		sampler.Bind(id, thermal.HostSource{SensorKey: key})
	}

	for _, arg := range rf.scripts {
		id, list, err := splitBinding(arg)
		if err != nil {
			return err
		}

		var readings []int

		for _, field := range strings.Split(list, ":") {
			mc, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("script %q: %w", arg, err)
			}

			readings = append(readings, mc)
		}

		sampler.Bind(id, thermal.NewScriptedSource(readings...))
	}

	return nil
}

func splitBinding(arg string) (dvfs.DomainID, string, error) {
	idStr, value, found := strings.Cut(arg, "=")
	if !found || value == "" {
		return 0, "", fmt.Errorf("binding %q is not id=value", arg)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, "", fmt.Errorf("binding %q: %w", arg, err)
	}

	return dvfs.DomainID(id), value, nil
}
