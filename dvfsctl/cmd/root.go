// Package cmd provides the command-line interface of dvfsctl.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/swdvfs/config"
	"github.com/sarchlab/swdvfs/simulation"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use: "dvfsctl",
		Short: "dvfsctl runs DVFS domains of a board on simulated clocks " +
			"and regulators.",
		Long: `dvfsctl loads a board description, builds the DVFS domains it ` +
			`declares, and lets you move them between operating points, feed ` +
			`them temperatures, and inspect the tables they select.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c",
		"board.yaml", "board description")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn",
		"debug, info, warn, or error")

	root.AddCommand(
		newRunCmd(flags),
		newSetCmd(flags),
		newTableCmd(flags),
		newSampleCmd(flags),
	)

	return root
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func (f *globalFlags) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(f.logLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", f.logLevel)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (f *globalFlags) load() (*config.Config, error) {
	return config.Load(f.configPath)
}

// build assembles the board without the monitor, which only the run
// command serves.
func (f *globalFlags) build(cmd *cobra.Command) (*simulation.Simulation, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}

	logger, err := f.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return simulation.MakeBuilder(cfg).
		WithoutMonitoring().
		WithLogger(logger).
		Build()
}
