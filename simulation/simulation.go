// Package simulation assembles a DVFS engine on simulated hardware from a
// board description.
package simulation

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/swdvfs/datarecording"
	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/hwdvfs"
	"github.com/sarchlab/swdvfs/metrics"
	"github.com/sarchlab/swdvfs/monitoring"
	"github.com/sarchlab/swdvfs/tracing"
)

// A Simulation is a running board: the coordinator, its hardware models, and
// the services observing it.
type Simulation struct {
	id string

	coordinator *dvfs.Coordinator
	driver      *dvfs.Driver
	tracker     *dvfs.CPUTracker
	engine      *hwdvfs.Engine

	journal    *hw.Journal
	regulators map[string]*hw.SimRegulator
	clocks     map[dvfs.DomainID]hw.Clock
	votes      map[dvfs.DomainID]*dvfs.SharedRailVote

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	latency  *hooking.LatencyTracer
	recorder datarecording.DataRecorder
	tracer   *tracing.DBTracer
	monitor  *monitoring.Monitor

	monitorURL string
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Coordinator returns the coordinator of the domains.
func (s *Simulation) Coordinator() *dvfs.Coordinator {
	return s.coordinator
}

// Driver returns the driver governors talk to.
func (s *Simulation) Driver() *dvfs.Driver {
	return s.driver
}

// CPUTracker returns the tracker that maps CPU hotplug to domains.
func (s *Simulation) CPUTracker() *dvfs.CPUTracker {
	return s.tracker
}

// Journal returns the log of every hardware operation.
func (s *Simulation) Journal() *hw.Journal {
	return s.journal
}

// Regulator returns the regulator with a name.
func (s *Simulation) Regulator(name string) *hw.SimRegulator {
	return s.regulators[name]
}

// Clock returns the clock of a domain.
func (s *Simulation) Clock(id dvfs.DomainID) hw.Clock {
	return s.clocks[id]
}

// ExternalVote returns the shared-rail vote created for a domain, if any.
func (s *Simulation) ExternalVote(id dvfs.DomainID) *dvfs.SharedRailVote {
	return s.votes[id]
}

// Registry returns the Prometheus registry of the metrics.
func (s *Simulation) Registry() *prometheus.Registry {
	return s.registry
}

// LatencyTracer returns the tracer measuring transitions and rebuilds.
func (s *Simulation) LatencyTracer() *hooking.LatencyTracer {
	return s.latency
}

// HardwareEngine returns the hardware sequencer, nil in software mode.
func (s *Simulation) HardwareEngine() *hwdvfs.Engine {
	return s.engine
}

// MonitorURL returns where the monitor listens once started.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Start runs the hardware sequencer and the monitor until ctx is done.
func (s *Simulation) Start(ctx context.Context) error {
	if s.engine != nil {
		s.engine.Start(ctx)
	}

	if s.monitor != nil {
		url, err := s.monitor.StartServer(ctx)
		if err != nil {
			return err
		}

		s.monitorURL = url
	}

	return nil
}

// Terminate stops the sequencer and flushes the traces.
func (s *Simulation) Terminate() {
	if s.engine != nil {
		s.engine.Stop()
	}

	if s.tracer != nil {
		s.tracer.Terminate()
	}

	if s.recorder != nil {
		s.recorder.Close()
	}
}
