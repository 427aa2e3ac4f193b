package simulation

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/sarchlab/swdvfs/config"
	"github.com/sarchlab/swdvfs/datarecording"
	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/hwdvfs"
	"github.com/sarchlab/swdvfs/metrics"
	"github.com/sarchlab/swdvfs/monitoring"
	"github.com/sarchlab/swdvfs/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg            *config.Config
	logger         *slog.Logger
	timeTeller     hooking.TimeTeller
	monitorOn      bool
	monitorPort    int
	outputFileName string
}

// MakeBuilder creates a builder for the board described by cfg. Monitoring
// and recording follow the configuration unless overridden.
func MakeBuilder(cfg *config.Config) Builder {
	return Builder{
		cfg:            cfg,
		logger:         slog.Default(),
		timeTeller:     hooking.WallClock{},
		monitorOn:      cfg.Monitor.Enabled,
		monitorPort:    cfg.Monitor.Port,
		outputFileName: cfg.Record,
	}
}

// WithLogger sets the logger of every component.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithTimeTeller sets the clock used for deadlines and latencies.
func (b Builder) WithTimeTeller(t hooking.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	b.monitorPort = 0

	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithOutputFileName records traces into the named database. An empty name
// disables recording.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// Build builds the simulation. The hardware sequencer and the monitor only
// run after Start.
func (b Builder) Build() (*Simulation, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:         xid.New().String(),
		journal:    hw.NewJournal(),
		regulators: make(map[string]*hw.SimRegulator),
		clocks:     make(map[dvfs.DomainID]hw.Clock),
		votes:      make(map[dvfs.DomainID]*dvfs.SharedRailVote),
		registry:   prometheus.NewRegistry(),
	}

	mode := b.cfg.ParsedMode()

	cb := dvfs.MakeBuilder().
		WithCapacity(b.cfg.MaxDomains).
		WithFallDelay(b.cfg.FallDelay).
		WithSocVersion(b.cfg.SocVersion).
		WithLogger(b.logger).
		WithTimeTeller(b.timeTeller)

	if mode == dvfs.ModeHardware {
		s.engine = hwdvfs.MakeBuilder().
			WithIndexOffset(b.cfg.Hardware.IndexOffset).
			WithCompletionTimeout(b.cfg.Hardware.CompletionTimeout).
			WithLogger(b.logger).
			Build()
		cb = cb.WithHardwareBackend(s.engine)
	}

	s.coordinator = cb.Build()

	s.metrics = metrics.New(s.registry, b.timeTeller)
	s.coordinator.AcceptHook(s.metrics)

	s.latency = hooking.NewLatencyTracer(b.timeTeller, nil)
	s.coordinator.AcceptHook(s.latency)

	if b.outputFileName != "" {
		s.recorder = datarecording.New(b.outputFileName)
		s.tracer = tracing.NewDBTracer(b.timeTeller, s.recorder)
		tracing.CollectTrace(s.coordinator, s.tracer)
	}

	for _, d := range b.cfg.Domains {
		if err := s.addDomain(d); err != nil {
			s.Terminate()
			return nil, err
		}
	}

	driver, err := dvfs.NewDriver(s.coordinator, mode)
	if err != nil {
		s.Terminate()
		return nil, err
	}

	if b.cfg.BoostDuration > 0 {
		driver.EnableBoost(b.cfg.BoostDuration)
	}

	s.driver = driver
	s.tracker = dvfs.NewCPUTracker(s.coordinator)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor(driver).
			WithPortNumber(b.monitorPort).
			WithGatherer(s.registry).
			WithBrowser(b.cfg.Monitor.Browser).
			WithLogger(b.logger)
	}

	return s, nil
}

func (s *Simulation) addDomain(d config.Domain) error {
	id := dvfs.DomainID(d.ID)
	reg := s.regulator(d.Regulator)
	clk := s.clock(d)

	if s.engine != nil {
		err := s.engine.AddChannel(id, hwdvfs.ChannelConfig{
			Clock:         clk,
			Regulator:     reg,
			VoltTolerance: d.VoltageTolerance,
		})
		if err != nil {
			return err
		}
	}

	spec := dvfs.DomainSpec{
		ID:                id,
		Name:              d.Name,
		Leaf:              d.Leaf,
		CPUs:              d.CPUs,
		Relations:         d.Relations(),
		VoltTolerance:     d.VoltageTolerance,
		Clock:             clk,
		Regulator:         reg,
		Tables:            d.Descriptor(),
		Binning:           d.Binning(),
		TempC:             d.InitialTempC,
		TransitionLatency: d.Latency,
	}

	if d.ExternalVoteUV > 0 {
		vote := &dvfs.SharedRailVote{}
		vote.SetPeerVote(d.ExternalVoteUV)
		spec.ExternalVoter = vote
		s.votes[id] = vote
	}

	if err := s.coordinator.AddDomain(spec); err != nil {
		return fmt.Errorf("simulation: domain %s: %w", d.Name, err)
	}

	return nil
}

func (s *Simulation) regulator(r config.Regulator) *hw.SimRegulator {
	if reg, ok := s.regulators[r.Name]; ok {
		return reg
	}

	reg := hw.MakeRegulatorBuilder().
		WithName(r.Name).
		WithRange(r.MinUV, r.MaxUV).
		WithStep(r.StepUV).
		WithRamp(r.RampUVPerUs).
		WithVoltage(r.InitialUV).
		WithJournal(s.journal).
		Build()
	s.regulators[r.Name] = reg

	return reg
}

func (s *Simulation) clock(d config.Domain) hw.Clock {
	var clk hw.Clock

	if d.Clock.Cores > 1 || d.Clock.LowParentHz > 0 {
		b := hw.MakeMuxClockBuilder().
			WithName(d.Name).
			WithLowParent(d.Clock.LowParentHz).
			WithRate(d.Clock.InitialHz).
			WithJournal(s.journal)

		if d.Clock.Cores > 0 {
			b = b.WithCores(d.Clock.Cores)
		}

		if d.Clock.HighConst {
			b = b.WithConstantHighParent(d.Clock.InitialHz)
		}

		clk = b.Build()
	} else {
		clk = hw.NewSimClock(d.Name, d.Clock.InitialHz, s.journal)
	}

	s.clocks[dvfs.DomainID(d.ID)] = clk

	return clk
}
