// Package thermal feeds temperature readings to DVFS domains.
package thermal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/swdvfs/dvfs"
)

// A Source reads a temperature in milli-degrees Celsius.
type Source interface {
	Read(ctx context.Context) (int, error)
}

// A Sink consumes temperature samples and returns the new frequency ceiling
// in kHz, or 0 when nothing changed.
type Sink interface {
	OnTemperatureSample(id dvfs.DomainID, milliC int) uint32
}

// CeilingFunc is told about every ceiling change.
type CeilingFunc func(id dvfs.DomainID, maxKHz uint32)

type binding struct {
	id  dvfs.DomainID
	src Source
}

// Sampler polls sources periodically, one goroutine per domain.
type Sampler struct {
	sink      Sink
	period    time.Duration
	logger    *slog.Logger
	onCeiling CeilingFunc

	mu       sync.Mutex
	bindings []binding
}

// NewSampler creates a sampler that polls every period.
func NewSampler(sink Sink, period time.Duration) *Sampler {
	if period <= 0 {
		panic("thermal: sampling period must be positive")
	}

	return &Sampler{
		sink:   sink,
		period: period,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger.
func (s *Sampler) WithLogger(l *slog.Logger) *Sampler {
	s.logger = l
	return s
}

// OnCeiling registers a function told about ceiling changes.
func (s *Sampler) OnCeiling(f CeilingFunc) *Sampler {
	s.onCeiling = f
	return s
}

// Bind makes the sampler feed the readings of src to a domain.
func (s *Sampler) Bind(id dvfs.DomainID, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings = append(s.bindings, binding{id: id, src: src})
}

// Run polls until ctx is done. It returns nil on cancellation.
func (s *Sampler) Run(ctx context.Context) error {
	s.mu.Lock()
	bindings := append([]binding(nil), s.bindings...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	for _, b := range bindings {
		b := b
		g.Go(func() error {
			return s.poll(ctx, b)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (s *Sampler) poll(ctx context.Context, b binding) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sample(ctx, b)
		}
	}
}

// SampleOnce reads every source once.
func (s *Sampler) SampleOnce(ctx context.Context) {
	s.mu.Lock()
	bindings := append([]binding(nil), s.bindings...)
	s.mu.Unlock()

	for _, b := range bindings {
		s.sample(ctx, b)
	}
}

func (s *Sampler) sample(ctx context.Context, b binding) {
	milliC, err := b.src.Read(ctx)
	if err != nil {
		s.logger.Warn("temperature read failed", "domain", b.id, "err", err)
		return
	}

	ceiling := s.sink.OnTemperatureSample(b.id, milliC)
	if ceiling == 0 {
		return
	}

	s.logger.Info("frequency ceiling changed",
		"domain", b.id, "temp_mc", milliC, "max_khz", ceiling)

	if s.onCeiling != nil {
		s.onCeiling(b.id, ceiling)
	}
}

// ErrScriptEnded is returned by a ScriptedSource that ran out of readings
// and does not repeat.
var ErrScriptEnded = errors.New("thermal: script ended")

// ScriptedSource replays readings. Once exhausted it keeps returning the
// last one, or ErrScriptEnded if Once is set.
type ScriptedSource struct {
	mu       sync.Mutex
	readings []int
	next     int
	once     bool
}

// NewScriptedSource creates a source replaying readings, in milli-degrees.
func NewScriptedSource(readings ...int) *ScriptedSource {
	if len(readings) == 0 {
		panic("thermal: scripted source needs readings")
	}

	return &ScriptedSource{readings: readings}
}

// Once makes the source fail after its last reading.
func (s *ScriptedSource) Once() *ScriptedSource {
	s.once = true
	return s
}

// Read returns the next reading.
func (s *ScriptedSource) Read(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.readings) {
		if s.once {
			return 0, ErrScriptEnded
		}

		return s.readings[len(s.readings)-1], nil
	}

	r := s.readings[s.next]
	s.next++

	return r, nil
}

// Remaining returns how many scripted readings are left.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.readings) - s.next
}

func (s *ScriptedSource) String() string {
	return fmt.Sprintf("scripted(%d readings)", len(s.readings))
}
