// Package hwdvfs simulates a hardware DVFS sequencer. Software only programs
// an index map table per domain and writes the index to run at; the
// sequencer walks voltage and clock in a safe order on its own and raises a
// completion interrupt.
package hwdvfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/opp"
)

var (
	// ErrNoChannel is returned for domains the sequencer has no channel for.
	ErrNoChannel = errors.New("hwdvfs: no channel for domain")

	// ErrDisabled is returned when a disabled channel is asked to scale.
	ErrDisabled = errors.New("hwdvfs: channel disabled")

	// ErrEmptySlot is returned when an index maps to an unprogrammed slot.
	ErrEmptySlot = errors.New("hwdvfs: index map slot not programmed")

	// ErrSlotRange is returned for indexes beyond the map table.
	ErrSlotRange = errors.New("hwdvfs: index beyond map table")

	// ErrCompletionTimeout is returned when no completion arrives in time.
	ErrCompletionTimeout = errors.New("hwdvfs: completion timeout")

	// ErrDefaultEntry is returned when a channel still runs its default entry.
	ErrDefaultEntry = errors.New("hwdvfs: channel at default entry")

	// ErrStopped is returned once the sequencer has been stopped.
	ErrStopped = errors.New("hwdvfs: sequencer stopped")
)

// ChannelConfig binds a domain to the knobs its channel drives.
type ChannelConfig struct {
	Clock         hw.Clock
	Regulator     hw.Regulator
	VoltTolerance uint32

	// Default is the point of the default entries. A zero value takes the
	// clock rate and rail voltage at registration.
	Default opp.Point
}

type channel struct {
	id      dvfs.DomainID
	cfg     ChannelConfig
	enabled bool

	slots   []opp.Point
	pending map[int]opp.Point
	current int

	tableKey string
	udelay   time.Duration
}

type request struct {
	ch   *channel
	slot int
	done chan error
}

// Engine is the simulated sequencer.
type Engine struct {
	lock     sync.Mutex
	channels map[dvfs.DomainID]*channel

	offset    int
	timeout   time.Duration
	stepDelay time.Duration
	logger    *slog.Logger

	requests    chan request
	stop        context.CancelFunc
	wg          sync.WaitGroup
	completions uint64
}

// Builder builds Engines.
type Builder struct {
	offset    int
	timeout   time.Duration
	stepDelay time.Duration
	logger    *slog.Logger
}

// MakeBuilder creates a builder for an engine with one default entry.
func MakeBuilder() Builder {
	return Builder{
		offset:  1,
		timeout: 10 * time.Millisecond,
	}
}

// WithIndexOffset sets the number of default entries in front of the
// operating points of every map table.
func (b Builder) WithIndexOffset(n int) Builder {
	b.offset = n
	return b
}

// WithCompletionTimeout sets how long ApplyIndex waits for the completion.
func (b Builder) WithCompletionTimeout(d time.Duration) Builder {
	b.timeout = d
	return b
}

// WithStepDelay adds a delay to every sequencing step.
func (b Builder) WithStepDelay(d time.Duration) Builder {
	b.stepDelay = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// Build creates the engine. It must be started before use.
func (b Builder) Build() *Engine {
	if b.offset < 0 {
		panic("hwdvfs: negative index offset")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		channels:  make(map[dvfs.DomainID]*channel),
		offset:    b.offset,
		timeout:   b.timeout,
		stepDelay: b.stepDelay,
		logger:    logger,
		requests:  make(chan request),
	}
}

// IndexOffset returns the number of default entries.
func (e *Engine) IndexOffset() int {
	return e.offset
}

// AddChannel creates the channel of a domain.
func (e *Engine) AddChannel(id dvfs.DomainID, cfg ChannelConfig) error {
	if cfg.Clock == nil || cfg.Regulator == nil {
		return fmt.Errorf("%w: domain %d", dvfs.ErrNoHardwareBinding, id)
	}

	if cfg.Default == (opp.Point{}) {
		uv, err := cfg.Regulator.Voltage()
		if err != nil {
			return fmt.Errorf("hwdvfs: domain %d: read voltage: %w", id, err)
		}

		cfg.Default = opp.Point{FreqHz: cfg.Clock.Rate(), VoltUV: uv}
	}

	ch := &channel{
		id:      id,
		cfg:     cfg,
		slots:   make([]opp.Point, e.offset+opp.MaxPoints),
		pending: make(map[int]opp.Point),
	}

	for i := 0; i < e.offset; i++ {
		ch.slots[i] = cfg.Default
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if _, dup := e.channels[id]; dup {
		return fmt.Errorf("hwdvfs: channel %d added twice", id)
	}

	e.channels[id] = ch

	return nil
}

// Start runs the sequencer until ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.stop = cancel

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		e.run(ctx)
	}()
}

// Stop halts the sequencer and waits for it.
func (e *Engine) Stop() {
	if e.stop != nil {
		e.stop()
	}

	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requests:
			err := e.sequence(req.ch, req.slot)

			e.lock.Lock()
			e.completions++
			e.lock.Unlock()

			req.done <- err
		}
	}
}

func (e *Engine) sequence(ch *channel, slot int) error {
	e.lock.Lock()
	to := ch.slots[slot]
	fromUV := e.railVoteLocked(ch, ch.slots[ch.current].VoltUV)
	toUV := e.railVoteLocked(ch, to.VoltUV)
	delay := e.stepDelay + ch.udelay
	e.lock.Unlock()

	clk := ch.cfg.Clock
	reg := ch.cfg.Regulator

	var err error

	switch {
	case to.FreqHz > clk.Rate():
		err = reg.SetVoltageTol(toUV, ch.cfg.VoltTolerance)
		if err == nil {
			time.Sleep(delay)
			err = clk.SetRate(to.FreqHz)
		}
	case to.FreqHz < clk.Rate():
		err = clk.SetRate(to.FreqHz)
		if err == nil {
			time.Sleep(delay)
			err = reg.SetVoltageTol(toUV, ch.cfg.VoltTolerance)
		}
	default:
		if toUV != fromUV {
			err = reg.SetVoltageTol(toUV, ch.cfg.VoltTolerance)
		}
	}

	if err != nil {
		return fmt.Errorf("hwdvfs: domain %d slot %d: %w", ch.id, slot, err)
	}

	e.lock.Lock()
	ch.current = slot
	e.lock.Unlock()

	return nil
}

// railVoteLocked returns the level the regulator of ch must hold when ch
// asks for uv: the highest of uv and the entries the other enabled channels
// on the same regulator run at.
func (e *Engine) railVoteLocked(ch *channel, uv uint64) uint64 {
	for _, other := range e.channels {
		if other == ch || !other.enabled ||
			other.cfg.Regulator != ch.cfg.Regulator {
			continue
		}

		uv = max(uv, other.slots[other.current].VoltUV)
	}

	return uv
}

func (e *Engine) channel(id dvfs.DomainID) (*channel, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	ch, ok := e.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoChannel, id)
	}

	return ch, nil
}

// Probe tells if a domain has a channel.
func (e *Engine) Probe(id dvfs.DomainID) bool {
	_, err := e.channel(id)
	return err == nil
}

// Enable turns the channel of a domain on or off.
func (e *Engine) Enable(id dvfs.DomainID, on bool) error {
	ch, err := e.channel(id)
	if err != nil {
		return err
	}

	e.lock.Lock()
	ch.enabled = on
	e.lock.Unlock()

	if on {
		return ch.cfg.Clock.Enable()
	}

	return nil
}

// RegisterOperatingPoint programs a pending map entry. Pending entries take
// effect with the next UpdateIndexTable.
func (e *Engine) RegisterOperatingPoint(
	id dvfs.DomainID,
	index int,
	p opp.Point,
) error {
	ch, err := e.channel(id)
	if err != nil {
		return err
	}

	slot := index + e.offset
	if index < 0 || slot >= len(ch.slots) {
		return fmt.Errorf("%w: index %d", ErrSlotRange, index)
	}

	e.lock.Lock()
	ch.pending[slot] = p
	e.lock.Unlock()

	return nil
}

// UpdateIndexTable replaces the map table of a domain with the pending
// entries and recomputes the delay the sequencer waits for the rail.
func (e *Engine) UpdateIndexTable(id dvfs.DomainID, selectionKey string) error {
	ch, err := e.channel(id)
	if err != nil {
		return err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if len(ch.pending) == 0 {
		return fmt.Errorf("%w: no entry for table %q", ErrEmptySlot, selectionKey)
	}

	var lo, hi uint64

	for slot := e.offset; slot < len(ch.slots); slot++ {
		p, ok := ch.pending[slot]
		ch.slots[slot] = p

		if !ok {
			continue
		}

		if lo == 0 || p.VoltUV < lo {
			lo = p.VoltUV
		}

		hi = max(hi, p.VoltUV)
	}

	ch.pending = make(map[int]opp.Point)
	ch.tableKey = selectionKey
	ch.udelay = ch.cfg.Regulator.SettleTime(lo, hi)

	e.logger.Debug("index map table updated",
		"domain", id, "table", selectionKey, "udelay", ch.udelay)

	return nil
}

// ApplyIndex writes an index and waits for the completion interrupt.
func (e *Engine) ApplyIndex(id dvfs.DomainID, index int) error {
	ch, err := e.channel(id)
	if err != nil {
		return err
	}

	slot := index + e.offset

	e.lock.Lock()
	enabled := ch.enabled
	inRange := index >= 0 && slot < len(ch.slots)
	programmed := inRange && ch.slots[slot] != (opp.Point{})
	e.lock.Unlock()

	switch {
	case !enabled:
		return fmt.Errorf("%w: domain %d", ErrDisabled, id)
	case !inRange:
		return fmt.Errorf("%w: index %d", ErrSlotRange, index)
	case !programmed:
		return fmt.Errorf("%w: index %d", ErrEmptySlot, index)
	}

	req := request{ch: ch, slot: slot, done: make(chan error, 1)}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case e.requests <- req:
	case <-timer.C:
		return fmt.Errorf("%w: sequencer busy", ErrCompletionTimeout)
	}

	select {
	case err := <-req.done:
		return err
	case <-timer.C:
	}

	// The sequencer always finishes a request it has taken. Waiting for it
	// keeps the hardware still once the caller releases the rail.
	seqErr := <-req.done

	e.logger.Warn("completion arrived late",
		"domain", id, "index", index, "timeout", e.timeout, "err", seqErr)

	if seqErr != nil {
		return fmt.Errorf("%w: domain %d index %d after %v: %w",
			ErrCompletionTimeout, id, index, e.timeout, seqErr)
	}

	return fmt.Errorf("%w: domain %d index %d after %v",
		ErrCompletionTimeout, id, index, e.timeout)
}

// CurrentIndex returns the index the channel runs at.
func (e *Engine) CurrentIndex(id dvfs.DomainID) (int, error) {
	ch, err := e.channel(id)
	if err != nil {
		return 0, err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if ch.current < e.offset {
		return 0, fmt.Errorf("%w: domain %d", ErrDefaultEntry, id)
	}

	return ch.current - e.offset, nil
}

// Slot returns the map entry at a raw slot of a channel.
func (e *Engine) Slot(id dvfs.DomainID, slot int) (opp.Point, error) {
	ch, err := e.channel(id)
	if err != nil {
		return opp.Point{}, err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if slot < 0 || slot >= len(ch.slots) {
		return opp.Point{}, fmt.Errorf("%w: slot %d", ErrSlotRange, slot)
	}

	return ch.slots[slot], nil
}

// TableKey returns the selection key of the table the channel runs.
func (e *Engine) TableKey(id dvfs.DomainID) string {
	ch, err := e.channel(id)
	if err != nil {
		return ""
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	return ch.tableKey
}

// Completions returns the number of completion interrupts raised.
func (e *Engine) Completions() uint64 {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.completions
}
