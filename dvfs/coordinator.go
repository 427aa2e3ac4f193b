package dvfs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/opp"
)

// DefaultFallDelay is how long a temperature must stay below its bracket
// before the table is rebuilt for the lower bracket.
const DefaultFallDelay = 2 * time.Second

// Coordinator owns the domains and runs every transition.
type Coordinator struct {
	hooking.HookableBase

	registry   *Registry
	logger     *slog.Logger
	timeTeller hooking.TimeTeller
	fallDelay  time.Duration
	backend    Backend
	tables     opp.Builder
}

// Builder builds Coordinators.
type Builder struct {
	capacity   int
	logger     *slog.Logger
	timeTeller hooking.TimeTeller
	fallDelay  time.Duration
	backend    Backend
	socVersion string
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		capacity:   DefaultCapacity,
		timeTeller: hooking.WallClock{},
		fallDelay:  DefaultFallDelay,
	}
}

// WithCapacity sets the number of domain slots.
func (b Builder) WithCapacity(n int) Builder {
	b.capacity = n
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithTimeTeller sets the clock used for temperature fall deadlines.
func (b Builder) WithTimeTeller(t hooking.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithFallDelay sets how long a lower temperature must last before tables
// are rebuilt.
func (b Builder) WithFallDelay(d time.Duration) Builder {
	b.fallDelay = d
	return b
}

// WithHardwareBackend attaches a hardware sequencer. Every committed table is
// then registered with it.
func (b Builder) WithHardwareBackend(backend Backend) Builder {
	b.backend = backend
	return b
}

// WithSocVersion sets the chip version used to select versioned tables.
func (b Builder) WithSocVersion(v string) Builder {
	b.socVersion = v
	return b
}

// Build creates the coordinator.
func (b Builder) Build() *Coordinator {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		registry:   NewRegistry(b.capacity),
		logger:     logger,
		timeTeller: b.timeTeller,
		fallDelay:  b.fallDelay,
		backend:    b.backend,
		tables: opp.MakeBuilder().
			WithSocVersion(b.socVersion).
			WithLogger(logger),
	}
}

// Registry returns the domain registry.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Logger returns the logger of the coordinator.
func (c *Coordinator) Logger() *slog.Logger {
	return c.logger
}

// TimeTeller returns the clock used for thermal deadlines.
func (c *Coordinator) TimeTeller() hooking.TimeTeller {
	return c.timeTeller
}

// Backend returns the attached hardware backend, if any.
func (c *Coordinator) Backend() Backend {
	return c.backend
}

// AddDomain initializes a domain. The domain joins the rail group of the
// registered domains it shares voltage with, whichever side declares the
// link, or starts a new group.
func (c *Coordinator) AddDomain(spec DomainSpec) error {
	d, err := c.registry.GetOrCreate(spec.ID)
	if err != nil {
		return err
	}

	if _, ready := c.registry.Lookup(spec.ID); ready {
		return fmt.Errorf("dvfs: domain %d registered twice", spec.ID)
	}

	for _, id := range spec.Relations.All().IDs() {
		if _, err := c.registry.GetOrCreate(id); err != nil {
			return fmt.Errorf("domain %d relation: %w", spec.ID, err)
		}
	}

	if spec.Binning == nil {
		spec.Binning = opp.StaticBinning{}
	}

	d.name = spec.Name
	d.leaf = spec.Leaf
	d.cpus = append([]int(nil), spec.CPUs...)
	d.rel = spec.Relations
	d.clock = spec.Clock
	d.descriptor = spec.Tables
	d.binning = spec.Binning
	d.baseLatency = spec.TransitionLatency
	d.voltTol = spec.VoltTolerance

	if d.leaf {
		d.registration = opp.NewRegistration()
	}

	rail, err := c.resolveRail(spec.Relations, spec.ID)
	if err != nil {
		return err
	}

	if rail == nil {
		rail = &RailGroup{
			owner:     spec.ID,
			regulator: spec.Regulator,
			external:  spec.ExternalVoter,
		}
	}

	temp := c.inheritedTemp(spec.ID, spec.TempC)

	rail.Lock()

	// A slave registered before its host leaves the group without the
	// knobs the host brings.
	if rail.regulator == nil {
		rail.regulator = spec.Regulator
	}

	if rail.external == nil {
		rail.external = spec.ExternalVoter
	}

	d.rail = rail
	err = c.initLocked(d, temp)
	rail.Unlock()

	if err != nil {
		return err
	}

	c.registry.markReady(spec.ID)

	if c.backend != nil {
		if err := c.backend.Enable(spec.ID, true); err != nil {
			return fmt.Errorf("domain %d: enable backend: %w", spec.ID, err)
		}
	}

	c.logger.Info("domain registered",
		"domain", spec.ID, "name", d.name,
		"rail_owner", d.rail.Owner(), "table", d.selectionKey)

	return nil
}

func (c *Coordinator) initLocked(d *Domain, temp int) error {
	if d.clock != nil {
		if err := d.clock.Enable(); err != nil {
			return fmt.Errorf("domain %d: enable clock: %w", d.id, err)
		}

		d.freqReq = d.clock.Rate()
	}

	if reg := d.rail.regulator; reg != nil {
		uv, err := reg.Voltage()
		if err != nil {
			return fmt.Errorf("domain %d: read voltage: %w", d.id, err)
		}

		d.voltReq = uv
	}

	staged, err := c.stage(d, temp)
	if err != nil {
		return err
	}

	if err := c.commit(staged); err != nil {
		return err
	}

	d.online = true

	return nil
}

func (c *Coordinator) inheritedTemp(id DomainID, fallback int) int {
	for _, host := range c.registry.Ready() {
		if !host.rel.SubDomains.Has(id) {
			continue
		}

		host.rail.Lock()
		t := host.temp.now
		host.rail.Unlock()

		return t
	}

	return fallback
}

// Domain returns a snapshot of a domain.
func (c *Coordinator) Domain(id DomainID) (DomainInfo, error) {
	d, ok := c.registry.Lookup(id)
	if !ok {
		return DomainInfo{}, fmt.Errorf("%w: %d", ErrUnknownDomain, id)
	}

	d.rail.Lock()
	defer d.rail.Unlock()

	return d.infoLocked(), nil
}

// Domains returns a snapshot of every registered domain.
func (c *Coordinator) Domains() []DomainInfo {
	var infos []DomainInfo

	for _, d := range c.registry.Ready() {
		d.rail.Lock()
		infos = append(infos, d.infoLocked())
		d.rail.Unlock()
	}

	return infos
}

func (c *Coordinator) lookup(id DomainID) (*Domain, error) {
	d, ok := c.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDomain, id)
	}

	return d, nil
}

func (c *Coordinator) startTask(kind, what string, d *Domain) string {
	id := xid.New().String()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosTaskStart,
		Item: hooking.TaskStart{
			ID:    id,
			Kind:  kind,
			What:  what,
			Where: d.name,
		},
	})

	return id
}

func (c *Coordinator) endTask(id string, err error) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosTaskEnd,
		Item:   hooking.TaskEnd{ID: id, Err: err},
	})
}
