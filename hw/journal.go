package hw

import "sync"

// OpKind tells which kind of hardware knob an operation touched.
type OpKind int

// Known operation kinds.
const (
	OpVoltage OpKind = iota
	OpClock
)

func (k OpKind) String() string {
	switch k {
	case OpVoltage:
		return "voltage"
	case OpClock:
		return "clock"
	default:
		return "unknown"
	}
}

// Op is one recorded hardware operation.
type Op struct {
	Seq    uint64
	Kind   OpKind
	Target string
	Value  uint64
	OK     bool
}

// A Journal keeps the order in which simulated hardware was programmed. It is
// shared by all the models of a board so that the relative order of voltage
// and clock changes can be checked.
type Journal struct {
	mu   sync.Mutex
	next uint64
	ops  []Op
}

// NewJournal creates an empty Journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an operation. Recording into a nil Journal is a no-op.
func (j *Journal) Record(kind OpKind, target string, value uint64, ok bool) {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.next++
	j.ops = append(j.ops, Op{
		Seq:    j.next,
		Kind:   kind,
		Target: target,
		Value:  value,
		OK:     ok,
	})
}

// Ops returns a copy of all recorded operations.
func (j *Journal) Ops() []Op {
	j.mu.Lock()
	defer j.mu.Unlock()

	ops := make([]Op, len(j.ops))
	copy(ops, j.ops)

	return ops
}

// Kinds returns the kinds of the recorded operations, in order.
func (j *Journal) Kinds() []OpKind {
	ops := j.Ops()

	kinds := make([]OpKind, 0, len(ops))
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}

	return kinds
}

// Reset drops all recorded operations.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.ops = nil
}
