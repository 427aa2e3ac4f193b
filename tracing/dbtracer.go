// Package tracing records what DVFS domains do into a data recorder.
package tracing

import (
	"sync"

	"github.com/sarchlab/swdvfs/datarecording"
	"github.com/sarchlab/swdvfs/dvfs"
	"github.com/sarchlab/swdvfs/hooking"
)

// Table names written by a DBTracer.
const (
	TableTasks  = "dvfs_tasks"
	TableSteps  = "dvfs_steps"
	TableTables = "dvfs_tables"
	TableStates = "dvfs_states"
)

// TaskEntry is a row of TableTasks. Times are Unix nanoseconds; unfinished
// tasks end at -1.
type TaskEntry struct {
	ID      string
	Kind    string
	What    string
	Where   string
	StartNs int64
	EndNs   int64
	OK      bool
	Error   string
}

// StepEntry is a row of TableSteps.
type StepEntry struct {
	TaskID string
	Domain int
	Knob   string
	Name   string
	Target int64
	TimeNs int64
	OK     bool
}

// TableEntry is a row of TableTables.
type TableEntry struct {
	Domain       int
	SelectionKey string
	TempC        int
	Points       int
	MaxFreqKHz   int64
	Dropped      int
	TimeNs       int64
}

// StateEntry is a row of TableStates.
type StateEntry struct {
	Domain int
	Online bool
	TimeNs int64
}

// DBTracer is a hook that stores tasks, hardware steps, table commits, and
// state changes.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller hooking.TimeTeller
	backend    datarecording.DataRecorder

	inflight map[string]TaskEntry
}

// NewDBTracer creates the tables of the tracer in the recorder.
func NewDBTracer(
	timeTeller hooking.TimeTeller,
	recorder datarecording.DataRecorder,
) *DBTracer {
	recorder.CreateTable(TableTasks, TaskEntry{})
	recorder.CreateTable(TableSteps, StepEntry{})
	recorder.CreateTable(TableTables, TableEntry{})
	recorder.CreateTable(TableStates, StateEntry{})

	return &DBTracer{
		timeTeller: timeTeller,
		backend:    recorder,
		inflight:   make(map[string]TaskEntry),
	}
}

// Func records the item of a hook invocation.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case hooking.TaskStart:
		t.startTask(item)
	case hooking.TaskEnd:
		t.endTask(item)
	case dvfs.VoltageStep:
		t.step(item.TaskID, item.Domain, "voltage",
			item.Regulator, item.TargetUV, item.Err)
	case dvfs.ClockStep:
		t.step(item.TaskID, item.Domain, "clock",
			item.Clock, item.TargetHz, item.Err)
	case dvfs.TableCommit:
		t.tableCommit(item)
	case dvfs.StateChange:
		t.backend.InsertData(TableStates, StateEntry{
			Domain: int(item.Domain),
			Online: item.Online,
			TimeNs: t.now(),
		})
	}
}

func (t *DBTracer) now() int64 {
	return t.timeTeller.Now().UnixNano()
}

func (t *DBTracer) startTask(task hooking.TaskStart) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight[task.ID] = TaskEntry{
		ID:      task.ID,
		Kind:    task.Kind,
		What:    task.What,
		Where:   task.Where,
		StartNs: t.now(),
		EndNs:   -1,
	}
}

func (t *DBTracer) endTask(end hooking.TaskEnd) {
	t.mu.Lock()
	entry, ok := t.inflight[end.ID]
	delete(t.inflight, end.ID)
	t.mu.Unlock()

	if !ok {
		return
	}

	entry.EndNs = t.now()
	entry.OK = end.Err == nil

	if end.Err != nil {
		entry.Error = end.Err.Error()
	}

	t.backend.InsertData(TableTasks, entry)
}

func (t *DBTracer) step(
	taskID string,
	domain dvfs.DomainID,
	knob, name string,
	target uint64,
	err error,
) {
	t.backend.InsertData(TableSteps, StepEntry{
		TaskID: taskID,
		Domain: int(domain),
		Knob:   knob,
		Name:   name,
		Target: int64(target),
		TimeNs: t.now(),
		OK:     err == nil,
	})
}

func (t *DBTracer) tableCommit(c dvfs.TableCommit) {
	t.backend.InsertData(TableTables, TableEntry{
		Domain:       int(c.Domain),
		SelectionKey: c.SelectionKey,
		TempC:        c.TempC,
		Points:       len(c.Points),
		MaxFreqKHz:   int64(c.Points.MaxFreqKHz()),
		Dropped:      c.Dropped,
		TimeNs:       t.now(),
	})
}

// Terminate writes the tasks that never ended and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.inflight {
		t.backend.InsertData(TableTasks, entry)
	}

	t.inflight = make(map[string]TaskEntry)
	t.backend.Flush()
}
