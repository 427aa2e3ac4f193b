package hooking

import (
	"sync"
	"time"
)

type inflightTask struct {
	kind  string
	start time.Time
}

// LatencyTracer collects the total and average time of executing tasks,
// grouped by task kind. Failed tasks are counted separately and do not
// contribute to the latency.
type LatencyTracer struct {
	timeTeller    TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[string]inflightTask
	totalTime     map[string]time.Duration
	taskCount     map[string]uint64
	failCount     map[string]uint64
}

// NewLatencyTracer creates a new LatencyTracer. A nil filter accepts every
// task.
func NewLatencyTracer(
	timeTeller TimeTeller,
	filter TaskFilter,
) *LatencyTracer {
	t := &LatencyTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]inflightTask),
		totalTime:     make(map[string]time.Duration),
		taskCount:     make(map[string]uint64),
		failCount:     make(map[string]uint64),
	}

	return t
}

// Func records the start end of a task.
func (t *LatencyTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx.Item.(TaskStart))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// StartTask records the task start time
func (t *LatencyTracer) StartTask(taskStart TaskStart) {
	if t.filter != nil && !t.filter(taskStart) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[taskStart.ID] = inflightTask{
		kind:  taskStart.Kind,
		start: t.timeTeller.Now(),
	}
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *LatencyTracer) EndTask(taskEnd TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	task, ok := t.inflightTasks[taskEnd.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, taskEnd.ID)

	if taskEnd.Err != nil {
		t.failCount[task.kind]++
		return
	}

	t.totalTime[task.kind] += t.timeTeller.Now().Sub(task.start)
	t.taskCount[task.kind]++
}

// AverageTime returns the average time spent on the successful tasks of a
// kind.
func (t *LatencyTracer) AverageTime(kind string) time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount[kind] == 0 {
		return 0
	}

	return t.totalTime[kind] / time.Duration(t.taskCount[kind])
}

// TotalCount returns the number of successful tasks of a kind.
func (t *LatencyTracer) TotalCount(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount[kind]
}

// FailedCount returns the number of failed tasks of a kind.
func (t *LatencyTracer) FailedCount(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.failCount[kind]
}

// InflightCount returns the number of tasks started but not ended.
func (t *LatencyTracer) InflightCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}
