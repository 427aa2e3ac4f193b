package hooking

import "time"

// A list of hook poses for the hooks to apply to
var (
	HookPosTaskStart = &HookPos{Name: "HookPosTaskStart"}
	HookPosTaskStep  = &HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &HookPos{Name: "HookPosTaskEnd"}
)

// TaskStart is data that is passed to the hook when a task starts.
type TaskStart struct {
	ID    string
	Kind  string
	What  string
	Where string
}

// TaskStep is data that is passed to the hook when a task takes a step.
type TaskStep struct {
	TaskID string
	Kind   string
	What   string
	Detail string
}

// TaskEnd is data that is passed to the hook when a task ends. A nil Err
// means the task succeeded.
type TaskEnd struct {
	ID  string
	Err error
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t TaskStart) bool

// A TimeTeller can tell the current time.
type TimeTeller interface {
	Now() time.Time
}

// WallClock tells the time of the host.
type WallClock struct{}

// Now returns time.Now().
func (WallClock) Now() time.Time {
	return time.Now()
}
