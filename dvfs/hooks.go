package dvfs

import (
	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/opp"
)

// Task kinds reported at hooking.HookPosTaskStart.
const (
	TaskKindTransition = "transition"
	TaskKindRebuild    = "rebuild"
)

// Hook positions specific to domains.
var (
	HookPosVoltageSet    = &hooking.HookPos{Name: "VoltageSet"}
	HookPosClockSet      = &hooking.HookPos{Name: "ClockSet"}
	HookPosTableCommit   = &hooking.HookPos{Name: "TableCommit"}
	HookPosDomainOnline  = &hooking.HookPos{Name: "DomainOnline"}
	HookPosDomainOffline = &hooking.HookPos{Name: "DomainOffline"}
)

// VoltageStep is passed to hooks after a regulator is programmed.
type VoltageStep struct {
	TaskID    string
	Domain    DomainID
	Regulator string
	TargetUV  uint64
	Err       error
}

// ClockStep is passed to hooks after a clock is programmed.
type ClockStep struct {
	TaskID   string
	Domain   DomainID
	Clock    string
	TargetHz uint64
	Err      error
}

// TableCommit is passed to hooks when a domain switches table.
type TableCommit struct {
	Domain       DomainID
	SelectionKey string
	TempC        int
	Points       opp.Table
	Dropped      int
}

// StateChange is passed to hooks when a domain goes online or offline.
type StateChange struct {
	Domain DomainID
	Online bool
}
