package rsp

// Signal is a Unix-style signal number as reported over the wire.
type Signal uint8

// Signals the demo target and tests reference; the core treats Signal as an
// opaque byte and never interprets it beyond what stop-reply formatting
// requires.
const (
	SIGINT  Signal = 2
	SIGTRAP Signal = 5
	SIGABRT Signal = 6
)

// WatchKind distinguishes the three watchpoint flavors.
type WatchKind int

const (
	WatchWrite WatchKind = iota
	WatchRead
	WatchReadWrite
)

// ReplayLogPosition is reported with a ReplayLog stop reason.
type ReplayLogPosition int

const (
	ReplayBegin ReplayLogPosition = iota
	ReplayEnd
)

// CatchSyscallPosition distinguishes syscall entry from return.
type CatchSyscallPosition int

const (
	SyscallEntry CatchSyscallPosition = iota
	SyscallReturn
)

// StopReasonKind tags the StopReason union.
type StopReasonKind int

const (
	StopDoneStep StopReasonKind = iota
	StopExited
	StopTerminated
	StopSignal
	StopSignalWithThread
	StopSwBreak
	StopHwBreak
	StopWatch
	StopReplayLog
	StopCatchSyscall
	StopLibrary
)

// capability returns the Target capability a StopReasonKind requires, or
// capNone if the kind is always permitted (DoneStep, Exited, Terminated, Signal).
// Used by the core to enforce §3's capability-gating invariant.
func (k StopReasonKind) capability() capFlag {
	switch k {
	case StopSwBreak:
		return capSwBreakpoint
	case StopHwBreak:
		return capHwBreakpoint
	case StopWatch:
		return capHwWatchpoint
	case StopReplayLog:
		return capReverseExec
	case StopCatchSyscall:
		return capCatchSyscalls
	case StopLibrary:
		return capLibraries
	default:
		return capNone
	}
}

// StopReason describes why a thread stopped. Targets construct exactly one
// of the tagged fields per Kind; the core never inspects fields outside the
// active Kind.
type StopReason struct {
	Kind StopReasonKind

	TID    ThreadID // SwBreak, HwBreak, Watch, SignalWithThread, Library
	HasTID bool      // ReplayLog, CatchSyscall: TID is optional

	ExitCode  uint8 // Exited
	Signal    Signal
	WatchKind WatchKind
	Addr      uint64 // Watch
	Replay    ReplayLogPosition
	SyscallNo uint64
	SyscallAt CatchSyscallPosition
}

// DoneStep reports completion of a single-step request.
func DoneStep() StopReason { return StopReason{Kind: StopDoneStep} }

// Exited reports process exit with the given status code.
func Exited(code uint8) StopReason { return StopReason{Kind: StopExited, ExitCode: code} }

// Terminated reports process termination by signal.
func Terminated(sig Signal) StopReason { return StopReason{Kind: StopTerminated, Signal: sig} }

// SignalStop reports a program-wide signal with no specific thread.
func SignalStop(sig Signal) StopReason { return StopReason{Kind: StopSignal, Signal: sig} }

// SignalWithThread reports a signal delivered to a specific thread.
func SignalWithThread(tid ThreadID, sig Signal) StopReason {
	return StopReason{Kind: StopSignalWithThread, TID: tid, HasTID: true, Signal: sig}
}

// SwBreak reports a software breakpoint hit. Requires the SwBreakpoint
// capability.
func SwBreak(tid ThreadID) StopReason { return StopReason{Kind: StopSwBreak, TID: tid, HasTID: true} }

// HwBreak reports a hardware breakpoint hit. Requires the HwBreakpoint
// capability.
func HwBreak(tid ThreadID) StopReason { return StopReason{Kind: StopHwBreak, TID: tid, HasTID: true} }

// Watch reports a watchpoint hit. Requires the HwWatchpoint capability.
func Watch(tid ThreadID, kind WatchKind, addr uint64) StopReason {
	return StopReason{Kind: StopWatch, TID: tid, HasTID: true, WatchKind: kind, Addr: addr}
}

// ReplayLog reports the replay log reaching pos. tid is optional.
func ReplayLog(tid *ThreadID, pos ReplayLogPosition) StopReason {
	sr := StopReason{Kind: StopReplayLog, Replay: pos}
	if tid != nil {
		sr.TID, sr.HasTID = *tid, true
	}

	return sr
}

// CatchSyscall reports a syscall entry/return event. tid is optional.
func CatchSyscall(tid *ThreadID, number uint64, at CatchSyscallPosition) StopReason {
	sr := StopReason{Kind: StopCatchSyscall, SyscallNo: number, SyscallAt: at}
	if tid != nil {
		sr.TID, sr.HasTID = *tid, true
	}

	return sr
}

// Library reports that the target's loaded-library list has changed.
// Requires the Libraries or LibrariesSvr4 capability.
func Library(tid ThreadID) StopReason { return StopReason{Kind: StopLibrary, TID: tid, HasTID: true} }
