package demotarget

import (
	"context"
	"sync"

	"github.com/nervctl/rspstub"
)

// Target wires a Machine to the rsp.Target capability surface. It is
// single-threaded: ReadRegisters/WriteRegisters/ReadAddrs/WriteAddrs ignore
// the absence of a ThreadID parameter and always act on its one Machine.
type Target struct {
	m *Machine

	debugInfo ProgramDebugInfo
	pcmap     *PCMap

	resumeAction resumeAction

	hostIO *badgerHostIO

	mu                   sync.Mutex
	libraryReloadPending bool
}

// NotifyImageChanged marks a library-load stop as pending: the next Resume
// call reports it instead of actually continuing, mirroring what a real
// stub does when the loader maps a new shared object mid-session. Intended
// to be called from a ConfigWatcher callback observing the firmware image
// path, so it may run on a different goroutine than Resume.
func (t *Target) NotifyImageChanged() {
	t.mu.Lock()
	t.libraryReloadPending = true
	t.mu.Unlock()
}

// ReloadDebugInfo replaces the target's debug info (and the PCMap derived
// from it) and marks a library-load stop as pending, for a ConfigWatcher
// callback that deserializes a changed image's sidecar debug-info file.
func (t *Target) ReloadDebugInfo(info ProgramDebugInfo) {
	pcmap := BuildPCMap(info)

	t.mu.Lock()
	t.debugInfo = info
	t.pcmap = pcmap
	t.libraryReloadPending = true
	t.mu.Unlock()
}

func (t *Target) takeLibraryReloadPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.libraryReloadPending
	t.libraryReloadPending = false

	return pending
}

// debugInfoSnapshot returns the current debug info and PCMap under lock, so
// a reload racing with a backtrace or library-list query never observes a
// torn combination of the two.
func (t *Target) debugInfoSnapshot() (ProgramDebugInfo, *PCMap) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.debugInfo, t.pcmap
}

// WithHostIO attaches a badger-backed Host-I/O filesystem to the target.
func (t *Target) WithHostIO(h *badgerHostIO) *Target {
	t.hostIO = h
	return t
}

type resumeAction struct {
	kind rsp.ResumeAction
	set  bool
}

// NewTarget constructs a demo Target over a fresh Machine with memSize bytes
// of RAM, optionally carrying program debug info for source-level stops.
func NewTarget(memSize int, info ProgramDebugInfo) *Target {
	return &Target{
		m:         NewMachine(memSize),
		debugInfo: info,
		pcmap:     BuildPCMap(info),
	}
}

// Machine exposes the underlying simulation for the owning command's use
// (loading a program image before the debugger connects).
func (t *Target) Machine() *Machine { return t.m }

func (t *Target) Arch() string { return "demo64" }

func (t *Target) ReadRegisters(ctx context.Context) ([]byte, rsp.TargetError) {
	return t.m.ReadRegisters(), nil
}

func (t *Target) WriteRegisters(ctx context.Context, regs []byte) rsp.TargetError {
	t.m.WriteRegisters(regs)
	return nil
}

func (t *Target) ReadAddrs(ctx context.Context, addr uint64, dst []byte) (int, rsp.TargetError) {
	return t.m.ReadMemory(addr, dst), nil
}

func (t *Target) WriteAddrs(ctx context.Context, addr uint64, data []byte) rsp.TargetError {
	if !t.m.WriteMemory(addr, data) {
		return rsp.Errno(14) // EFAULT
	}

	return nil
}

func (t *Target) SingleRegisterOps() (rsp.SingleRegisterOps, bool) { return t, true }

func (t *Target) ReadRegister(ctx context.Context, id uint64, dst []byte) (int, rsp.TargetError) {
	b, ok := t.m.ReadRegister(int(id))
	if !ok {
		return 0, rsp.Errno(14)
	}

	return copy(dst, b), nil
}

func (t *Target) WriteRegister(ctx context.Context, id uint64, src []byte) rsp.TargetError {
	if !t.m.WriteRegister(int(id), src) {
		return rsp.Errno(14)
	}

	return nil
}

func (t *Target) ResumeOps() (rsp.ResumeOps, bool) { return t, true }

func (t *Target) ClearResumeActions() { t.resumeAction = resumeAction{} }

func (t *Target) SetResumeActionContinue(tid *rsp.ThreadID, sig *rsp.Signal) {
	t.resumeAction = resumeAction{kind: rsp.ActionContinue, set: true}
}

func (t *Target) SetResumeActionStep(tid *rsp.ThreadID, sig *rsp.Signal) {
	t.resumeAction = resumeAction{kind: rsp.ActionStep, set: true}
}

func (t *Target) SetResumeActionRangeStep(tid *rsp.ThreadID, start, end uint64) {
	t.resumeAction = resumeAction{kind: rsp.ActionRangeStep, set: true}
}

// Resume runs the queued action synchronously: a demo stub has no real
// latency to hide behind an asynchronous stop channel.
func (t *Target) Resume(ctx context.Context, checkInterrupt func() bool) (rsp.StopReason, bool, rsp.TargetError) {
	if t.takeLibraryReloadPending() {
		return rsp.Library(rsp.SingleThreadID), true, nil
	}

	if !t.resumeAction.set {
		return rsp.DoneStep(), true, nil
	}

	switch t.resumeAction.kind {
	case rsp.ActionStep:
		t.m.Step()
		return rsp.DoneStep(), true, nil

	default: // ActionContinue, ActionRangeStep
		t.m.Continue()

		for {
			if checkInterrupt != nil && checkInterrupt() {
				return rsp.SignalWithThread(rsp.SingleThreadID, rsp.SIGINT), true, nil
			}

			t.m.Step()

			if t.m.AtBreakpoint() {
				t.m.Halt()
				return rsp.SwBreak(rsp.SingleThreadID), true, nil
			}
		}
	}
}

func (t *Target) SwBreakpointOps() (rsp.BreakpointOps, bool) { return swBreakpoints{t.m}, true }
func (t *Target) HwBreakpointOps() (rsp.BreakpointOps, bool) { return hwBreakpoints{t.m}, true }
func (t *Target) HwWatchpointOps() (rsp.WatchpointOps, bool) { return watchpoints{t.m}, true }

type swBreakpoints struct{ m *Machine }

func (b swBreakpoints) AddBreakpoint(ctx context.Context, addr uint64, kind rsp.BreakpointKind) (bool, rsp.TargetError) {
	return b.m.AddSwBreakpoint(addr), nil
}

func (b swBreakpoints) RemoveBreakpoint(ctx context.Context, addr uint64, kind rsp.BreakpointKind) (bool, rsp.TargetError) {
	return b.m.RemoveSwBreakpoint(addr), nil
}

type hwBreakpoints struct{ m *Machine }

func (b hwBreakpoints) AddBreakpoint(ctx context.Context, addr uint64, kind rsp.BreakpointKind) (bool, rsp.TargetError) {
	return b.m.AddHwBreakpoint(addr), nil
}

func (b hwBreakpoints) RemoveBreakpoint(ctx context.Context, addr uint64, kind rsp.BreakpointKind) (bool, rsp.TargetError) {
	return b.m.RemoveHwBreakpoint(addr), nil
}

type watchpoints struct{ m *Machine }

func (w watchpoints) AddWatchpoint(ctx context.Context, addr, length uint64, kind rsp.WatchKind) (bool, rsp.TargetError) {
	return w.m.AddWatchpoint(addr, length, int(kind)), nil
}

func (w watchpoints) RemoveWatchpoint(ctx context.Context, addr, length uint64, kind rsp.WatchKind) (bool, rsp.TargetError) {
	return w.m.RemoveWatchpoint(addr, length, int(kind)), nil
}

func (t *Target) SectionOffsetsOps() (rsp.SectionOffsetsOps, bool) { return t, true }

func (t *Target) SectionOffsets(ctx context.Context) (text, data, bss uint64, err rsp.TargetError) {
	return 0, 0, 0, nil
}

func (t *Target) TargetDescriptionOps() (rsp.TargetDescriptionOps, bool) { return t, true }

func (t *Target) TargetDescriptionXML(ctx context.Context) ([]byte, rsp.TargetError) {
	return []byte(demo64TargetXML), nil
}

const demo64TargetXML = `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target>
  <architecture>demo64</architecture>
  <feature name="org.rspstub.demo64.core">
    <reg name="r0" bitsize="64" type="int"/>
    <reg name="r1" bitsize="64" type="int"/>
    <reg name="r2" bitsize="64" type="int"/>
    <reg name="r3" bitsize="64" type="int"/>
    <reg name="r4" bitsize="64" type="int"/>
    <reg name="r5" bitsize="64" type="int"/>
    <reg name="r6" bitsize="64" type="int"/>
    <reg name="r7" bitsize="64" type="int"/>
    <reg name="pc" bitsize="64" type="code_ptr"/>
  </feature>
</target>
`

// The remaining optional capabilities are not meaningful for an in-memory
// demo target; each probe returns ok=false so the core never advertises or
// dispatches the corresponding wire commands. MonitorCmdOps is the
// exception: it returns the demo console (demoMonitor below).
func (t *Target) ExtendedModeOps() (rsp.ExtendedModeOps, bool)         { return nil, false }
func (t *Target) MonitorCmdOps() (rsp.MonitorCmdOps, bool)             { return demoMonitor{t}, true }
func (t *Target) MemoryMapOps() (rsp.MemoryMapOps, bool)               { return nil, false }
func (t *Target) FlashOps() (rsp.FlashOps, bool)                       { return nil, false }
func (t *Target) ExecFileOps() (rsp.ExecFileOps, bool)                 { return nil, false }
func (t *Target) AuxvOps() (rsp.AuxvOps, bool)                         { return nil, false }
func (t *Target) LibrariesOps() (rsp.LibrariesOps, bool)               { return nil, false }
func (t *Target) CatchSyscallsOps() (rsp.CatchSyscallsOps, bool)       { return nil, false }
func (t *Target) TracepointOps() (rsp.TracepointOps, bool)             { return nil, false }
func (t *Target) ReverseExecOps() (rsp.ReverseExecOps, bool)           { return nil, false }
func (t *Target) ThreadExtraInfoOps() (rsp.ThreadExtraInfoOps, bool)   { return nil, false }
func (t *Target) LLDBRegisterInfoOps() (rsp.LLDBRegisterInfoOps, bool) { return nil, false }

// LibrariesSvr4Ops answers `qXfer:libraries-svr4:read` with the module list
// derived from the attached debug info, letting a firmware-image reload
// (see NotifyImageChanged) report a real Library stop reason.
func (t *Target) LibrariesSvr4Ops() (rsp.LibrariesOps, bool) { return svr4Libraries{t}, true }

type svr4Libraries struct{ t *Target }

func (l svr4Libraries) LibrariesXML(ctx context.Context) ([]byte, rsp.TargetError) {
	_, pcmap := l.t.debugInfoSnapshot()
	return LibraryListSVR4XML(pcmap), nil
}

type demoMonitor struct{ t *Target }

func (d demoMonitor) HandleMonitorCmd(ctx context.Context, cmd []byte, console func([]byte)) rsp.TargetError {
	switch string(cmd) {
	case "regs":
		console(d.t.m.ReadRegisters())
	case "halted":
		if d.t.m.Halted() {
			console([]byte("halted\n"))
		} else {
			console([]byte("running\n"))
		}
	case "backtrace":
		info, pcmap := d.t.debugInfoSnapshot()
		st := BuildStackTrace(pcmap, info, d.t.m.PC())
		console(EncodeStackTraceJSON(st))
		console([]byte("\n"))
	default:
		console([]byte("unknown monitor command\n"))
	}

	return nil
}

func (t *Target) HostIOOps() (rsp.HostIOOps, bool) {
	if t.hostIO == nil {
		return nil, false
	}

	return t.hostIO, true
}
