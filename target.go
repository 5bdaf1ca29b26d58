package rsp

import "context"

// Target is the contract the embedder implements. The core never type-asserts
// a capability more than is documented here; every optional sub-interface is
// discovered through a nullable probe method, following the nullable-accessor
// pattern of §4.6 and §9. A probe returning ok=false means "unsupported" —
// the core must not dispatch the corresponding wire command, and must reject
// a StopReason requiring that capability (see CapabilityMisuseError).
//
// Embedders implement the mandatory base ops either as a SingleThreadBase or
// a MultiThreadBase; ProtocolCore type-switches on which one Target
// implements to decide whether it runs in single- or multi-thread mode.
type Target interface {
	// Arch identifies the register layout/pointer-size description this
	// Target uses; it is opaque to the core beyond being handed back in
	// qXfer:features:read responses via TargetDescriptionOps.
	Arch() string

	SingleRegisterOps() (SingleRegisterOps, bool)
	ResumeOps() (ResumeOps, bool)
	SwBreakpointOps() (BreakpointOps, bool)
	HwBreakpointOps() (BreakpointOps, bool)
	HwWatchpointOps() (WatchpointOps, bool)
	ExtendedModeOps() (ExtendedModeOps, bool)
	MonitorCmdOps() (MonitorCmdOps, bool)
	SectionOffsetsOps() (SectionOffsetsOps, bool)
	MemoryMapOps() (MemoryMapOps, bool)
	FlashOps() (FlashOps, bool)
	TargetDescriptionOps() (TargetDescriptionOps, bool)
	HostIOOps() (HostIOOps, bool)
	ExecFileOps() (ExecFileOps, bool)
	AuxvOps() (AuxvOps, bool)
	LibrariesOps() (LibrariesOps, bool)
	LibrariesSvr4Ops() (LibrariesOps, bool)
	CatchSyscallsOps() (CatchSyscallsOps, bool)
	TracepointOps() (TracepointOps, bool)
	ReverseExecOps() (ReverseExecOps, bool)
	ThreadExtraInfoOps() (ThreadExtraInfoOps, bool)
	LLDBRegisterInfoOps() (LLDBRegisterInfoOps, bool)
}

// SingleThreadBase is the mandatory base-ops shape for targets with exactly
// one schedulable thread.
type SingleThreadBase interface {
	Target
	ReadRegisters(ctx context.Context) ([]byte, TargetError)
	WriteRegisters(ctx context.Context, regs []byte) TargetError
	ReadAddrs(ctx context.Context, addr uint64, dst []byte) (int, TargetError)
	WriteAddrs(ctx context.Context, addr uint64, data []byte) TargetError
}

// MultiThreadBase is the mandatory base-ops shape for targets that schedule
// more than one thread.
type MultiThreadBase interface {
	Target
	ReadRegisters(ctx context.Context, tid ThreadID) ([]byte, TargetError)
	WriteRegisters(ctx context.Context, tid ThreadID, regs []byte) TargetError
	ReadAddrs(ctx context.Context, tid ThreadID, addr uint64, dst []byte) (int, TargetError)
	WriteAddrs(ctx context.Context, tid ThreadID, addr uint64, data []byte) TargetError
	ListActiveThreads(ctx context.Context, yield func(ThreadID) bool) TargetError
	IsThreadAlive(ctx context.Context, tid ThreadID) (bool, TargetError)
}

// SingleRegisterOps allows reading/writing one register at a time.
type SingleRegisterOps interface {
	ReadRegister(ctx context.Context, id uint64, dst []byte) (int, TargetError)
	WriteRegister(ctx context.Context, id uint64, src []byte) TargetError
}

// ResumeAction is one element of a parsed vCont packet.
type ResumeAction int

const (
	ActionContinue ResumeAction = iota
	ActionContinueSignal
	ActionStep
	ActionStepSignal
	ActionRangeStep
)

// ResumeOps drives continue/step execution. Single-thread targets ignore the
// TID argument (always SingleThreadID); multi-thread targets receive
// per-thread action sequences built by the core from a vCont packet (see
// command_resume.go).
type ResumeOps interface {
	// ClearResumeActions discards any previously queued per-thread
	// actions. Called once per vCont before SetResumeAction*.
	ClearResumeActions()
	// SetResumeActionContinue queues a continue (optionally with
	// signal) for tid, or the default action if tid is nil.
	SetResumeActionContinue(tid *ThreadID, sig *Signal)
	// SetResumeActionStep queues a step (optionally with signal) for
	// tid, or the default action if tid is nil.
	SetResumeActionStep(tid *ThreadID, sig *Signal)
	// SetResumeActionRangeStep queues a range-step over [start,end) for
	// tid, or the default action if tid is nil.
	SetResumeActionRangeStep(tid *ThreadID, start, end uint64)
	// Resume executes the queued actions. It may return a StopReason
	// synchronously, or (ok=false) signal that the reason will arrive
	// later via the driver's asynchronous stop-reason channel.
	Resume(ctx context.Context, checkInterrupt func() bool) (StopReason, bool, TargetError)
}

// BreakpointKind is the architecture-defined breakpoint kind byte from the
// Z/z packet; the core passes it through uninterpreted.
type BreakpointKind uint64

// BreakpointOps adds/removes software or hardware breakpoints.
type BreakpointOps interface {
	AddBreakpoint(ctx context.Context, addr uint64, kind BreakpointKind) (bool, TargetError)
	RemoveBreakpoint(ctx context.Context, addr uint64, kind BreakpointKind) (bool, TargetError)
}

// BytecodeAgentOps is an additional capability a BreakpointOps value may
// implement to support conditional/command agent-bytecode expressions (§4.8).
type BytecodeAgentOps interface {
	// RegisterBytecode hands bytecode to the Target's agent, returning an
	// opaque identifier to associate with the breakpoint.
	RegisterBytecode(ctx context.Context, bytecode []byte) (id uint64, evaluatedByCore bool, err TargetError)
}

// WatchpointOps adds/removes hardware watchpoints.
type WatchpointOps interface {
	AddWatchpoint(ctx context.Context, addr, length uint64, kind WatchKind) (bool, TargetError)
	RemoveWatchpoint(ctx context.Context, addr, length uint64, kind WatchKind) (bool, TargetError)
}

// ExtendedModeOps implements RSP extended-mode process lifecycle commands.
type ExtendedModeOps interface {
	Run(ctx context.Context, filename string, args [][]byte, cfg RunConfig) (ThreadID, TargetError)
	Attach(ctx context.Context, pid uint64) (ThreadID, TargetError)
	Kill(ctx context.Context, pid *uint64) TargetError
	Restart(ctx context.Context) TargetError
	CurrentActivePID(ctx context.Context) (uint64, bool)
}

// RunConfig accumulates the `QEnvironmentHexEncoded`/`QEnvironmentUnset`/
// `QEnvironmentReset`/`QDisableRandomization`/`QStartupWithShell`/
// `QSetWorkingDir` packets GDB sends before a `vRun`, so an ExtendedModeOps
// implementation can apply them when spawning the new inferior.
type RunConfig struct {
	EnvSet               map[string]string
	EnvUnset             []string
	DisableRandomization bool
	StartupWithShell     bool
	WorkingDir           string
}

// MonitorCmdOps implements the `qRcmd` monitor-command console.
type MonitorCmdOps interface {
	HandleMonitorCmd(ctx context.Context, cmd []byte, console func([]byte)) TargetError
}

// SectionOffsetsOps answers `qOffsets`.
type SectionOffsetsOps interface {
	SectionOffsets(ctx context.Context) (text, data, bss uint64, err TargetError)
}

// MemoryMapOps answers `qXfer:memory-map:read` with static XML.
type MemoryMapOps interface {
	MemoryMapXML(ctx context.Context) ([]byte, TargetError)
}

// FlashOps implements the flash-memory programming sub-protocol.
type FlashOps interface {
	FlashErase(ctx context.Context, addr, length uint64) TargetError
	FlashWrite(ctx context.Context, addr uint64, data []byte) TargetError
	FlashDone(ctx context.Context) TargetError
}

// TargetDescriptionOps overrides the architecture-default `target.xml`.
type TargetDescriptionOps interface {
	TargetDescriptionXML(ctx context.Context) ([]byte, TargetError)
}

// HostIOOpenFlags mirrors the wire's O_* bitmask for vFile:open.
type HostIOOpenFlags uint32

// HostIOOps implements Host-I/O (`vFile:*`).
type HostIOOps interface {
	HostOpen(ctx context.Context, path []byte, flags HostIOOpenFlags, mode uint32) (fd int64, err TargetError)
	HostClose(ctx context.Context, fd int64) TargetError
	HostPRead(ctx context.Context, fd int64, count, offset uint64) ([]byte, TargetError)
	HostPWrite(ctx context.Context, fd int64, offset uint64, data []byte) (written int64, err TargetError)
	HostFStat(ctx context.Context, fd int64) (HostStat, TargetError)
	HostUnlink(ctx context.Context, path []byte) TargetError
	HostReadlink(ctx context.Context, path []byte) ([]byte, TargetError)
	HostSetFS(ctx context.Context, pid uint64) TargetError
}

// HostStat is the subset of `struct stat` the Host-I/O protocol reports.
type HostStat struct {
	Size  uint64
	Mode  uint32
	MTime uint64
}

// ExecFileOps answers `qXfer:exec-file:read`.
type ExecFileOps interface {
	ExecFile(ctx context.Context, pid uint64) ([]byte, TargetError)
}

// AuxvOps answers `qXfer:auxv:read`.
type AuxvOps interface {
	Auxv(ctx context.Context) ([]byte, TargetError)
}

// LibrariesOps answers `qXfer:libraries:read` or `qXfer:libraries-svr4:read`
// depending on which probe returned it.
type LibrariesOps interface {
	LibrariesXML(ctx context.Context) ([]byte, TargetError)
}

// CatchSyscallsOps implements `QCatchSyscalls`.
type CatchSyscallsOps interface {
	EnableCatchSyscalls(ctx context.Context, numbers []uint64, all bool) TargetError
	DisableCatchSyscalls(ctx context.Context) TargetError
}

// ReverseExecOps implements `bc`/`bs` reverse execution.
type ReverseExecOps interface {
	ReverseCont(ctx context.Context, checkInterrupt func() bool) (StopReason, TargetError)
	ReverseStep(ctx context.Context, tid ThreadID, checkInterrupt func() bool) (StopReason, TargetError)
}

// ThreadExtraInfoOps answers `qThreadExtraInfo`.
type ThreadExtraInfoOps interface {
	ThreadExtraInfo(ctx context.Context, tid ThreadID) ([]byte, TargetError)
}

// LLDBRegisterInfoOps overrides per-register metadata for LLDB's
// `qRegisterInfo` sequence.
type LLDBRegisterInfoOps interface {
	RegisterInfo(ctx context.Context, id uint64) (name string, bitsize int, encoding string, format string, ok bool)
}

// TracepointOps implements the tracepoint sub-protocol (§4.9).
type TracepointOps interface {
	// DefineTracepoint handles both the initial QTDP form and its
	// continuation forms (the core tells appended by continued=true).
	DefineTracepoint(ctx context.Context, def TracepointDef, continued bool) TargetError
	AttachSourceString(ctx context.Context, number, addr uint64, src []byte) TargetError
	TracepointStatus(ctx context.Context, number, addr uint64) (TracepointStatus, TargetError)
	// Enumerate drives a cursor the core stores on the session's behalf
	// (§3's "tracked resume context" note extends to this cursor); index
	// is 0 on the first call (`qTfP`) and increments on each subsequent
	// call (`qTsP`) until done=true.
	Enumerate(ctx context.Context, index int) (step TracepointEnumStep, done bool, err TargetError)
	TraceBufferConfig(ctx context.Context, circular bool, sizeLimit int64) TargetError
	TraceBufferRead(ctx context.Context, offset, length uint64) ([]byte, TargetError)
	ExperimentStart(ctx context.Context) TargetError
	ExperimentStop(ctx context.Context) TargetError
	ExperimentStatus(ctx context.Context) (running bool, explanation string, err TargetError)
	// SelectFrame selects a recorded trace frame. Subsequent register and
	// memory reads must reflect that frame's snapshot until the next
	// SelectFrame call; the core only routes the selection through, the
	// Target owns the snapshot semantics.
	SelectFrame(ctx context.Context, sel FrameSelector) (frameIndex int, found bool, err TargetError)
}

// TracepointDef is one QTDP definition (initial form fields populated;
// continuation forms populate only Actions/Number/Addr).
type TracepointDef struct {
	Number   uint64
	Addr     uint64
	Enabled  bool
	StepSize uint64
	Actions  [][]byte
}

// TracepointStatus answers `qTP`.
type TracepointStatus struct {
	Hit   bool
	Count uint64
}

// TracepointEnumStepKind tags one step of tracepoint enumeration.
type TracepointEnumStepKind int

const (
	EnumNew TracepointEnumStepKind = iota
	EnumAction
	EnumSource
)

// TracepointEnumStep is one `qTfP`/`qTsP` reply.
type TracepointEnumStep struct {
	Kind TracepointEnumStepKind
	Def  TracepointDef
	Raw  []byte
}

// FrameSelectorKind tags the five `QTFrame` variants.
type FrameSelectorKind int

const (
	FrameByIndex FrameSelectorKind = iota
	FrameByPC
	FrameByTracepointHit
	FrameInRange
	FrameOutsideRange
)

// FrameSelector is a parsed `QTFrame` argument.
type FrameSelector struct {
	Kind       FrameSelectorKind
	Index      int64
	PC         uint64
	Tracepoint uint64
	RangeStart uint64
	RangeEnd   uint64
}
