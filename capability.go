package rsp

// capFlag is a bit in the capability set probed once per session at
// handshake time, per design notes §9 ("emulate [monomorphised dead-code
// elimination] with a bitset set once per session at handshake and checked
// before parsing").
type capFlag uint64

const (
	capNone capFlag = 0

	capMultiThread capFlag = 1 << iota
	capSingleRegister
	capResume
	capSwBreakpoint
	capHwBreakpoint
	capHwWatchpoint
	capExtendedMode
	capMonitorCmd
	capSectionOffsets
	capMemoryMapXML
	capFlashOps
	capTargetDescriptionXML
	capHostIO
	capExecFile
	capAuxv
	capLibraries
	capLibrariesSvr4
	capCatchSyscalls
	capTracepoints
	capReverseExec
	capThreadExtraInfo
	capLLDBRegisterInfo
	capBytecodeAgent
)

// caps is the set of capabilities a Target advertises, computed once from
// its probes when a ProtocolCore is constructed.
type caps struct {
	flags capFlag
}

func (c caps) has(f capFlag) bool { return c.flags&f != 0 }

func (c *caps) set(f capFlag) { c.flags |= f }

// probeCapabilities invokes every Target probe exactly once and records the
// resulting capability set. Per §4.6, the core "invokes each probe at most
// once per command" — here once per session, since the result is assumed
// stable for the session's lifetime.
func probeCapabilities(t Target) caps {
	var c caps

	if _, ok := t.(MultiThreadBase); ok {
		c.set(capMultiThread)
	}

	if _, ok := t.SingleRegisterOps(); ok {
		c.set(capSingleRegister)
	}

	if _, ok := t.ResumeOps(); ok {
		c.set(capResume)
	}

	if ops, ok := t.SwBreakpointOps(); ok {
		c.set(capSwBreakpoint)

		if _, bok := ops.(BytecodeAgentOps); bok {
			c.set(capBytecodeAgent)
		}
	}

	if _, ok := t.HwBreakpointOps(); ok {
		c.set(capHwBreakpoint)
	}

	if _, ok := t.HwWatchpointOps(); ok {
		c.set(capHwWatchpoint)
	}

	if _, ok := t.ExtendedModeOps(); ok {
		c.set(capExtendedMode)
	}

	if _, ok := t.MonitorCmdOps(); ok {
		c.set(capMonitorCmd)
	}

	if _, ok := t.SectionOffsetsOps(); ok {
		c.set(capSectionOffsets)
	}

	if _, ok := t.MemoryMapOps(); ok {
		c.set(capMemoryMapXML)
	}

	if _, ok := t.FlashOps(); ok {
		c.set(capFlashOps)
	}

	if _, ok := t.TargetDescriptionOps(); ok {
		c.set(capTargetDescriptionXML)
	}

	if _, ok := t.HostIOOps(); ok {
		c.set(capHostIO)
	}

	if _, ok := t.ExecFileOps(); ok {
		c.set(capExecFile)
	}

	if _, ok := t.AuxvOps(); ok {
		c.set(capAuxv)
	}

	if _, ok := t.LibrariesOps(); ok {
		c.set(capLibraries)
	}

	if _, ok := t.LibrariesSvr4Ops(); ok {
		c.set(capLibrariesSvr4)
	}

	if _, ok := t.CatchSyscallsOps(); ok {
		c.set(capCatchSyscalls)
	}

	if _, ok := t.TracepointOps(); ok {
		c.set(capTracepoints)
	}

	if _, ok := t.ReverseExecOps(); ok {
		c.set(capReverseExec)
	}

	if _, ok := t.ThreadExtraInfoOps(); ok {
		c.set(capThreadExtraInfo)
	}

	if _, ok := t.LLDBRegisterInfoOps(); ok {
		c.set(capLLDBRegisterInfo)
	}

	return c
}
