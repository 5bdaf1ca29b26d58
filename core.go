package rsp

import (
	"context"
	"log/slog"
	"strings"
)

// core.go wires PacketFramer, the command dispatcher (CommandParser +
// ProtocolCore, combined pragmatically into one dispatch table — see
// DESIGN.md), ResponseWriter, and Session together into one blocking
// session driver, mirroring the teacher's HandleConn/dispatch split but
// decomposed along the lines §4 of the specification names.

// Features is the negotiated-features bitset from §3: set once during
// qSupported and reset at the start of each new session.
type Features struct {
	NoAckMode    bool
	Multiprocess bool
}

// ProtocolCore drives one RSP session end-to-end against a Target.
type ProtocolCore struct {
	conn   ByteConn
	target Target
	multi  MultiThreadBase // set if Target implements MultiThreadBase

	caps     caps
	features Features

	framer *PacketFramer
	resp   *ResponseWriter
	sess   *Session

	// currentMemTID / currentResumeTID are the tracked resume context of
	// §3: which thread memory/register accesses and legacy c/s target.
	currentMemTID    ThreadID
	currentResumeTID ThreadID

	// traceFrame is not set or read by any handler: QTFrame selection is
	// passed to TracepointOps.SelectFrame, and register/memory reads always
	// go to the Target's base ops, which own the frame snapshot.
	traceFrame *int

	// pendingSyncStop holds a StopReason a resume handler produced
	// synchronously (ResumeOps.Resume returned ok=true), to be reported
	// once the session has transitioned into Running.
	pendingSyncStop *StopReason

	// traceBufferCircular/traceBufferSizeLimit accumulate the two
	// independently-set QTBuffer sub-commands before forwarding a combined
	// TraceBufferConfig call, since the wire sends them separately.
	traceBufferCircular  bool
	traceBufferSizeLimit int64
	tracepointEnumIndex  int

	// runConfig accumulates the QEnvironment*/QDisableRandomization/
	// QStartupWithShell/QSetWorkingDir packets ahead of the next vRun.
	runConfig RunConfig

	log *slog.Logger
}

// NewProtocolCore constructs a core bound to conn and target, with a packet
// buffer of bufSize bytes (minimum 1024 recommended per §3).
func NewProtocolCore(conn ByteConn, target Target, bufSize int, log *slog.Logger) *ProtocolCore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	buf := make([]byte, bufSize)

	pc := &ProtocolCore{
		conn:              conn,
		target:            target,
		caps:              probeCapabilities(target),
		framer:            NewPacketFramer(buf),
		resp:              NewResponseWriter(conn, bufSize),
		sess:              NewSession(),
		currentMemTID:     SingleThreadID,
		currentResumeTID:  SingleThreadID,
		log:               log,
	}

	if m, ok := target.(MultiThreadBase); ok {
		pc.multi = m
		pc.caps.set(capMultiThread)
	}

	return pc
}

// Session exposes the underlying state machine for drivers that want to
// inspect it (e.g. to decide whether to keep accepting bytes).
func (c *ProtocolCore) Session() *Session { return c.sess }

// Run is the blocking driver: it repeatedly reads bytes from conn, feeding
// them to the framer, dispatching complete packets, and awaiting/reporting
// stop reasons, until the session disconnects or conn.Read fails.
//
// checkInterrupt lets a Resume handler poll for an incoming Ctrl-C between
// Target steps, per §5's suspension-point note. stopCh delivers
// asynchronously-reported stop reasons (Resume returning ok=false).
func (c *ProtocolCore) Run(ctx context.Context, stopCh <-chan StopReason) (DisconnectReason, error) {
	if err := c.conn.OnSessionStart(); err != nil {
		return DisconnectReason{}, &ConnError{Kind: ConnInit, Err: err}
	}

	for {
		if c.sess.State() == StateDisconnected {
			reason, _ := c.sess.GetDisconnectReason()
			return reason, nil
		}

		b, err := c.conn.Read()
		if err != nil {
			return DisconnectReason{}, &ConnError{Kind: ConnRead, Err: err}
		}

		if err := c.feedByte(ctx, b, stopCh); err != nil {
			return DisconnectReason{}, err
		}
	}
}

// feedByte processes one incoming byte: acks, interrupts, or a completed
// packet.
func (c *ProtocolCore) feedByte(ctx context.Context, b byte, stopCh <-chan StopReason) error {
	ev := c.framer.Feed(b)

	switch ev {
	case FrameNeedMore:
		return nil

	case FrameAck, FrameNak:
		// Acks to our own prior reply are consumed inside
		// ResponseWriter.Flush's readAck callback, not here; a bare
		// ack/nak seen by the top-level loop is a protocol nicety we
		// simply ignore (GDB does not require us to react to it
		// outside of a pending Flush).
		return nil

	case FrameInterrupt:
		return c.handleInterrupt(ctx, stopCh)

	case FrameChecksumMismatch:
		if c.features.NoAckMode {
			return &ParseError{Reason: "checksum mismatch in no-ack mode is fatal"}
		}

		return c.conn.WriteAll([]byte{'-'})

	case FrameOverflow:
		c.resp.Reset()
		c.resp.WriteString("E01")

		return c.flushReply()

	case FramePacketReady:
		return c.handlePacket(ctx, stopCh)

	default:
		return nil
	}
}

func (c *ProtocolCore) handleInterrupt(ctx context.Context, stopCh <-chan StopReason) error {
	switch c.sess.State() {
	case StateIdle:
		if _, err := c.sess.AdvanceFromIdle(OutcomeCtrlCInterrupt, DisconnectReason{}); err != nil {
			return err
		}
	case StateRunning:
		if err := c.sess.AdvanceFromRunning(OutcomeCtrlCInterrupt, DisconnectReason{}); err != nil {
			return err
		}
	default:
		return nil
	}

	// The core synthesizes the stop itself: SIGINT on the current resume
	// thread. The Target is not consulted, and stopCh is not read here.
	sr := SignalWithThread(c.currentResumeTID, SIGINT)

	if err := c.sess.InterruptHandled(&sr); err != nil {
		return err
	}

	if c.sess.State() == StateRunning {
		return c.reportStop(ctx, sr)
	}

	return nil
}

func (c *ProtocolCore) handlePacket(ctx context.Context, stopCh <-chan StopReason) error {
	body := append([]byte(nil), c.framer.Body()...)
	cmd := string(body)

	if !c.features.NoAckMode {
		if err := c.conn.WriteAll([]byte{'+'}); err != nil {
			return &ConnError{Kind: ConnWrite, Err: err}
		}
	}

	c.resp.Reset()
	c.pendingSyncStop = nil

	outcome, disc := c.dispatch(ctx, cmd)

	// Resume commands (c, s, vCont) never produce an immediate reply of
	// their own; the eventual stop-reply packet is the reply. `k`, and `R`
	// when the restart succeeded, get no reply at all. Every other
	// command flushes whatever dispatch queued (possibly empty, meaning
	// "unsupported").
	noReply := cmd == "k" ||
		(strings.HasPrefix(cmd, "R") && c.caps.has(capExtendedMode) && len(c.resp.scratch) == 0)

	if outcome != OutcomeResumed && !noReply {
		if err := c.flushReply(); err != nil {
			return err
		}
	}

	switch c.sess.State() {
	case StateIdle:
		deferred, err := c.sess.AdvanceFromIdle(outcome, disc)
		if err != nil {
			return err
		}

		if deferred != nil {
			return c.reportStop(ctx, *deferred)
		}

		if outcome == OutcomeResumed {
			if c.pendingSyncStop != nil {
				sr := *c.pendingSyncStop
				c.pendingSyncStop = nil

				return c.reportStop(ctx, sr)
			}

			return c.awaitStop(ctx, stopCh)
		}

		return nil

	case StateRunning:
		if err := c.sess.AdvanceFromRunning(outcome, disc); err != nil {
			return err
		}

		if outcome == OutcomeResumed && c.pendingSyncStop != nil {
			sr := *c.pendingSyncStop
			c.pendingSyncStop = nil

			return c.reportStop(ctx, sr)
		}

		return nil

	default:
		return nil
	}
}

// awaitStop blocks (via stopCh) for the resumed Target's stop reason, then
// reports it, mirroring the teacher's cont()/step() returning a stop reply
// directly but split across the async boundary §5 describes.
func (c *ProtocolCore) awaitStop(ctx context.Context, stopCh <-chan StopReason) error {
	select {
	case sr := <-stopCh:
		return c.reportStop(ctx, sr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reportStop validates sr against advertised capabilities, writes the
// corresponding stop-reply packet, and transitions Running -> Idle (or
// Disconnected for terminal reasons).
func (c *ProtocolCore) reportStop(ctx context.Context, sr StopReason) error {
	if sr.Kind == StopLibrary {
		if !c.caps.has(capLibraries) && !c.caps.has(capLibrariesSvr4) {
			return &CapabilityMisuseError{Capability: capabilityName(capLibraries)}
		}
	} else if cap := sr.Kind.capability(); cap != capNone && !c.caps.has(cap) {
		return &CapabilityMisuseError{Capability: capabilityName(cap)}
	}

	c.resp.Reset()
	c.writeStopReply(sr)

	if err := c.flushReply(); err != nil {
		return err
	}

	var terminal *DisconnectReason

	switch sr.Kind {
	case StopExited:
		terminal = &DisconnectReason{Kind: DisconnectTargetExited, Code: sr.ExitCode}
	case StopTerminated:
		terminal = &DisconnectReason{Kind: DisconnectTargetTerminated, Signal: sr.Signal}
	}

	return c.sess.ReportStop(terminal)
}

func (c *ProtocolCore) flushReply() error {
	return c.resp.Flush(func() (byte, error) {
		for {
			b, err := c.conn.Read()
			if err != nil {
				return 0, err
			}

			if b == '+' || b == '-' {
				return b, nil
			}
			// Ignore anything else (e.g. a stray Ctrl-C) while
			// waiting specifically for our ack.
		}
	})
}

func capabilityName(f capFlag) string {
	switch f {
	case capSwBreakpoint:
		return "sw-breakpoint"
	case capHwBreakpoint:
		return "hw-breakpoint"
	case capHwWatchpoint:
		return "hw-watchpoint"
	case capReverseExec:
		return "reverse-exec"
	case capCatchSyscalls:
		return "catch-syscalls"
	case capLibraries:
		return "libraries"
	default:
		return "unknown"
	}
}

// dispatch matches the packet body against the longest-prefix command table
// and executes the corresponding handler, per §4.5. Unknown commands yield
// the empty response mandated by §6 ("Unsupported commands: $#00").
func (c *ProtocolCore) dispatch(ctx context.Context, cmd string) (DispatchOutcome, DisconnectReason) {
	switch {
	case cmd == "?":
		c.writeLastOrIdleStopReply()
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qSupported"):
		c.handleQSupported(cmd)
		return OutcomePump, DisconnectReason{}

	case cmd == "QStartNoAckMode":
		c.features.NoAckMode = true
		c.resp.SetNoAck(true)
		c.resp.WriteString("OK")

		return OutcomePump, DisconnectReason{}

	case cmd == "D" || strings.HasPrefix(cmd, "D;"):
		c.resp.WriteString("OK")
		return OutcomeDisconnect, DisconnectReason{Kind: DisconnectClient}

	case cmd == "k":
		// §6: no ack, no reply after kill in plain mode.
		return OutcomeDisconnect, DisconnectReason{Kind: DisconnectKill}

	case strings.HasPrefix(cmd, "H"):
		return c.handleSetThread(cmd), DisconnectReason{}

	case cmd == "g":
		c.handleReadRegisters(ctx)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "G"):
		c.handleWriteRegisters(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "p"):
		c.handleReadRegister(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "P"):
		c.handleWriteRegister(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "m"):
		c.handleReadMemory(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "M"):
		c.handleWriteMemory(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "X"):
		c.handleWriteMemoryBinary(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case cmd == "vCont?":
		c.handleVContQuery()
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "vCont"):
		return c.handleVCont(ctx, cmd)

	case cmd == "c" || strings.HasPrefix(cmd, "c"):
		return c.handleLegacyResume(ctx, ActionContinue, cmd[1:])

	case cmd == "s" || strings.HasPrefix(cmd, "s"):
		return c.handleLegacyResume(ctx, ActionStep, cmd[1:])

	case strings.HasPrefix(cmd, "Z"):
		c.handleSetBreakpoint(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "z"):
		c.handleClearBreakpoint(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qXfer:"):
		c.handleQXfer(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "vFile:"):
		c.handleHostIO(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qRcmd,"):
		c.handleMonitor(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QCatchSyscalls"):
		c.handleCatchSyscalls(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QEnvironmentHexEncoded:") && c.caps.has(capExtendedMode):
		c.handleEnvironmentHexEncoded(cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QEnvironmentUnset:") && c.caps.has(capExtendedMode):
		c.handleEnvironmentUnset(cmd)
		return OutcomePump, DisconnectReason{}

	case cmd == "QEnvironmentReset" && c.caps.has(capExtendedMode):
		c.handleEnvironmentReset()
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QDisableRandomization:") && c.caps.has(capExtendedMode):
		c.handleDisableRandomization(cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QStartupWithShell:") && c.caps.has(capExtendedMode):
		c.handleStartupWithShell(cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "QSetWorkingDir:") && c.caps.has(capExtendedMode):
		c.handleSetWorkingDir(cmd)
		return OutcomePump, DisconnectReason{}

	case (strings.HasPrefix(cmd, "QT") || strings.HasPrefix(cmd, "qT")) && !strings.HasPrefix(cmd, "qThreadExtraInfo,"):
		c.handleTracepoint(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case cmd == "qC":
		c.resp.WriteString("QC")
		c.resp.WriteThreadID(c.currentResumeTID)

		return OutcomePump, DisconnectReason{}

	case cmd == "qfThreadInfo":
		c.handleQfThreadInfo(ctx)
		return OutcomePump, DisconnectReason{}

	case cmd == "qsThreadInfo":
		c.resp.WriteString("l")
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qThreadExtraInfo,"):
		c.handleThreadExtraInfo(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "T"):
		c.handleThreadAlive(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case cmd == "qAttached":
		c.resp.WriteString("1")
		return OutcomePump, DisconnectReason{}

	case cmd == "qOffsets":
		c.handleQOffsets(ctx)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qSymbol"):
		c.resp.WriteString("OK")
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "qRegisterInfo"):
		c.handleLLDBRegisterInfo(ctx, cmd)
		return OutcomePump, DisconnectReason{}

	case strings.HasPrefix(cmd, "v") && c.caps.has(capExtendedMode):
		return c.handleExtendedMode(ctx, cmd)

	case strings.HasPrefix(cmd, "R") && c.caps.has(capExtendedMode):
		c.handleRestart(ctx)
		return OutcomePump, DisconnectReason{}

	case cmd == "!":
		c.resp.WriteString("OK")
		return OutcomePump, DisconnectReason{}

	case cmd == "bc" && c.caps.has(capReverseExec):
		return c.handleReverseCont(ctx)

	case cmd == "bs" && c.caps.has(capReverseExec):
		return c.handleReverseStep(ctx)

	default:
		// Unsupported: empty response, per §6/§8 invariant 5.
		return OutcomePump, DisconnectReason{}
	}
}

// writeLastOrIdleStopReply answers `?`. It always reports the target as
// stopped with SIGTRAP on the current resume thread; the last reported stop
// reason is not remembered.
func (c *ProtocolCore) writeLastOrIdleStopReply() {
	c.writeStopReply(SignalWithThread(c.currentResumeTID, SIGTRAP))
}
