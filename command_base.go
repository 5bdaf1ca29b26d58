package rsp

import (
	"context"
	"strings"
)

// command_base.go implements the mandatory base-ops commands (§4.6): g/G,
// p/P, m/M/X, H, T, and the thread-enumeration qfThreadInfo family, plus the
// shared error/stop-reply writers every handler in this package uses.

const hexDigitsLower = "0123456789abcdef"

// writeTargetError renders err as the wire's `E<hh>` error reply.
func (c *ProtocolCore) writeTargetError(err TargetError) {
	code, _ := errCode(err)
	c.resp.WriteByte('E')
	c.resp.WriteByte(hexDigitsLower[code>>4])
	c.resp.WriteByte(hexDigitsLower[code&0x0f])
}

// writeStopReply renders sr as a T/S/W/X stop-reply packet per §4.7.
func (c *ProtocolCore) writeStopReply(sr StopReason) {
	switch sr.Kind {
	case StopExited:
		c.resp.WriteString("W")
		c.resp.WriteHexByte(sr.ExitCode)

	case StopTerminated:
		c.resp.WriteString("X")
		c.resp.WriteHexByte(uint8(sr.Signal))

	case StopSignal:
		c.resp.WriteString("S")
		c.resp.WriteHexByte(uint8(sr.Signal))

	case StopSignalWithThread:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(sr.Signal))
		c.resp.WriteString("thread:")
		c.resp.WriteThreadID(sr.TID)
		c.resp.WriteByte(';')

	case StopSwBreak, StopHwBreak:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(SIGTRAP))

		if sr.Kind == StopSwBreak {
			c.resp.WriteString("swbreak:;")
		} else {
			c.resp.WriteString("hwbreak:;")
		}

		c.writeThreadField(sr.TID, sr.HasTID)

	case StopWatch:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(SIGTRAP))

		switch sr.WatchKind {
		case WatchWrite:
			c.resp.WriteString("watch:")
		case WatchRead:
			c.resp.WriteString("rwatch:")
		default:
			c.resp.WriteString("awatch:")
		}

		c.resp.WriteNum(sr.Addr, 16)
		c.resp.WriteByte(';')
		c.writeThreadField(sr.TID, sr.HasTID)

	case StopReplayLog:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(SIGTRAP))
		c.resp.WriteString("replaylog:")

		if sr.Replay == ReplayBegin {
			c.resp.WriteString("begin;")
		} else {
			c.resp.WriteString("end;")
		}

		c.writeThreadField(sr.TID, sr.HasTID)

	case StopCatchSyscall:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(SIGTRAP))

		if sr.SyscallAt == SyscallReturn {
			c.resp.WriteString("syscall_return:")
		} else {
			c.resp.WriteString("syscall_entry:")
		}

		c.resp.WriteNum(sr.SyscallNo, 16)
		c.resp.WriteByte(';')
		c.writeThreadField(sr.TID, sr.HasTID)

	case StopLibrary:
		c.resp.WriteString("T")
		c.resp.WriteHexByte(uint8(SIGTRAP))
		c.resp.WriteString("library:;")
		c.writeThreadField(sr.TID, sr.HasTID)

	default: // StopDoneStep
		c.resp.WriteString("S")
		c.resp.WriteHexByte(uint8(SIGTRAP))
	}
}

func (c *ProtocolCore) writeThreadField(tid ThreadID, has bool) {
	if !has {
		return
	}

	c.resp.WriteString("thread:")
	c.resp.WriteThreadID(tid)
	c.resp.WriteByte(';')
}

// handleSetThread parses `Hg<tid>` / `Hc<tid>`, updating the tracked memory
// or resume thread per §3.
func (c *ProtocolCore) handleSetThread(cmd string) DispatchOutcome {
	if len(cmd) < 2 {
		c.resp.WriteString("E01")
		return OutcomePump
	}

	op := cmd[1]
	rest := cmd[2:]

	tid, err := ParseThreadID(rest)
	if err != nil {
		c.resp.WriteString("E01")
		return OutcomePump
	}

	switch op {
	case 'g':
		c.currentMemTID = tid
	case 'c':
		c.currentResumeTID = tid
	}

	c.resp.WriteString("OK")

	return OutcomePump
}

func (c *ProtocolCore) handleReadRegisters(ctx context.Context) {
	var (
		regs []byte
		terr TargetError
	)

	if c.multi != nil {
		regs, terr = c.multi.ReadRegisters(ctx, c.currentMemTID)
	} else if st, ok := c.target.(SingleThreadBase); ok {
		regs, terr = st.ReadRegisters(ctx)
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteHexBuf(regs)
}

func (c *ProtocolCore) handleWriteRegisters(ctx context.Context, cmd string) {
	payload, err := decodeHexString(cmd[1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	var terr TargetError

	if c.multi != nil {
		terr = c.multi.WriteRegisters(ctx, c.currentMemTID, payload)
	} else if st, ok := c.target.(SingleThreadBase); ok {
		terr = st.WriteRegisters(ctx, payload)
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleReadRegister(ctx context.Context, cmd string) {
	ops, ok := c.target.SingleRegisterOps()
	if !ok {
		return
	}

	id, err := decodeHexUint64([]byte(cmd[1:]))
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	dst := make([]byte, 256)

	n, terr := ops.ReadRegister(ctx, id, dst)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteHexBuf(dst[:n])
}

func (c *ProtocolCore) handleWriteRegister(ctx context.Context, cmd string) {
	ops, ok := c.target.SingleRegisterOps()
	if !ok {
		return
	}

	body := cmd[1:]

	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		c.resp.WriteString("E01")
		return
	}

	id, err := decodeHexUint64([]byte(body[:eq]))
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	src, err := decodeHexString(body[eq+1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	if terr := ops.WriteRegister(ctx, id, src); terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

// parseAddrLen parses the common `addr,length` form shared by m/M/X/Z/z.
func parseAddrLen(body string) (addr, length uint64, err error) {
	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return 0, 0, &ParseError{Reason: "missing comma in addr,length"}
	}

	addr, perr := decodeHexUint64([]byte(body[:comma]))
	if perr != nil {
		return 0, 0, perr
	}

	length, perr = decodeHexUint64([]byte(body[comma+1:]))
	if perr != nil {
		return 0, 0, perr
	}

	return addr, length, nil
}

func (c *ProtocolCore) handleReadMemory(ctx context.Context, cmd string) {
	addr, length, err := parseAddrLen(cmd[1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	dst := make([]byte, length)

	var (
		n    int
		terr TargetError
	)

	if c.multi != nil {
		n, terr = c.multi.ReadAddrs(ctx, c.currentMemTID, addr, dst)
	} else if st, ok := c.target.(SingleThreadBase); ok {
		n, terr = st.ReadAddrs(ctx, addr, dst)
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteHexBuf(dst[:n])
}

func (c *ProtocolCore) handleWriteMemory(ctx context.Context, cmd string) {
	body := cmd[1:]

	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		c.resp.WriteString("E01")
		return
	}

	addr, _, err := parseAddrLen(body[:colon] + ",0")
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	data, err := decodeHexString(body[colon+1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	var terr TargetError

	if c.multi != nil {
		terr = c.multi.WriteAddrs(ctx, c.currentMemTID, addr, data)
	} else if st, ok := c.target.(SingleThreadBase); ok {
		terr = st.WriteAddrs(ctx, addr, data)
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleWriteMemoryBinary(ctx context.Context, cmd string) {
	body := cmd[1:]

	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		c.resp.WriteString("E01")
		return
	}

	addr, _, err := parseAddrLen(body[:colon] + ",0")
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	raw := []byte(body[colon+1:])

	data, err := decodeBinBufInPlace(raw)
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	var terr TargetError

	if c.multi != nil {
		terr = c.multi.WriteAddrs(ctx, c.currentMemTID, addr, data)
	} else if st, ok := c.target.(SingleThreadBase); ok {
		terr = st.WriteAddrs(ctx, addr, data)
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleThreadAlive(ctx context.Context, cmd string) {
	tid, err := ParseThreadID(cmd[1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	if c.multi == nil {
		c.resp.WriteString("OK")
		return
	}

	alive, terr := c.multi.IsThreadAlive(ctx, tid)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if alive {
		c.resp.WriteString("OK")
	} else {
		c.resp.WriteString("E01")
	}
}

func (c *ProtocolCore) handleQfThreadInfo(ctx context.Context) {
	if c.multi == nil {
		c.resp.WriteString("m")
		c.resp.WriteThreadID(SingleThreadID)

		return
	}

	first := true

	terr := c.multi.ListActiveThreads(ctx, func(tid ThreadID) bool {
		if first {
			c.resp.WriteByte('m')
			first = false
		} else {
			c.resp.WriteByte(',')
		}

		c.resp.WriteThreadID(tid)

		return true
	})
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if first {
		c.resp.WriteString("l")
	}
}

func (c *ProtocolCore) handleThreadExtraInfo(ctx context.Context, cmd string) {
	ops, ok := c.target.ThreadExtraInfoOps()
	if !ok {
		return
	}

	tid, err := ParseThreadID(cmd[len("qThreadExtraInfo,"):])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	info, terr := ops.ThreadExtraInfo(ctx, tid)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteHexBuf(info)
}
