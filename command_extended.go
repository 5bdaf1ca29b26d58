package rsp

import (
	"context"
	"strings"
)

// command_extended.go implements extended-mode process lifecycle commands
// (vRun/vAttach/vKill/R) plus the small stateless query commands qOffsets
// and LLDB's qRegisterInfo sequence.

func (c *ProtocolCore) handleExtendedMode(ctx context.Context, cmd string) (DispatchOutcome, DisconnectReason) {
	ops, ok := c.target.ExtendedModeOps()
	if !ok {
		return OutcomePump, DisconnectReason{}
	}

	switch {
	case strings.HasPrefix(cmd, "vRun"):
		return c.handleVRun(ctx, ops, cmd)
	case strings.HasPrefix(cmd, "vAttach"):
		return c.handleVAttach(ctx, ops, cmd)
	case strings.HasPrefix(cmd, "vKill"):
		return c.handleVKill(ctx, ops, cmd)
	default:
		return OutcomePump, DisconnectReason{}
	}
}

func (c *ProtocolCore) handleVRun(ctx context.Context, ops ExtendedModeOps, cmd string) (DispatchOutcome, DisconnectReason) {
	parts := strings.Split(cmd, ";")

	var filename string

	var args [][]byte

	if len(parts) > 1 && parts[1] != "" {
		raw, err := decodeHexString(parts[1])
		if err != nil {
			c.resp.WriteString("E01")
			return OutcomePump, DisconnectReason{}
		}

		filename = string(raw)
	}

	for _, a := range parts[2:] {
		if a == "" {
			continue
		}

		raw, err := decodeHexString(a)
		if err != nil {
			c.resp.WriteString("E01")
			return OutcomePump, DisconnectReason{}
		}

		args = append(args, raw)
	}

	tid, terr := ops.Run(ctx, filename, args, c.runConfig)
	if terr != nil {
		c.writeTargetError(terr)
		return OutcomePump, DisconnectReason{}
	}

	c.currentResumeTID, c.currentMemTID = tid, tid
	c.writeStopReply(SignalWithThread(tid, SIGTRAP))

	return OutcomePump, DisconnectReason{}
}

// handleEnvironmentHexEncoded implements QEnvironmentHexEncoded:<hex of
// "NAME=VALUE">, adding or overriding one variable for the next vRun.
func (c *ProtocolCore) handleEnvironmentHexEncoded(cmd string) {
	payload := strings.TrimPrefix(cmd, "QEnvironmentHexEncoded:")

	raw, err := decodeHexString(payload)
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	name, value, ok := strings.Cut(string(raw), "=")
	if !ok {
		c.resp.WriteString("E01")
		return
	}

	if c.runConfig.EnvSet == nil {
		c.runConfig.EnvSet = make(map[string]string)
	}

	c.runConfig.EnvSet[name] = value

	c.resp.WriteString("OK")
}

// handleEnvironmentUnset implements QEnvironmentUnset:<hex of NAME>.
func (c *ProtocolCore) handleEnvironmentUnset(cmd string) {
	payload := strings.TrimPrefix(cmd, "QEnvironmentUnset:")

	raw, err := decodeHexString(payload)
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	c.runConfig.EnvUnset = append(c.runConfig.EnvUnset, string(raw))

	c.resp.WriteString("OK")
}

// handleEnvironmentReset implements QEnvironmentReset, discarding every
// QEnvironmentHexEncoded/QEnvironmentUnset accumulated so far.
func (c *ProtocolCore) handleEnvironmentReset() {
	c.runConfig.EnvSet = nil
	c.runConfig.EnvUnset = nil

	c.resp.WriteString("OK")
}

// handleDisableRandomization implements QDisableRandomization:<0|1>.
func (c *ProtocolCore) handleDisableRandomization(cmd string) {
	payload := strings.TrimPrefix(cmd, "QDisableRandomization:")
	c.runConfig.DisableRandomization = payload == "1"

	c.resp.WriteString("OK")
}

// handleStartupWithShell implements QStartupWithShell:<0|1>.
func (c *ProtocolCore) handleStartupWithShell(cmd string) {
	payload := strings.TrimPrefix(cmd, "QStartupWithShell:")
	c.runConfig.StartupWithShell = payload == "1"

	c.resp.WriteString("OK")
}

// handleSetWorkingDir implements QSetWorkingDir:<hex of path>.
func (c *ProtocolCore) handleSetWorkingDir(cmd string) {
	payload := strings.TrimPrefix(cmd, "QSetWorkingDir:")

	raw, err := decodeHexString(payload)
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	c.runConfig.WorkingDir = string(raw)

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleVAttach(ctx context.Context, ops ExtendedModeOps, cmd string) (DispatchOutcome, DisconnectReason) {
	pidHex := strings.TrimPrefix(cmd, "vAttach;")

	pid, err := decodeHexUint64([]byte(pidHex))
	if err != nil {
		c.resp.WriteString("E01")
		return OutcomePump, DisconnectReason{}
	}

	tid, terr := ops.Attach(ctx, pid)
	if terr != nil {
		c.writeTargetError(terr)
		return OutcomePump, DisconnectReason{}
	}

	c.currentResumeTID, c.currentMemTID = tid, tid
	c.writeStopReply(SignalWithThread(tid, SIGTRAP))

	return OutcomePump, DisconnectReason{}
}

func (c *ProtocolCore) handleVKill(ctx context.Context, ops ExtendedModeOps, cmd string) (DispatchOutcome, DisconnectReason) {
	rest := strings.TrimPrefix(cmd, "vKill")

	var pidPtr *uint64

	if strings.HasPrefix(rest, ";") {
		pid, err := decodeHexUint64([]byte(rest[1:]))
		if err != nil {
			c.resp.WriteString("E01")
			return OutcomePump, DisconnectReason{}
		}

		pidPtr = &pid
	}

	if terr := ops.Kill(ctx, pidPtr); terr != nil {
		c.writeTargetError(terr)
		return OutcomePump, DisconnectReason{}
	}

	c.resp.WriteString("OK")

	return OutcomeDisconnect, DisconnectReason{Kind: DisconnectKill}
}

func (c *ProtocolCore) handleRestart(ctx context.Context) {
	ops, ok := c.target.ExtendedModeOps()
	if !ok {
		return
	}

	if terr := ops.Restart(ctx); terr != nil {
		c.writeTargetError(terr)
	}
	// No reply on success: 'R' is fire-and-forget per the protocol.
}

func (c *ProtocolCore) handleQOffsets(ctx context.Context) {
	ops, ok := c.target.SectionOffsetsOps()
	if !ok {
		return
	}

	text, data, bss, terr := ops.SectionOffsets(ctx)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("Text=")
	c.resp.WriteNum(text, 16)
	c.resp.WriteString(";Data=")
	c.resp.WriteNum(data, 16)
	c.resp.WriteString(";Bss=")
	c.resp.WriteNum(bss, 16)
}

func (c *ProtocolCore) handleLLDBRegisterInfo(ctx context.Context, cmd string) {
	ops, ok := c.target.LLDBRegisterInfoOps()
	if !ok {
		return
	}

	idHex := strings.TrimPrefix(cmd, "qRegisterInfo")

	id, err := decodeHexUint64([]byte(idHex))
	if err != nil {
		c.resp.WriteString("E45")
		return
	}

	name, bitsize, encoding, format, found := ops.RegisterInfo(ctx, id)
	if !found {
		c.resp.WriteString("E45")
		return
	}

	c.resp.WriteString("name:")
	c.resp.WriteString(name)
	c.resp.WriteString(";bitsize:")
	c.resp.WriteNum(uint64(bitsize), 10)
	c.resp.WriteString(";encoding:")
	c.resp.WriteString(encoding)
	c.resp.WriteString(";format:")
	c.resp.WriteString(format)
	c.resp.WriteByte(';')
}
