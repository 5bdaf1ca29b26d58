package rsp

import (
	"context"
	"strings"
)

// command_tracepoints.go implements the tracepoint sub-protocol (§4.9):
// QTDP/QTDPsrc definition, qTfP/qTsP enumeration, qTP status, QTFrame
// selection, QTBuffer configuration/readback, and the QTStart/QTStop/
// qTStatus experiment lifecycle.

func (c *ProtocolCore) handleTracepoint(ctx context.Context, cmd string) {
	ops, ok := c.target.TracepointOps()
	if !ok {
		return
	}

	switch {
	case strings.HasPrefix(cmd, "QTDPsrc:"):
		c.handleQTDPsrc(ctx, ops, cmd)
	case strings.HasPrefix(cmd, "QTDP:"):
		c.handleQTDP(ctx, ops, cmd)
	case cmd == "qTfP":
		c.tracepointEnumIndex = 0
		c.handleTracepointEnumStep(ctx, ops)
	case cmd == "qTsP":
		c.handleTracepointEnumStep(ctx, ops)
	case strings.HasPrefix(cmd, "qTP:"):
		c.handleQTP(ctx, ops, cmd)
	case strings.HasPrefix(cmd, "QTFrame:"):
		c.handleQTFrame(ctx, ops, cmd)
	case strings.HasPrefix(cmd, "QTBuffer:circular:"):
		c.traceBufferCircular = strings.TrimPrefix(cmd, "QTBuffer:circular:") == "1"
		c.applyTraceBufferConfig(ctx, ops)
	case strings.HasPrefix(cmd, "QTBuffer-size:"):
		n, err := decodeHexUint64([]byte(strings.TrimPrefix(cmd, "QTBuffer-size:")))
		if err != nil {
			c.resp.WriteString("E01")
			return
		}

		c.traceBufferSizeLimit = int64(n)
		c.applyTraceBufferConfig(ctx, ops)
	case strings.HasPrefix(cmd, "qTBuffer:"):
		c.handleQTBufferRead(ctx, ops, cmd)
	case cmd == "QTStart":
		if terr := ops.ExperimentStart(ctx); terr != nil {
			c.writeTargetError(terr)
			return
		}

		c.resp.WriteString("OK")
	case cmd == "QTStop":
		if terr := ops.ExperimentStop(ctx); terr != nil {
			c.writeTargetError(terr)
			return
		}

		c.resp.WriteString("OK")
	case cmd == "QTinit":
		c.resp.WriteString("OK")
	case cmd == "qTStatus":
		running, explanation, terr := ops.ExperimentStatus(ctx)
		if terr != nil {
			c.writeTargetError(terr)
			return
		}

		if running {
			c.resp.WriteString("T1;")
		} else {
			c.resp.WriteString("T0;")
		}

		c.resp.WriteString(explanation)
	}
}

func (c *ProtocolCore) applyTraceBufferConfig(ctx context.Context, ops TracepointOps) {
	if terr := ops.TraceBufferConfig(ctx, c.traceBufferCircular, c.traceBufferSizeLimit); terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleQTDP(ctx context.Context, ops TracepointOps, cmd string) {
	body := strings.TrimPrefix(cmd, "QTDP:")
	parts := strings.Split(body, ":")

	continued := strings.HasPrefix(parts[0], "-")
	numHex := strings.TrimPrefix(parts[0], "-")

	num, err := decodeHexUint64([]byte(numHex))
	if err != nil || len(parts) < 2 {
		c.resp.WriteString("E01")
		return
	}

	var def TracepointDef
	def.Number = num

	if continued {
		for _, a := range parts[1:] {
			if a != "" {
				def.Actions = append(def.Actions, []byte(a))
			}
		}
	} else {
		if len(parts) < 4 {
			c.resp.WriteString("E01")
			return
		}

		addr, err := decodeHexUint64([]byte(parts[1]))
		if err != nil {
			c.resp.WriteString("E01")
			return
		}

		def.Addr = addr
		def.Enabled = parts[2] == "E"

		step, err := decodeHexUint64([]byte(parts[3]))
		if err != nil {
			c.resp.WriteString("E01")
			return
		}

		def.StepSize = step

		for _, a := range parts[4:] {
			if a != "" {
				def.Actions = append(def.Actions, []byte(a))
			}
		}
	}

	if terr := ops.DefineTracepoint(ctx, def, continued); terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleQTDPsrc(ctx context.Context, ops TracepointOps, cmd string) {
	body := strings.TrimPrefix(cmd, "QTDPsrc:")
	parts := strings.SplitN(body, ":", 6)

	if len(parts) < 6 {
		c.resp.WriteString("E01")
		return
	}

	num, nerr := decodeHexUint64([]byte(parts[0]))
	addr, aerr := decodeHexUint64([]byte(parts[1]))

	if nerr != nil || aerr != nil {
		c.resp.WriteString("E01")
		return
	}

	raw, err := decodeHexString(parts[5])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	if terr := ops.AttachSourceString(ctx, num, addr, raw); terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}

func (c *ProtocolCore) handleQTP(ctx context.Context, ops TracepointOps, cmd string) {
	body := strings.TrimPrefix(cmd, "qTP:")
	parts := strings.SplitN(body, ":", 2)

	if len(parts) != 2 {
		c.resp.WriteString("E01")
		return
	}

	num, nerr := decodeHexUint64([]byte(parts[0]))
	addr, aerr := decodeHexUint64([]byte(parts[1]))

	if nerr != nil || aerr != nil {
		c.resp.WriteString("E01")
		return
	}

	status, terr := ops.TracepointStatus(ctx, num, addr)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if status.Hit {
		c.resp.WriteString("V1")
	} else {
		c.resp.WriteString("V0")
	}

	c.resp.WriteByte(';')
	c.resp.WriteNum(status.Count, 16)
}

func (c *ProtocolCore) handleTracepointEnumStep(ctx context.Context, ops TracepointOps) {
	step, done, terr := ops.Enumerate(ctx, c.tracepointEnumIndex)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if done {
		c.resp.WriteString("l")
		return
	}

	c.tracepointEnumIndex++

	if len(step.Raw) > 0 {
		c.resp.WriteString(string(step.Raw))
		return
	}

	switch step.Kind {
	case EnumNew:
		c.resp.WriteString("T")
		c.resp.WriteNum(step.Def.Number, 16)
		c.resp.WriteByte(':')
		c.resp.WriteNum(step.Def.Addr, 16)
	case EnumAction:
		c.resp.WriteString("A")
	case EnumSource:
		c.resp.WriteString("Z")
	}
}

func parseFrameSelector(body string) (FrameSelector, error) {
	switch {
	case strings.HasPrefix(body, "pc:"):
		pc, err := decodeHexUint64([]byte(strings.TrimPrefix(body, "pc:")))
		if err != nil {
			return FrameSelector{}, err
		}

		return FrameSelector{Kind: FrameByPC, PC: pc}, nil

	case strings.HasPrefix(body, "tdp:"):
		tp, err := decodeHexUint64([]byte(strings.TrimPrefix(body, "tdp:")))
		if err != nil {
			return FrameSelector{}, err
		}

		return FrameSelector{Kind: FrameByTracepointHit, Tracepoint: tp}, nil

	case strings.HasPrefix(body, "range:"):
		parts := strings.SplitN(strings.TrimPrefix(body, "range:"), ":", 2)
		if len(parts) != 2 {
			return FrameSelector{}, &ParseError{Reason: "malformed QTFrame range"}
		}

		start, serr := decodeHexUint64([]byte(parts[0]))
		end, eerr := decodeHexUint64([]byte(parts[1]))

		if serr != nil || eerr != nil {
			return FrameSelector{}, &ParseError{Reason: "malformed QTFrame range"}
		}

		return FrameSelector{Kind: FrameInRange, RangeStart: start, RangeEnd: end}, nil

	case strings.HasPrefix(body, "outside:"):
		parts := strings.SplitN(strings.TrimPrefix(body, "outside:"), ":", 2)
		if len(parts) != 2 {
			return FrameSelector{}, &ParseError{Reason: "malformed QTFrame outside"}
		}

		start, serr := decodeHexUint64([]byte(parts[0]))
		end, eerr := decodeHexUint64([]byte(parts[1]))

		if serr != nil || eerr != nil {
			return FrameSelector{}, &ParseError{Reason: "malformed QTFrame outside"}
		}

		return FrameSelector{Kind: FrameOutsideRange, RangeStart: start, RangeEnd: end}, nil

	default:
		n, err := decodeHexUint64([]byte(body))
		if err != nil {
			return FrameSelector{}, err
		}

		return FrameSelector{Kind: FrameByIndex, Index: int64(n)}, nil
	}
}

func (c *ProtocolCore) handleQTFrame(ctx context.Context, ops TracepointOps, cmd string) {
	sel, err := parseFrameSelector(strings.TrimPrefix(cmd, "QTFrame:"))
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	idx, found, terr := ops.SelectFrame(ctx, sel)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if !found {
		c.resp.WriteString("F-1")
		return
	}

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(idx), 16)
}

func (c *ProtocolCore) handleQTBufferRead(ctx context.Context, ops TracepointOps, cmd string) {
	body := strings.TrimPrefix(cmd, "qTBuffer:")

	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		c.resp.WriteString("E01")
		return
	}

	offset, oerr := decodeHexUint64([]byte(body[:comma]))
	length, lerr := decodeHexUint64([]byte(body[comma+1:]))

	if oerr != nil || lerr != nil {
		c.resp.WriteString("E01")
		return
	}

	data, terr := ops.TraceBufferRead(ctx, offset, length)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteBinary(data)
}
