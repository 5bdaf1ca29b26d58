package rsp

import (
	"context"
	"strings"
)

// command_breakpoints.go implements Z/z (§4.8): software/hardware
// breakpoints and watchpoints, plus the optional agent-bytecode condition.
// One `;X<len>,<bytecode>` condition is parsed and handed to
// RegisterBytecode; command lists are not supported, and the identifier
// RegisterBytecode returns is not kept with the breakpoint.

// breakpointSpec is one parsed Z/z packet: `Z<type>,<addr>,<kind>[;X<len>,<bytecode>]...`.
type breakpointSpec struct {
	kind      byte // '0'..'4'
	addr      uint64
	bpKind    BreakpointKind
	condition []byte
	hasCond   bool
}

func parseBreakpointSpec(body string) (breakpointSpec, error) {
	if len(body) < 1 {
		return breakpointSpec{}, &ParseError{Reason: "empty Z/z body"}
	}

	spec := breakpointSpec{kind: body[0]}
	rest := body[1:]

	if !strings.HasPrefix(rest, ",") {
		return breakpointSpec{}, &ParseError{Reason: "malformed Z/z packet"}
	}

	rest = rest[1:]

	// Split off any agent-bytecode extension, introduced by ';'.
	semi := strings.IndexByte(rest, ';')

	ext := ""
	if semi >= 0 {
		ext = rest[semi+1:]
		rest = rest[:semi]
	}

	addr, bpk, err := parseAddrLen(rest)
	if err != nil {
		return breakpointSpec{}, err
	}

	spec.addr = addr
	spec.bpKind = BreakpointKind(bpk)

	if ext != "" && strings.HasPrefix(ext, "X") {
		// X<len>,<bytecode-hex>
		commaIdx := strings.IndexByte(ext, ',')
		if commaIdx < 0 {
			return breakpointSpec{}, &ParseError{Reason: "malformed agent bytecode extension"}
		}

		raw, err := decodeHexString(ext[commaIdx+1:])
		if err != nil {
			return breakpointSpec{}, err
		}

		spec.condition = raw
		spec.hasCond = true
	}

	return spec, nil
}

func (c *ProtocolCore) handleSetBreakpoint(ctx context.Context, cmd string) {
	spec, err := parseBreakpointSpec(cmd[1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	switch spec.kind {
	case '0': // software breakpoint
		c.addBreakOrWatch(ctx, spec, c.target.SwBreakpointOps)

	case '1': // hardware breakpoint
		c.addBreakOrWatch(ctx, spec, c.target.HwBreakpointOps)

	case '2', '3', '4': // write/read/access watchpoint
		ops, ok := c.target.HwWatchpointOps()
		if !ok {
			return
		}

		kind := WatchWrite
		if spec.kind == '3' {
			kind = WatchRead
		} else if spec.kind == '4' {
			kind = WatchReadWrite
		}

		ok2, terr := ops.AddWatchpoint(ctx, spec.addr, uint64(spec.bpKind), kind)
		if terr != nil {
			c.writeTargetError(terr)
			return
		}

		if ok2 {
			c.resp.WriteString("OK")
		} else {
			c.resp.WriteString("E01")
		}

	default:
		// unknown breakpoint type: unsupported.
	}
}

func (c *ProtocolCore) handleClearBreakpoint(ctx context.Context, cmd string) {
	spec, err := parseBreakpointSpec(cmd[1:])
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	switch spec.kind {
	case '0':
		ops, ok := c.target.SwBreakpointOps()
		if !ok {
			return
		}

		c.removeBreak(ctx, ops, spec)

	case '1':
		ops, ok := c.target.HwBreakpointOps()
		if !ok {
			return
		}

		c.removeBreak(ctx, ops, spec)

	case '2', '3', '4':
		ops, ok := c.target.HwWatchpointOps()
		if !ok {
			return
		}

		kind := WatchWrite
		if spec.kind == '3' {
			kind = WatchRead
		} else if spec.kind == '4' {
			kind = WatchReadWrite
		}

		ok2, terr := ops.RemoveWatchpoint(ctx, spec.addr, uint64(spec.bpKind), kind)
		if terr != nil {
			c.writeTargetError(terr)
			return
		}

		if ok2 {
			c.resp.WriteString("OK")
		} else {
			c.resp.WriteString("E01")
		}
	}
}

func (c *ProtocolCore) removeBreak(ctx context.Context, ops BreakpointOps, spec breakpointSpec) {
	ok, terr := ops.RemoveBreakpoint(ctx, spec.addr, spec.bpKind)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if ok {
		c.resp.WriteString("OK")
	} else {
		c.resp.WriteString("E01")
	}
}

// addBreakOrWatch shares the add-breakpoint path between sw and hw kinds,
// registering an agent-bytecode condition first when the Target's
// BreakpointOps additionally implements BytecodeAgentOps.
func (c *ProtocolCore) addBreakOrWatch(ctx context.Context, spec breakpointSpec, probe func() (BreakpointOps, bool)) {
	ops, ok := probe()
	if !ok {
		return
	}

	if spec.hasCond {
		if bc, ok := ops.(BytecodeAgentOps); ok {
			if _, _, terr := bc.RegisterBytecode(ctx, spec.condition); terr != nil {
				c.writeTargetError(terr)
				return
			}
		}
	}

	added, terr := ops.AddBreakpoint(ctx, spec.addr, spec.bpKind)
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if added {
		c.resp.WriteString("OK")
	} else {
		c.resp.WriteString("E01")
	}
}
