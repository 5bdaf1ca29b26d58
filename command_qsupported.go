package rsp

import "strings"

// command_qsupported.go implements the `qSupported` capability-negotiation
// handshake (§4.6): the core answers with exactly the feature strings
// corresponding to capabilities the Target actually advertised, per the
// nullable-accessor probe pattern, plus the packet-size and thread-model
// features the core itself always provides.

func (c *ProtocolCore) handleQSupported(cmd string) {
	// cmd is "qSupported" or "qSupported:<gdb-features>"; gdb's own
	// feature offers (xmlRegisters=i386, qRelocInsn+, etc.) are parsed
	// only for the one bit the core cares about.
	if strings.Contains(cmd, "multiprocess+") {
		c.features.Multiprocess = true
		c.resp.SetMultiprocess(true)
	}

	c.resp.WriteString("PacketSize=")
	c.resp.WriteNum(uint64(len(c.framer.buf)), 16)

	c.resp.WriteString(";QStartNoAckMode+")
	c.resp.WriteString(";multiprocess+")

	if c.caps.has(capSwBreakpoint) {
		c.resp.WriteString(";swbreak+")
	}

	if c.caps.has(capHwBreakpoint) {
		c.resp.WriteString(";hwbreak+")
	}

	if c.caps.has(capResume) {
		c.resp.WriteString(";vContSupported+")
	}

	if c.caps.has(capExtendedMode) {
		c.resp.WriteString(";QDisableRandomization+;QEnvironmentHexEncoded+")
		c.resp.WriteString(";QEnvironmentUnset+;QEnvironmentReset+")
		c.resp.WriteString(";QStartupWithShell+;QSetWorkingDir+")
	}

	if c.caps.has(capCatchSyscalls) {
		c.resp.WriteString(";QCatchSyscalls+")
	}

	if c.caps.has(capHostIO) {
		c.resp.WriteString(";vFile-setfs+")
	}

	if c.caps.has(capTargetDescriptionXML) {
		c.resp.WriteString(";qXfer:features:read+")
	}

	if c.caps.has(capMemoryMapXML) {
		c.resp.WriteString(";qXfer:memory-map:read+")
	}

	if c.caps.has(capExecFile) {
		c.resp.WriteString(";qXfer:exec-file:read+")
	}

	if c.caps.has(capAuxv) {
		c.resp.WriteString(";qXfer:auxv:read+")
	}

	if c.caps.has(capLibraries) {
		c.resp.WriteString(";qXfer:libraries:read+")
	}

	if c.caps.has(capLibrariesSvr4) {
		c.resp.WriteString(";qXfer:libraries-svr4:read+")
	}

	if c.caps.has(capTracepoints) {
		c.resp.WriteString(";TracepointSource+;ConditionalTracepoints+")
	}

	if c.caps.has(capReverseExec) {
		c.resp.WriteString(";ReverseContinue+;ReverseStep+")
	}
}
