package rsp

import "context"

// command_monitor.go implements `qRcmd` (§4.6): GDB's "monitor <cmd>"
// console, relayed verbatim to the Target. All console output is collected
// and sent hex-encoded as the single reply ("OK" when there is none); no
// intermediate "O" packets are sent.

func (c *ProtocolCore) handleMonitor(ctx context.Context, cmd string) {
	ops, ok := c.target.MonitorCmdOps()
	if !ok {
		return
	}

	hexCmd := cmd[len("qRcmd,"):]

	raw, err := decodeHexString(hexCmd)
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	var console []byte

	terr := ops.HandleMonitorCmd(ctx, raw, func(chunk []byte) {
		console = append(console, chunk...)
	})
	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	if len(console) == 0 {
		c.resp.WriteString("OK")
		return
	}

	c.resp.WriteHexBuf(console)
}
