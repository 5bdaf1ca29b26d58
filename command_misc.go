package rsp

import (
	"context"
	"strings"
)

// command_misc.go implements `QCatchSyscalls` (§4.6): `QCatchSyscalls:0`
// disables syscall catching; `QCatchSyscalls:1[;<sysno>]*` enables it,
// either for the listed syscall numbers or for all of them when none are
// given.

func (c *ProtocolCore) handleCatchSyscalls(ctx context.Context, cmd string) {
	ops, ok := c.target.CatchSyscallsOps()
	if !ok {
		return
	}

	rest := strings.TrimPrefix(cmd, "QCatchSyscalls:")

	parts := strings.Split(rest, ";")
	if len(parts) == 0 {
		c.resp.WriteString("E01")
		return
	}

	if parts[0] == "0" {
		if terr := ops.DisableCatchSyscalls(ctx); terr != nil {
			c.writeTargetError(terr)
			return
		}

		c.resp.WriteString("OK")

		return
	}

	var numbers []uint64

	for _, p := range parts[1:] {
		if p == "" {
			continue
		}

		n, err := decodeHexUint64([]byte(p))
		if err != nil {
			c.resp.WriteString("E01")
			return
		}

		numbers = append(numbers, n)
	}

	if terr := ops.EnableCatchSyscalls(ctx, numbers, len(numbers) == 0); terr != nil {
		c.writeTargetError(terr)
		return
	}

	c.resp.WriteString("OK")
}
