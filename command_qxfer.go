package rsp

import (
	"context"
	"strconv"
	"strings"
)

// command_qxfer.go implements the generic `qXfer:<object>:read:<annex>:
// <offset>,<length>` chunked-read sub-protocol (§4.6), grounded on the
// teacher's streaming-reply helper: a single in-memory buffer is produced
// per request and then sliced into the client-requested window, prefixed
// with `m` (more data follows) or `l` (this is the final chunk).

// streamChunk slices full at [offset, offset+length), returning the `m`/`l`
// prefix byte and the slice to send.
func streamChunk(full []byte, offset, length uint64) (byte, []byte) {
	if offset >= uint64(len(full)) {
		return 'l', nil
	}

	end := offset + length
	if end >= uint64(len(full)) {
		return 'l', full[offset:]
	}

	return 'm', full[offset:end]
}

func (c *ProtocolCore) handleQXfer(ctx context.Context, cmd string) {
	// qXfer:<object>:read:<annex>:<offset>,<length>
	parts := strings.SplitN(cmd, ":", 5)
	if len(parts) != 5 || parts[2] != "read" {
		return
	}

	object, annex, rangeStr := parts[1], parts[3], parts[4]

	comma := strings.IndexByte(rangeStr, ',')
	if comma < 0 {
		c.resp.WriteString("E01")
		return
	}

	offset, err := decodeHexUint64([]byte(rangeStr[:comma]))
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	length, err := decodeHexUint64([]byte(rangeStr[comma+1:]))
	if err != nil {
		c.resp.WriteString("E01")
		return
	}

	var (
		full []byte
		terr TargetError
	)

	switch object {
	case "features":
		ops, ok := c.target.TargetDescriptionOps()
		if !ok {
			return
		}

		full, terr = ops.TargetDescriptionXML(ctx)

	case "memory-map":
		ops, ok := c.target.MemoryMapOps()
		if !ok {
			return
		}

		full, terr = ops.MemoryMapXML(ctx)

	case "exec-file":
		ops, ok := c.target.ExecFileOps()
		if !ok {
			return
		}

		pid, perr := strconv.ParseUint(annex, 16, 64)
		if perr != nil {
			pid = 0
		}

		full, terr = ops.ExecFile(ctx, pid)

	case "auxv":
		ops, ok := c.target.AuxvOps()
		if !ok {
			return
		}

		full, terr = ops.Auxv(ctx)

	case "libraries":
		ops, ok := c.target.LibrariesOps()
		if !ok {
			return
		}

		full, terr = ops.LibrariesXML(ctx)

	case "libraries-svr4":
		ops, ok := c.target.LibrariesSvr4Ops()
		if !ok {
			return
		}

		full, terr = ops.LibrariesXML(ctx)

	default:
		return
	}

	if terr != nil {
		c.writeTargetError(terr)
		return
	}

	prefix, chunk := streamChunk(full, offset, length)
	c.resp.WriteByte(prefix)
	c.resp.WriteBinary(chunk)
}
