package rsp

import (
	"context"
	"strconv"
	"strings"
)

// command_hostio.go implements Host-I/O (`vFile:*`, §4.6), the subset GDB
// uses to read files (symbol tables, shared libraries) from the inferior's
// filesystem through the stub instead of the debugger's own.

func (c *ProtocolCore) handleHostIO(ctx context.Context, cmd string) {
	ops, ok := c.target.HostIOOps()
	if !ok {
		return
	}

	rest := strings.TrimPrefix(cmd, "vFile:")

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		c.writeHostIOError(9) // EBADF-ish generic
		return
	}

	op, args := rest[:colon], rest[colon+1:]

	switch op {
	case "open":
		c.hostOpen(ctx, ops, args)
	case "close":
		c.hostClose(ctx, ops, args)
	case "pread":
		c.hostPRead(ctx, ops, args)
	case "pwrite":
		c.hostPWrite(ctx, ops, args)
	case "fstat":
		c.hostFStat(ctx, ops, args)
	case "unlink":
		c.hostUnlink(ctx, ops, args)
	case "readlink":
		c.hostReadlink(ctx, ops, args)
	case "setfs":
		c.hostSetFS(ctx, ops, args)
	}
}

func (c *ProtocolCore) writeHostIOError(errno uint8) {
	c.resp.WriteString("F-1,")
	c.resp.WriteNum(uint64(errno), 16)
}

func hostErrno(err TargetError) uint8 {
	code, _ := errCode(err)
	return code
}

func decodeHostPath(hex string) ([]byte, error) { return decodeHexString(hex) }

func (c *ProtocolCore) hostOpen(ctx context.Context, ops HostIOOps, args string) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		c.writeHostIOError(22)
		return
	}

	path, err := decodeHostPath(parts[0])
	if err != nil {
		c.writeHostIOError(22)
		return
	}

	flags, ferr := strconv.ParseUint(parts[1], 16, 32)
	mode, merr := strconv.ParseUint(parts[2], 16, 32)

	if ferr != nil || merr != nil {
		c.writeHostIOError(22)
		return
	}

	fd, terr := ops.HostOpen(ctx, path, HostIOOpenFlags(flags), uint32(mode))
	if terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(fd), 16)
}

func (c *ProtocolCore) hostClose(ctx context.Context, ops HostIOOps, args string) {
	fd, err := strconv.ParseInt(args, 16, 64)
	if err != nil {
		c.writeHostIOError(9)
		return
	}

	if terr := ops.HostClose(ctx, fd); terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F0")
}

func (c *ProtocolCore) hostPRead(ctx context.Context, ops HostIOOps, args string) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		c.writeHostIOError(22)
		return
	}

	fd, ferr := strconv.ParseInt(parts[0], 16, 64)
	count, cerr := decodeHexUint64([]byte(parts[1]))
	offset, oerr := decodeHexUint64([]byte(parts[2]))

	if ferr != nil || cerr != nil || oerr != nil {
		c.writeHostIOError(22)
		return
	}

	data, terr := ops.HostPRead(ctx, fd, count, offset)
	if terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(len(data)), 16)
	c.resp.WriteByte(';')
	c.resp.WriteBinary(data)
}

func (c *ProtocolCore) hostPWrite(ctx context.Context, ops HostIOOps, args string) {
	parts := strings.SplitN(args, ",", 3)
	if len(parts) != 3 {
		c.writeHostIOError(22)
		return
	}

	fd, ferr := strconv.ParseInt(parts[0], 16, 64)
	offset, oerr := decodeHexUint64([]byte(parts[1]))

	if ferr != nil || oerr != nil {
		c.writeHostIOError(22)
		return
	}

	data, derr := decodeBinBufInPlace([]byte(parts[2]))
	if derr != nil {
		c.writeHostIOError(22)
		return
	}

	n, terr := ops.HostPWrite(ctx, fd, offset, data)
	if terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(n), 16)
}

func (c *ProtocolCore) hostFStat(ctx context.Context, ops HostIOOps, args string) {
	fd, err := strconv.ParseInt(args, 16, 64)
	if err != nil {
		c.writeHostIOError(9)
		return
	}

	st, terr := ops.HostFStat(ctx, fd)
	if terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	// struct stat, big-endian, GDB's fixed 64-byte Host-I/O layout; only
	// size/mode/mtime are populated, matching what HostStat carries.
	buf := make([]byte, 64)
	putBE32(buf[8:], st.Mode)
	putBE64(buf[28:], st.Size)
	putBE32(buf[56:], uint32(st.MTime))

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(len(buf)), 16)
	c.resp.WriteByte(';')
	c.resp.WriteBinary(buf)
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putBE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

func (c *ProtocolCore) hostUnlink(ctx context.Context, ops HostIOOps, args string) {
	path, err := decodeHostPath(args)
	if err != nil {
		c.writeHostIOError(22)
		return
	}

	if terr := ops.HostUnlink(ctx, path); terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F0")
}

func (c *ProtocolCore) hostReadlink(ctx context.Context, ops HostIOOps, args string) {
	path, err := decodeHostPath(args)
	if err != nil {
		c.writeHostIOError(22)
		return
	}

	target, terr := ops.HostReadlink(ctx, path)
	if terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F")
	c.resp.WriteNum(uint64(len(target)), 16)
	c.resp.WriteByte(';')
	c.resp.WriteBinary(target)
}

func (c *ProtocolCore) hostSetFS(ctx context.Context, ops HostIOOps, args string) {
	pid, err := decodeHexUint64([]byte(args))
	if err != nil {
		c.writeHostIOError(22)
		return
	}

	if terr := ops.HostSetFS(ctx, pid); terr != nil {
		c.writeHostIOError(hostErrno(terr))
		return
	}

	c.resp.WriteString("F0")
}
