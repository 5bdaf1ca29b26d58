// Package rsp implements a GDB Remote Serial Protocol stub: the wire-level
// framing, command parsing, and session state machine a debug monitor needs
// to speak gdbserver's protocol to a connecting GDB or LLDB client.
//
// Embedders implement Target against their own inferior (an emulator, a
// JTAG probe, a recorded trace) and hand it to NewProtocolCore along with a
// ByteConn; ProtocolCore.Run then drives one client session to completion.
package rsp
