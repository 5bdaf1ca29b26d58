package rsp

import (
	"context"
	"testing"
)

func newReportStopCore(conn *fakeConn) *ProtocolCore {
	c := &ProtocolCore{
		conn:   conn,
		resp:   NewResponseWriter(conn, 256),
		framer: NewPacketFramer(make([]byte, 256)),
		sess:   NewSession(),
	}

	if _, err := c.sess.AdvanceFromIdle(OutcomeResumed, DisconnectReason{}); err != nil {
		panic(err)
	}

	return c
}

func TestReportStopAcceptsLibrarySvr4Capability(t *testing.T) {
	conn := &fakeConn{acks: []byte{'+'}}
	c := newReportStopCore(conn)
	c.caps.set(capLibrariesSvr4)

	ctx := context.Background()
	if err := c.reportStop(ctx, Library(SingleThreadID)); err != nil {
		t.Fatalf("expected a Target advertising only LibrariesSvr4Ops to be allowed to report Library, got %v", err)
	}
}

func TestReportStopRejectsLibraryWithoutEitherCapability(t *testing.T) {
	conn := &fakeConn{acks: []byte{'+'}}
	c := newReportStopCore(conn)

	ctx := context.Background()
	err := c.reportStop(ctx, Library(SingleThreadID))
	if err == nil {
		t.Fatal("expected a CapabilityMisuseError")
	}

	if _, ok := err.(*CapabilityMisuseError); !ok {
		t.Fatalf("expected *CapabilityMisuseError, got %T: %v", err, err)
	}
}
