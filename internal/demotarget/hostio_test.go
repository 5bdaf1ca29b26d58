package demotarget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nervctl/rspstub"
)

func newTestHostIO(t *testing.T) *badgerHostIO {
	t.Helper()

	h, err := NewBadgerHostIO(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { _ = h.Close() })

	return h
}

func TestHostIOOpenRequiresCreateFlagForMissingFile(t *testing.T) {
	ctx := context.Background()
	h := newTestHostIO(t)

	_, terr := h.HostOpen(ctx, []byte("missing"), hostIOReadOnly, 0)
	require.NotNil(t, terr, "opening a nonexistent file without O_CREAT should fail")

	fd, terr := h.HostOpen(ctx, []byte("created"), hostIOCreate, 0o644)
	require.Nil(t, terr)
	require.NotZero(t, fd)
}

func TestHostIOWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newTestHostIO(t)

	require.NoError(t, h.Seed("greeting", nil))

	fd, terr := h.HostOpen(ctx, []byte("greeting"), hostIOReadWrite, 0)
	require.Nil(t, terr)

	n, terr := h.HostPWrite(ctx, fd, 0, []byte("hello"))
	require.Nil(t, terr)
	require.Equal(t, int64(5), n)

	got, terr := h.HostPRead(ctx, fd, 5, 0)
	require.Nil(t, terr)
	require.Equal(t, "hello", string(got))

	got, terr = h.HostPRead(ctx, fd, 2, 1)
	require.Nil(t, terr)
	require.Equal(t, "el", string(got))
}

func TestHostIOCloseInvalidatesFD(t *testing.T) {
	ctx := context.Background()
	h := newTestHostIO(t)

	fd, terr := h.HostOpen(ctx, []byte("f"), hostIOCreate, 0o644)
	require.Nil(t, terr)

	require.Nil(t, h.HostClose(ctx, fd))
	require.NotNil(t, h.HostClose(ctx, fd), "closing twice should fail")

	_, terr = h.HostPRead(ctx, fd, 1, 0)
	require.NotNil(t, terr, "reading a closed fd should fail")
}

func TestHostIOFStatReportsSize(t *testing.T) {
	ctx := context.Background()
	h := newTestHostIO(t)

	require.NoError(t, h.Seed("sized", []byte("0123456789")))

	fd, terr := h.HostOpen(ctx, []byte("sized"), hostIOReadOnly, 0)
	require.Nil(t, terr)

	st, terr := h.HostFStat(ctx, fd)
	require.Nil(t, terr)
	require.Equal(t, uint64(10), st.Size)
}

func TestHostIOUnlinkRemovesFile(t *testing.T) {
	ctx := context.Background()
	h := newTestHostIO(t)

	require.NoError(t, h.Seed("gone", []byte("x")))
	require.Nil(t, h.HostUnlink(ctx, []byte("gone")))

	_, terr := h.HostOpen(ctx, []byte("gone"), hostIOReadOnly, 0)
	require.NotNil(t, terr, "the file should no longer exist")
}

func TestHostIOReadlinkIsIdentity(t *testing.T) {
	h := newTestHostIO(t)

	got, terr := h.HostReadlink(context.Background(), []byte("/some/path"))
	require.Nil(t, terr)
	require.Equal(t, "/some/path", string(got))
}

func TestHostIOSetFSTracksPID(t *testing.T) {
	h := newTestHostIO(t)

	require.Nil(t, h.HostSetFS(context.Background(), 42))
	require.Equal(t, uint64(42), h.currPID)
}

var _ rsp.HostIOOps = (*badgerHostIO)(nil)
