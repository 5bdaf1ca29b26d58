package demotarget

import (
	"context"
	"sync"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/nervctl/rspstub"
)

// badgerHostIO backs the Host-I/O (`vFile:*`) sub-protocol with a badger
// key-value store standing in for a filesystem: file contents live under a
// "file:<path>" key, and open file descriptors are tracked in memory for
// the lifetime of the process.
type badgerHostIO struct {
	db *badger.DB

	mu      sync.Mutex
	nextFD  int64
	open    map[int64]*openFile
	currPID uint64
}

type openFile struct {
	path  string
	flags rsp.HostIOOpenFlags
}

// NewBadgerHostIO opens (creating if absent) a badger store at dir to back
// Host-I/O file operations.
func NewBadgerHostIO(dir string) (*badgerHostIO, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerHostIO{db: db, open: make(map[int64]*openFile)}, nil
}

// Close releases the underlying badger store.
func (h *badgerHostIO) Close() error { return h.db.Close() }

// Seed writes path's initial contents, for tests and demo fixtures.
func (h *badgerHostIO) Seed(path string, data []byte) error {
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(path), data)
	})
}

func fileKey(path string) []byte { return append([]byte("file:"), path...) }

const (
	hostIOReadOnly  rsp.HostIOOpenFlags = 0
	hostIOWriteOnly rsp.HostIOOpenFlags = 1
	hostIOReadWrite rsp.HostIOOpenFlags = 2
	hostIOCreate    rsp.HostIOOpenFlags = 0x200
)

func (h *badgerHostIO) HostOpen(ctx context.Context, path []byte, flags rsp.HostIOOpenFlags, mode uint32) (int64, rsp.TargetError) {
	p := string(path)

	err := h.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(fileKey(p))
		return err
	})

	exists := err == nil

	if !exists {
		if flags&hostIOCreate == 0 {
			return 0, rsp.Errno(2) // ENOENT
		}

		if serr := h.Seed(p, nil); serr != nil {
			return 0, rsp.NonFatal(serr)
		}
	}

	h.mu.Lock()
	fd := atomic.AddInt64(&h.nextFD, 1)
	h.open[fd] = &openFile{path: p, flags: flags}
	h.mu.Unlock()

	return fd, nil
}

func (h *badgerHostIO) HostClose(ctx context.Context, fd int64) rsp.TargetError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.open[fd]; !ok {
		return rsp.Errno(9) // EBADF
	}

	delete(h.open, fd)

	return nil
}

func (h *badgerHostIO) lookup(fd int64) (*openFile, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.open[fd]

	return f, ok
}

func (h *badgerHostIO) HostPRead(ctx context.Context, fd int64, count, offset uint64) ([]byte, rsp.TargetError) {
	f, ok := h.lookup(fd)
	if !ok {
		return nil, rsp.Errno(9)
	}

	var out []byte

	err := h.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(f.path))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if offset >= uint64(len(val)) {
				out = nil
				return nil
			}

			end := offset + count
			if end > uint64(len(val)) {
				end = uint64(len(val))
			}

			out = append([]byte(nil), val[offset:end]...)

			return nil
		})
	})
	if err != nil {
		return nil, rsp.NonFatal(err)
	}

	return out, nil
}

func (h *badgerHostIO) HostPWrite(ctx context.Context, fd int64, offset uint64, data []byte) (int64, rsp.TargetError) {
	f, ok := h.lookup(fd)
	if !ok {
		return 0, rsp.Errno(9)
	}

	var written int64

	err := h.db.Update(func(txn *badger.Txn) error {
		var existing []byte

		item, err := txn.Get(fileKey(f.path))
		if err == nil {
			_ = item.Value(func(val []byte) error {
				existing = append([]byte(nil), val...)
				return nil
			})
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		need := offset + uint64(len(data))
		if uint64(len(existing)) < need {
			grown := make([]byte, need)
			copy(grown, existing)
			existing = grown
		}

		copy(existing[offset:], data)
		written = int64(len(data))

		return txn.Set(fileKey(f.path), existing)
	})
	if err != nil {
		return 0, rsp.NonFatal(err)
	}

	return written, nil
}

func (h *badgerHostIO) HostFStat(ctx context.Context, fd int64) (rsp.HostStat, rsp.TargetError) {
	f, ok := h.lookup(fd)
	if !ok {
		return rsp.HostStat{}, rsp.Errno(9)
	}

	var st rsp.HostStat

	err := h.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(f.path))
		if err != nil {
			return err
		}

		st.Size = uint64(item.ValueSize())
		st.Mode = 0o100644
		st.MTime = uint64(item.Version())

		return nil
	})
	if err != nil {
		return rsp.HostStat{}, rsp.NonFatal(err)
	}

	return st, nil
}

func (h *badgerHostIO) HostUnlink(ctx context.Context, path []byte) rsp.TargetError {
	if err := h.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(string(path)))
	}); err != nil {
		return rsp.NonFatal(err)
	}

	return nil
}

func (h *badgerHostIO) HostReadlink(ctx context.Context, path []byte) ([]byte, rsp.TargetError) {
	// The demo filesystem has no symlinks; every path resolves to itself.
	return path, nil
}

func (h *badgerHostIO) HostSetFS(ctx context.Context, pid uint64) rsp.TargetError {
	h.mu.Lock()
	h.currPID = pid
	h.mu.Unlock()

	return nil
}
