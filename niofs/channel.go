package niofs

import (
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"

	"github.com/spf13/afero"
)

type openMode int

const (
	modeRead openMode = iota + 1
	modeWrite
)

func (m openMode) flag() int {
	if m == modeWrite {
		return os.O_RDWR | os.O_CREATE
	}
	return os.O_RDONLY
}

// sharedChannel is the reference-counted transport for one file
// identity. The underlying afero.File is opened by the first open call
// and released when the reference count returns to zero, so several
// handles on the same identity share a single host file descriptor.
type sharedChannel struct {
	base afero.Fs
	path string

	mu   sync.Mutex
	refs int
	mode openMode
	f    afero.File
}

func newSharedChannel(base afero.Fs, path string) *sharedChannel {
	return &sharedChannel{base: base, path: path}
}

// open references the channel, opening the transport on first use.
// Write mode creates the file if missing; read mode requires it to
// exist. Referencing an already-open channel just increments the
// count, except that requesting write access on a channel opened
// read-only fails with EBADF.
func (c *sharedChannel) open(mode openMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs > 0 {
		if mode == modeWrite && c.mode == modeRead {
			return wrapPathErr("open", c.path, syscall.EBADF)
		}
		c.refs++
		return nil
	}
	f, err := c.base.OpenFile(c.path, mode.flag(), 0o644)
	if err != nil {
		return wrapPathErr("open", c.path, err)
	}
	c.f = f
	c.mode = mode
	c.refs = 1
	return nil
}

// close dereferences the channel and closes the transport when the
// last reference is released. Calling close without a matching open is
// a programming error.
func (c *sharedChannel) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs == 0 {
		return wrapPathErr("close", c.path, fs.ErrClosed)
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}
	f := c.f
	c.f = nil
	c.mode = 0
	return wrapPathErr("close", c.path, f.Close())
}

// writeFully writes all of p at off. Short writes are retried until p
// is drained or the transport reports an error; a silent partial write
// is never returned without an error.
func (c *sharedChannel) writeFully(off int64, p []byte) (int, error) {
	f, err := c.transport("write")
	if err != nil {
		return 0, err
	}
	written := 0
	for written < len(p) {
		n, err := f.WriteAt(p[written:], off+int64(written))
		written += n
		if err != nil {
			return written, wrapPathErr("write", c.path, err)
		}
		if n == 0 {
			return written, wrapPathErr("write", c.path, io.ErrShortWrite)
		}
	}
	return written, nil
}

// readAt reads up to len(p) bytes at off. io.EOF is returned unwrapped
// so callers can distinguish end of file from transport failures.
func (c *sharedChannel) readAt(off int64, p []byte) (int, error) {
	f, err := c.transport("read")
	if err != nil {
		return 0, err
	}
	n, err := f.ReadAt(p, off)
	if err != nil && err != io.EOF {
		err = wrapPathErr("read", c.path, err)
	}
	return n, err
}

func (c *sharedChannel) truncate(size int64) error {
	f, err := c.transport("truncate")
	if err != nil {
		return err
	}
	return wrapPathErr("truncate", c.path, f.Truncate(size))
}

func (c *sharedChannel) size() (int64, error) {
	f, err := c.transport("stat")
	if err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, wrapPathErr("stat", c.path, err)
	}
	return info.Size(), nil
}

// transport returns the open afero.File, or ErrClosed when the channel
// is not currently referenced by anyone.
func (c *sharedChannel) transport(op string) (afero.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil, wrapPathErr(op, c.path, fs.ErrClosed)
	}
	return c.f, nil
}
