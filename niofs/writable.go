package niofs

import (
	"io/fs"
	"sync"
	"syscall"
	"time"
)

// WritableFile is an exclusive write session on one file identity.
//
// The handle owns the identity's write lock from construction by
// [Filesystem.OpenWritable] until the first terminal operation (Close,
// Delete or MoveTo) releases it; after that every operation fails with
// [fs.ErrClosed] and the handle must be reopened through the
// Filesystem. A WritableFile is meant to be driven by one goroutine at
// a time; exclusion between writers comes from the identity lock, not
// from the handle.
type WritableFile struct {
	mu            sync.Mutex
	file          *nioFile
	pos           int64
	open          bool
	channelOpened bool
}

// Write writes all of p at the current cursor and advances the cursor
// by the number of bytes written. The transport is bound on first use;
// the target file comes into existence at that point if it was missing.
func (w *WritableFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("write"); err != nil {
		return 0, err
	}
	if err := w.ensureChannelOpened(); err != nil {
		return 0, err
	}
	n, err := w.file.channel.writeFully(w.pos, p)
	w.pos += int64(n)
	return n, err
}

// Seek positions the cursor at pos. Seeking beyond the current end of
// file is legal; a following write extends the file and the gap reads
// back as zeros.
func (w *WritableFile) Seek(pos int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("seek"); err != nil {
		return err
	}
	if pos < 0 {
		return wrapPathErr("seek", w.file.path, syscall.EINVAL)
	}
	w.pos = pos
	return nil
}

// Truncate truncates the file to zero length. The cursor stays where
// it is.
func (w *WritableFile) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("truncate"); err != nil {
		return err
	}
	if err := w.ensureChannelOpened(); err != nil {
		return err
	}
	return w.file.channel.truncate(0)
}

// SetLastModified updates the file's modification timestamp. The
// transport is bound first, so metadata updates serialize against
// writes and truncation the same way content updates do. The access
// timestamp comes from the Filesystem's clock.
func (w *WritableFile) SetLastModified(mtime time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("chtimes"); err != nil {
		return err
	}
	if err := w.ensureChannelOpened(); err != nil {
		return err
	}
	fsys := w.file.fsys
	return wrapPathErr("chtimes", w.file.path, fsys.base.Chtimes(w.file.path, fsys.clock.Now(), mtime))
}

// Delete removes the underlying file and closes the handle. The write
// lock is released whether or not removal succeeds; a failed Delete
// still leaves the handle permanently closed.
func (w *WritableFile) Delete() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("remove"); err != nil {
		return err
	}
	defer func() {
		w.open = false
		w.file.lock.Unlock()
	}()
	if err := w.closeChannelIfOpened(); err != nil {
		return err
	}
	return wrapPathErr("remove", w.file.path, w.file.fsys.base.Remove(w.file.path))
}

// Close releases the write lock and dereferences the channel if this
// handle bound it. Closing an already closed handle is a no-op; the
// lock is released at most once.
func (w *WritableFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return nil
	}
	w.open = false
	defer w.file.lock.Unlock()
	return w.closeChannelIfOpened()
}

// IsOpen reports whether no terminal operation has run yet.
func (w *WritableFile) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *WritableFile) assertOpen(op string) error {
	if !w.open {
		return wrapPathErr(op, w.file.path, fs.ErrClosed)
	}
	return nil
}

// ensureChannelOpened binds the shared channel for write access.
// Idempotent per handle; the channel itself counts one reference per
// binding handle.
func (w *WritableFile) ensureChannelOpened() error {
	if w.channelOpened {
		return nil
	}
	if err := w.file.channel.open(modeWrite); err != nil {
		return err
	}
	w.channelOpened = true
	return nil
}

func (w *WritableFile) closeChannelIfOpened() error {
	if !w.channelOpened {
		return nil
	}
	w.channelOpened = false
	return w.file.channel.close()
}
