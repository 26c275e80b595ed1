package niofs

import (
	"io/fs"
	"sync"
	"syscall"
)

// ReadableFile is a positioned read session sharing the identity's
// channel. Any number of ReadableFiles may be open on one identity at
// the same time; they hold the read side of the identity lock, so an
// open writer excludes them and vice versa.
type ReadableFile struct {
	mu            sync.Mutex
	file          *nioFile
	pos           int64
	open          bool
	channelOpened bool
}

// Read reads up to len(p) bytes at the current cursor and advances the
// cursor by the number of bytes read. Returns io.EOF at end of file.
func (r *ReadableFile) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.assertOpen("read"); err != nil {
		return 0, err
	}
	if err := r.ensureChannelOpened(); err != nil {
		return 0, err
	}
	n, err := r.file.channel.readAt(r.pos, p)
	r.pos += int64(n)
	return n, err
}

// Seek positions the cursor at pos.
func (r *ReadableFile) Seek(pos int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.assertOpen("seek"); err != nil {
		return err
	}
	if pos < 0 {
		return wrapPathErr("seek", r.file.path, syscall.EINVAL)
	}
	r.pos = pos
	return nil
}

// Size reports the current length of the file.
func (r *ReadableFile) Size() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.assertOpen("stat"); err != nil {
		return 0, err
	}
	if err := r.ensureChannelOpened(); err != nil {
		return 0, err
	}
	return r.file.channel.size()
}

// Close releases the read lock and dereferences the channel if this
// handle bound it. Closing an already closed handle is a no-op.
func (r *ReadableFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.open = false
	defer r.file.lock.RUnlock()
	if !r.channelOpened {
		return nil
	}
	r.channelOpened = false
	return r.file.channel.close()
}

// IsOpen reports whether the handle has not been closed yet.
func (r *ReadableFile) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

func (r *ReadableFile) assertOpen(op string) error {
	if !r.open {
		return wrapPathErr(op, r.file.path, fs.ErrClosed)
	}
	return nil
}

func (r *ReadableFile) ensureChannelOpened() error {
	if r.channelOpened {
		return nil
	}
	if err := r.file.channel.open(modeRead); err != nil {
		return err
	}
	r.channelOpened = true
	return nil
}
