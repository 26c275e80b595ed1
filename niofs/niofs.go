// Package niofs provides exclusive, crash-safe write sessions against
// files of a filesystem layered over an [afero.Fs] host.
//
// A [Filesystem] keeps one registry entry per distinct file identity
// (cleaned path). The entry carries the identity's write lock and the
// identity's shared, reference-counted transport channel. Handles are
// constructed together with lock acquisition: [Filesystem.OpenWritable]
// blocks until the write lock is free and returns a [WritableFile] that
// owns the lock until its first terminal operation (Close, Delete or
// MoveTo) releases it. [Filesystem.OpenReadable] does the same with the
// read side of the lock, so any number of readers may share an identity
// but readers and the writer exclude each other.
//
// The transport channel is opened lazily, on the first operation that
// actually touches file content, and released when the last handle
// referencing it closes.
package niofs

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/afero"

	"github.com/docolima/cryptomator/clock"
)

// Option configures a Filesystem.
type Option struct {
	// Clock supplies access timestamps for metadata updates.
	// If nil, clock.RealWallClock() will be used.
	Clock clock.WallClock
}

// applyDefaults returns an Option with default values filled in.
func (o Option) applyDefaults() Option {
	if o.Clock == nil {
		o.Clock = clock.RealWallClock()
	}
	return o
}

// Filesystem hands out exclusive write handles and shared read handles
// for files of a host filesystem.
type Filesystem struct {
	base  afero.Fs
	clock clock.WallClock

	mu    sync.Mutex
	files map[string]*nioFile
}

// New wraps base. All handles opened through the returned Filesystem
// serialize against each other; handles of two different Filesystem
// instances do not, even when both wrap the same host.
func New(base afero.Fs, opt Option) *Filesystem {
	opt = opt.applyDefaults()
	return &Filesystem{
		base:  base,
		clock: opt.Clock,
		files: make(map[string]*nioFile),
	}
}

// file returns the registry entry for name, creating it on first
// access. Entries are retained for the lifetime of the Filesystem so
// that a given identity always resolves to the same lock.
func (f *Filesystem) file(name string) *nioFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	nf, ok := f.files[name]
	if !ok {
		nf = newNioFile(f, name)
		f.files[name] = nf
	}
	return nf
}

// OpenWritable opens an exclusive write session on name, blocking
// until no other writer or reader holds the identity. The file itself
// is not touched until the handle first writes, truncates or updates
// metadata; it may not exist yet.
func (f *Filesystem) OpenWritable(name string) (*WritableFile, error) {
	name = cleanPath(name)
	if info, err := f.base.Stat(name); err == nil && info.IsDir() {
		return nil, wrapPathErr("open", name, syscall.EISDIR)
	}
	nf := f.file(name)
	nf.lock.Lock()
	return &WritableFile{file: nf, open: true}, nil
}

// OpenReadable opens a read session on name, blocking while a writer
// holds the identity. Unlike OpenWritable the file must exist.
func (f *Filesystem) OpenReadable(name string) (*ReadableFile, error) {
	name = cleanPath(name)
	info, err := f.base.Stat(name)
	if err != nil {
		return nil, wrapPathErr("open", name, err)
	}
	if info.IsDir() {
		return nil, wrapPathErr("open", name, syscall.EISDIR)
	}
	nf := f.file(name)
	nf.lock.RLock()
	return &ReadableFile{file: nf, open: true}, nil
}

// rename renames oldname onto newname, replacing newname if it exists.
// Both identities' write locks are expected to be held by the caller,
// so the remove-then-retry fallback for hosts that refuse to replace
// (the in-memory backend among them) cannot race another writer.
func (f *Filesystem) rename(oldname, newname string) error {
	err := f.base.Rename(oldname, newname)
	if err == nil {
		return nil
	}
	if !errors.Is(err, afero.ErrDestinationExists) && !errors.Is(err, fs.ErrExist) {
		return err
	}
	if rmErr := f.base.Remove(newname); rmErr != nil {
		return err
	}
	return f.base.Rename(oldname, newname)
}

// isDirectory reports whether name currently denotes a directory on
// the host. A missing file is not a directory.
func (f *Filesystem) isDirectory(name string) bool {
	info, err := f.base.Stat(name)
	return err == nil && info.IsDir()
}

// Close closes the host filesystem if it supports closing.
// Callers should not use the Filesystem afterwards but the method may
// be a no-op.
func (f *Filesystem) Close() error {
	if c, ok := f.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// cleanPath normalizes name so that equal identities map to the same
// registry entry regardless of separator or redundant path elements.
func cleanPath(name string) string {
	return path.Clean(filepath.ToSlash(name))
}
