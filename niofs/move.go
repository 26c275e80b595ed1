package niofs

import (
	"fmt"
	"syscall"

	"github.com/ngicks/go-common/serr"
)

// MoveTo atomically renames this handle's file onto other's identity,
// replacing whatever other currently denotes. Moving a handle onto
// itself is a no-op that leaves cursor, open state and lock ownership
// untouched.
//
// Preconditions run before any state is touched, so a failed check
// leaves both handles open and usable: both handles must be open
// ([fs.ErrClosed] otherwise), other must belong to the same
// [Filesystem] instance ([ErrCrossFilesystem]), and neither identity
// may currently denote a directory (EISDIR).
//
// Once preconditions pass the move is irreversible. Both channels are
// closed so the host rename never runs against open descriptors, the
// rename is attempted, and then, success or failure, both handles are
// marked closed and both write locks released. A failure in the
// teardown or rename step surfaces as a [*os.LinkError] wrapping
// [ErrMoveFailed] and the underlying cause; the handles are closed
// regardless and must be reopened through the Filesystem.
func (w *WritableFile) MoveTo(other *WritableFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.assertOpen("rename"); err != nil {
		return err
	}
	if other == w {
		return nil
	}
	if !other.file.belongsTo(w.file.fsys) {
		return wrapLinkErr("rename", w.file.path, other.file.path, ErrCrossFilesystem)
	}

	other.mu.Lock()
	defer other.mu.Unlock()
	if err := other.assertOpen("rename"); err != nil {
		return err
	}
	fsys := w.file.fsys
	if fsys.isDirectory(w.file.path) {
		return wrapPathErr("rename", w.file.path, syscall.EISDIR)
	}
	if fsys.isDirectory(other.file.path) {
		return wrapPathErr("rename", other.file.path, syscall.EISDIR)
	}

	// Point of no return. Open state and both locks unwind no matter
	// what the teardown and rename below do; the locks are the only
	// thing keeping another writer from racing the rename, so they are
	// released last.
	defer func() {
		w.open = false
		other.open = false
		other.file.lock.Unlock()
		w.file.lock.Unlock()
	}()

	err := serr.GatherPrefixed([]serr.PrefixErr{
		{P: "source: ", E: w.closeChannelIfOpened()},
		{P: "destination: ", E: other.closeChannelIfOpened()},
	})
	if err == nil {
		err = fsys.rename(w.file.path, other.file.path)
	}
	if err != nil {
		return wrapLinkErr("rename", w.file.path, other.file.path,
			fmt.Errorf("%w: %w", ErrMoveFailed, err))
	}
	return nil
}
