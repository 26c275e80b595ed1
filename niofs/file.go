package niofs

import "sync"

// nioFile is the per-identity registry entry: one lock and one shared
// channel per distinct cleaned path within a Filesystem. Entries are
// created on demand by [Filesystem.file] and never torn down.
type nioFile struct {
	fsys *Filesystem
	path string

	// lock serializes access to the identity. Write handles take the
	// write side on construction, read handles the read side; each
	// handle releases its side exactly once, in its terminal operation.
	lock sync.RWMutex

	channel *sharedChannel
}

func newNioFile(fsys *Filesystem, path string) *nioFile {
	return &nioFile{
		fsys:    fsys,
		path:    path,
		channel: newSharedChannel(fsys.base, path),
	}
}

// belongsTo reports whether the entry was issued by fsys. Handles of
// two Filesystem instances never share locks, so cross-instance moves
// are refused even when both instances wrap the same host.
func (nf *nioFile) belongsTo(fsys *Filesystem) bool {
	return nf.fsys == fsys
}
