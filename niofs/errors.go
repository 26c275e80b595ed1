package niofs

import (
	"errors"
	"io/fs"
	"os"
)

var (
	// ErrCrossFilesystem is returned from [WritableFile.MoveTo] when the
	// destination handle belongs to a different [Filesystem] instance.
	// The move is refused before any state is touched.
	ErrCrossFilesystem = errors.New("handle belongs to a different filesystem")
	// ErrMoveFailed reports that a move failed after both handles'
	// channels were already torn down. Both handles are closed and
	// their locks released when this error is returned; the underlying
	// host error is wrapped.
	ErrMoveFailed = errors.New("move failed")
)

// wrapPathErr wraps err into a [*fs.PathError]. A nil err stays nil and
// an err that already carries path context is passed through untouched.
func wrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// wrapLinkErr wraps err into a [*os.LinkError] carrying both identities
// of a move. A nil err stays nil.
func wrapLinkErr(op, old, new string, err error) error {
	if err == nil {
		return nil
	}
	return &os.LinkError{Op: op, Old: old, New: new, Err: err}
}
