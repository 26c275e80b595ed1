package niofs

import (
	"io/fs"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"gotest.tools/v3/assert"
)

func TestWritableFile_MoveTo(t *testing.T) {
	t.Run("replaces the destination content", func(t *testing.T) {
		base := afero.NewMemMapFs()
		fsys := New(base, Option{})

		src, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		_, err = src.Write([]byte{1, 2, 3})
		assert.NilError(t, err)

		dst, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)
		_, err = dst.Write([]byte{9, 9})
		assert.NilError(t, err)

		assert.NilError(t, src.MoveTo(dst))
		assert.Assert(t, !src.IsOpen())
		assert.Assert(t, !dst.IsOpen())

		data, err := afero.ReadFile(base, "b.txt")
		assert.NilError(t, err)
		assert.DeepEqual(t, data, []byte{1, 2, 3})

		_, err = base.Stat("a.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("releases both locks", func(t *testing.T) {
		fsys := New(afero.NewMemMapFs(), Option{})

		src, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		_, err = src.Write([]byte("payload"))
		assert.NilError(t, err)
		dst, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)

		assert.NilError(t, src.MoveTo(dst))

		// Both identities must be reacquirable without blocking.
		w1, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		assert.NilError(t, w1.Close())
		w2, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)
		assert.NilError(t, w2.Close())
	})

	t.Run("self move is a no-op", func(t *testing.T) {
		fsys := New(afero.NewMemMapFs(), Option{})

		w, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		_, err = w.Write([]byte("stay"))
		assert.NilError(t, err)

		assert.NilError(t, w.MoveTo(w))
		assert.Assert(t, w.IsOpen())
		assert.Equal(t, w.pos, int64(4))
		assert.Assert(t, w.channelOpened)

		// The lock is still owned; further writes go through.
		_, err = w.Write([]byte("ing"))
		assert.NilError(t, err)
		assert.NilError(t, w.Close())
	})

	t.Run("self move on a closed handle fails", func(t *testing.T) {
		fsys := New(afero.NewMemMapFs(), Option{})

		w, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		assert.NilError(t, w.Close())

		assert.ErrorIs(t, w.MoveTo(w), fs.ErrClosed)
	})

	t.Run("cross filesystem move is refused", func(t *testing.T) {
		base := afero.NewMemMapFs()
		fsys1 := New(base, Option{})
		fsys2 := New(base, Option{})

		src, err := fsys1.OpenWritable("a.txt")
		assert.NilError(t, err)
		dst, err := fsys2.OpenWritable("b.txt")
		assert.NilError(t, err)

		err = src.MoveTo(dst)
		assert.ErrorIs(t, err, ErrCrossFilesystem)

		// Precondition failures leave both handles untouched.
		assert.Assert(t, src.IsOpen())
		assert.Assert(t, dst.IsOpen())
		assert.NilError(t, src.Close())
		assert.NilError(t, dst.Close())
	})

	t.Run("closed destination is refused", func(t *testing.T) {
		fsys := New(afero.NewMemMapFs(), Option{})

		src, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		dst, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)
		assert.NilError(t, dst.Close())

		err = src.MoveTo(dst)
		assert.ErrorIs(t, err, fs.ErrClosed)
		assert.Assert(t, src.IsOpen())
		assert.NilError(t, src.Close())
	})

	t.Run("directory at either end is refused", func(t *testing.T) {
		base := afero.NewMemMapFs()
		fsys := New(base, Option{})

		// Neither handle has bound its channel, so the identities can
		// still be turned into directories behind the handles' backs.
		src, err := fsys.OpenWritable("src")
		assert.NilError(t, err)
		dst, err := fsys.OpenWritable("dst")
		assert.NilError(t, err)

		assert.NilError(t, base.MkdirAll("dst", 0o755))
		err = src.MoveTo(dst)
		assert.ErrorIs(t, err, syscall.EISDIR)
		assert.Assert(t, src.IsOpen())
		assert.Assert(t, dst.IsOpen())

		assert.NilError(t, base.MkdirAll("src", 0o755))
		err = src.MoveTo(dst)
		assert.ErrorIs(t, err, syscall.EISDIR)
		assert.Assert(t, src.IsOpen())
		assert.Assert(t, dst.IsOpen())

		assert.NilError(t, src.Close())
		assert.NilError(t, dst.Close())
	})

	t.Run("rename failure closes both handles anyway", func(t *testing.T) {
		base := afero.NewReadOnlyFs(afero.NewMemMapFs())
		fsys := New(base, Option{})

		// Channels stay unbound so the read-only host is never written.
		src, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		dst, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)

		err = src.MoveTo(dst)
		assert.ErrorIs(t, err, ErrMoveFailed)
		assert.Assert(t, !src.IsOpen())
		assert.Assert(t, !dst.IsOpen())

		// Even the failed move must have released both locks.
		w1, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		assert.NilError(t, w1.Close())
		w2, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)
		assert.NilError(t, w2.Close())
	})

	t.Run("moved-from and moved-to identities stay usable", func(t *testing.T) {
		base := afero.NewMemMapFs()
		fsys := New(base, Option{})

		src, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		_, err = src.Write([]byte("v1"))
		assert.NilError(t, err)
		dst, err := fsys.OpenWritable("b.txt")
		assert.NilError(t, err)
		assert.NilError(t, src.MoveTo(dst))

		// A fresh writer on the moved-from identity recreates the file.
		w, err := fsys.OpenWritable("a.txt")
		assert.NilError(t, err)
		_, err = w.Write([]byte("v2"))
		assert.NilError(t, err)
		assert.NilError(t, w.Close())

		data, err := afero.ReadFile(base, "a.txt")
		assert.NilError(t, err)
		assert.Equal(t, string(data), "v2")
		data, err = afero.ReadFile(base, "b.txt")
		assert.NilError(t, err)
		assert.Equal(t, string(data), "v1")
	})
}
