package remove

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"rmfd/internal/diag"
	"rmfd/internal/fts"
)

// excise removes e, relative to the walker's current directory.
func (r *Remover) excise(w Traverser, e *fts.Entry, isDir bool) Status {
	flags := 0
	if isDir {
		flags = unix.AT_REMOVEDIR
	}

	err := r.deleter.Unlinkat(w.CwdFD(), e.AccPath, flags)
	if err == nil {
		if r.opts.Verbose {
			r.verbose(e, isDir)
		}
		r.removed(e, isDir)
		return OK
	}

	// Some systems report EROFS for a name that does not exist at all.
	if errors.Is(err, unix.EROFS) {
		var st unix.Stat_t
		if lerr := unix.Fstatat(w.CwdFD(), e.AccPath, &st, unix.AT_SYMLINK_NOFOLLOW); errors.Is(lerr, unix.ENOENT) {
			err = unix.ENOENT
		}
	}

	if r.ignorableMissing(err) {
		return OK
	}

	// The error from opening the directory says more than ENOTEMPTY.
	if e.Info == fts.DNR && e.Errno != nil {
		err = e.Errno
	}

	r.fail(e, err, "cannot remove %s", diag.Quote(e.Path))
	markAncestorDirs(e)
	return Error
}

func (r *Remover) verbose(e *fts.Entry, isDir bool) {
	verb := "removed"
	if r.opts.DryRun {
		verb = "would remove"
	}
	if isDir {
		fmt.Fprintf(r.out, "%s directory: %s\n", verb, diag.Quote(e.Path))
	} else {
		fmt.Fprintf(r.out, "%s %s\n", verb, diag.Quote(e.Path))
	}
}

// markAncestorDirs flags every directory above e as having a child that
// could not be removed, so that no attempt is made to remove them. It stops
// at the first directory already flagged.
func markAncestorDirs(e *fts.Entry) {
	for p := e.Parent; p != nil && p.Level >= fts.RootLevel; p = p.Parent {
		if p.ChildFailed {
			break
		}
		p.ChildFailed = true
	}
}
