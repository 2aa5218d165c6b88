package remove

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"rmfd/internal/devino"
	"rmfd/internal/diag"
	"rmfd/internal/fts"
	"rmfd/internal/safety"
)

type promptMode int

const (
	descendIntoDir promptMode = iota
	removeObject
)

type warnResult int

const (
	warnNotFound warnResult = iota
	warnOK
	warnDeclined
	warnError
)

func (w warnResult) status() Status {
	switch w {
	case warnDeclined:
		return UserDeclined
	case warnError:
		return Error
	default:
		return OK
	}
}

func responseResult(t safety.Ternary) warnResult {
	if t == safety.Yes {
		return warnOK
	}
	return warnDeclined
}

// warn asks about e if it, or a directory it links to, is protected. Each
// protected object is asked about once per run.
func (r *Remover) warn(e *fts.Entry, dirfd int, cache *statCache) warnResult {
	st, err := cache.fstatat(dirfd, e.AccPath)
	if err != nil {
		if isNonexistent(err) {
			return warnNotFound
		}
		r.fail(e, err, "cannot remove %s", diag.Quote(e.Path))
		return warnError
	}

	if found := r.opts.Protected.Lookup(devino.Of(st)); found != nil {
		if found.Response == safety.Unknown {
			q := fmt.Sprintf("you are about to remove %s; continue? ", diag.Quote(found.GivenPath))
			found.Response = safety.TernaryOf(r.asker.Ask(r.diag.WarningPrefix() + q))
		}
		return responseResult(found.Response)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFLNK || !r.opts.Recursive {
		return warnNotFound
	}

	var target unix.Stat_t
	if err := unix.Fstatat(dirfd, e.AccPath, &target, 0); err != nil {
		// A dangling link cannot lead into a protected directory.
		return warnNotFound
	}
	if target.Mode&unix.S_IFMT != unix.S_IFDIR {
		return warnNotFound
	}
	found := r.opts.Protected.Lookup(devino.Of(&target))
	if found == nil {
		return warnNotFound
	}
	if found.Response == safety.Unknown {
		q := fmt.Sprintf("you are about to recursively remove the contents of %s through symbolic link %s; continue? ",
			diag.Quote(found.GivenPath), diag.Quote(e.Path))
		found.Response = safety.TernaryOf(r.asker.Ask(r.diag.WarningPrefix() + q))
	}
	return responseResult(found.Response)
}

type direntType int

const (
	direntUnknown direntType = iota
	direntDir
	direntLink
)

// prompt decides whether e may be removed, asking the user when needed.
// When isEmpty is non-nil and the user is asked about a directory, it is
// set to whether that directory is empty.
func (r *Remover) prompt(w Traverser, e *fts.Entry, isDir bool, mode promptMode, isEmpty *safety.Ternary) Status {
	dirfd := w.CwdFD()
	var cache statCache

	if isEmpty != nil {
		*isEmpty = safety.Unknown
	}

	if r.opts.Protected != nil {
		if res := r.warn(e, dirfd, &cache); res != warnNotFound {
			return res.status()
		}
	}

	if e.ChildFailed {
		return UserDeclined
	}

	if r.opts.Interactive == Never {
		return OK
	}

	dirent := direntUnknown
	if isDir {
		dirent = direntDir
	}

	wp := writable
	var wpErr error
	if !r.opts.IgnoreMissing && (r.opts.Interactive == Always || r.opts.StdinTTY) && dirent != direntLink {
		wp, wpErr = r.prober.writeProtected(dirfd, e.AccPath, e.Path, &cache)
	}

	if wp == writable && r.opts.Interactive != Always {
		return OK
	}

	if wp != wpError && dirent == direntUnknown {
		st, err := cache.fstatat(dirfd, e.AccPath)
		switch {
		case err != nil:
			wp, wpErr = wpError, err
		case st.Mode&unix.S_IFMT == unix.S_IFLNK:
			dirent = direntLink
		case st.Mode&unix.S_IFMT == unix.S_IFDIR:
			dirent = direntDir
		}
	}

	if wp != wpError {
		switch dirent {
		case direntLink:
			// Symlink permissions are meaningless; ask only when asked to
			// ask about everything.
			if r.opts.Interactive != Always {
				return OK
			}
		case direntDir:
			if !r.opts.Recursive {
				wp, wpErr = wpError, unix.EISDIR
			}
		}
	}

	quoted := diag.Quote(e.Path)

	if wp == wpError {
		r.fail(e, wpErr, "cannot remove %s", quoted)
		return Error
	}

	empty := false
	if isEmpty != nil && dirent == direntDir {
		empty = isEmptyDir(dirfd, e.AccPath)
		*isEmpty = safety.TernaryOf(empty)
	}

	var q string
	if dirent == direntDir && mode == descendIntoDir && !empty {
		if wp == writeProtected {
			q = fmt.Sprintf("descend into write-protected directory %s? ", quoted)
		} else {
			q = fmt.Sprintf("descend into directory %s? ", quoted)
		}
	} else {
		st, err := cache.fstatat(dirfd, e.AccPath)
		if err != nil {
			r.fail(e, err, "cannot remove %s", quoted)
			return Error
		}
		if wp == writeProtected {
			q = fmt.Sprintf("remove write-protected %s %s? ", fileType(st), quoted)
		} else {
			q = fmt.Sprintf("remove %s %s? ", fileType(st), quoted)
		}
	}

	if !r.asker.Ask(r.diag.Prefix() + q) {
		return UserDeclined
	}
	return OK
}

// isEmptyDir reports whether name, relative to dirfd, is a directory with no
// entries. Any failure counts as not empty.
func isEmptyDir(dirfd int, name string) bool {
	fd, err := unix.Openat(dirfd, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
	if err != nil {
		return false
	}
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()

	names, err := f.Readdirnames(1)
	return len(names) == 0 && err == io.EOF
}
