package remove

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"rmfd/internal/devino"
	"rmfd/internal/diag"
	"rmfd/internal/fts"
	"rmfd/internal/safety"
)

// Remove removes files, recursively when Options.Recursive is set, and
// returns the most severe status seen. The error is non-nil only for
// conditions outside the per-entry status model: a walker that cannot be
// started, or (with RequireRestoreCwd) one that cannot be closed.
func (r *Remover) Remove(files []string) (Status, error) {
	status := OK
	if len(files) == 0 {
		return status, nil
	}

	w, err := r.open(files, r.walkFlags())
	if err != nil {
		r.diag.Error(err, "fts_open failed")
		return Error, err
	}

	for {
		e, err := w.Read()
		if err != nil {
			r.diag.Error(err, "fts_read failed")
			status = Error
			break
		}
		if e == nil {
			break
		}

		s := r.rmFTS(w, e)
		if !s.valid() {
			panic(fmt.Sprintf("invalid status %d for %s", s, e.Path))
		}
		status.Update(s)
	}

	if err := w.Close(); err != nil {
		r.diag.Error(err, "fts_close failed")
		status = Error
		if r.opts.RequireRestoreCwd {
			return status, fmt.Errorf("%w: %w", ErrRestoreCwd, err)
		}
	}
	return status, nil
}

// rmFTS handles one visited entry.
func (r *Remover) rmFTS(w Traverser, e *fts.Entry) Status {
	switch e.Info {
	case fts.D:
		if !r.opts.Recursive {
			r.fail(e, unix.EISDIR, "cannot remove %s", diag.Quote(e.Path))
			markAncestorDirs(e)
			w.Set(e, fts.Skip)
			return Error
		}

		if e.Level == fts.RootLevel {
			e.Path = stripTrailingSlashes(e.Path)

			if isDotOrDotDot(e.AccPath[lastComponent(e.AccPath):]) {
				r.skip(e, "dot", "cannot remove directory: %s", diag.Quote(e.Path))
				w.Set(e, fts.Skip)
				return Error
			}

			if r.opts.RootID != nil && e.Statted && devino.Of(&e.Stat) == *r.opts.RootID {
				if e.Path == "/" {
					r.skip(e, "root", "it is dangerous to operate recursively on %s; use --no-preserve-root to override this failsafe",
						diag.Quote(e.Path))
				} else {
					r.skip(e, "root", "it is dangerous to operate recursively on %s (same as %s); use --no-preserve-root to override this failsafe",
						diag.Quote(e.Path), diag.Quote("/"))
				}
				w.Set(e, fts.Skip)
				return Error
			}
		}

		var empty safety.Ternary
		s := r.prompt(w, e, true, descendIntoDir, &empty)
		if s == OK && empty == safety.Yes {
			// Already asked; an empty directory needs no second question.
			s = r.excise(w, e, true)
			w.Set(e, fts.Skip)
		}
		if s != OK {
			if s == UserDeclined {
				r.declined(e)
			}
			markAncestorDirs(e)
			w.Set(e, fts.Skip)
		}
		return s

	case fts.F, fts.NS, fts.SL, fts.SLNone, fts.DP, fts.DNR, fts.NSOK, fts.Default:
		if e.Info == fts.DP && r.opts.OneFileSystem && e.Level > fts.RootLevel && uint64(e.Stat.Dev) != w.Dev() {
			markAncestorDirs(e)
			r.skip(e, "xdev", "skipping %s, since it's on a different device", diag.Quote(e.Path))
			return Error
		}

		isDir := e.Info == fts.DP || e.Info == fts.DNR
		s := r.prompt(w, e, isDir, removeObject, nil)
		if s != OK {
			if s == UserDeclined {
				r.declined(e)
			}
			markAncestorDirs(e)
			return s
		}
		return r.excise(w, e, isDir)

	case fts.DC:
		r.skip(e, "cycle", "WARNING: circular directory structure at %s; the file system may be corrupted", diag.Quote(e.Path))
		markAncestorDirs(e)
		w.Set(e, fts.Skip)
		return Error

	case fts.Err:
		r.fail(e, e.Errno, "traversal failed: %s", diag.Quote(e.Path))
		markAncestorDirs(e)
		w.Set(e, fts.Skip)
		return Error

	default:
		r.diag.Error(nil, "unexpected failure: fts_info=%d: %s", int(e.Info), diag.Quote(e.Path))
		panic(fmt.Sprintf("unexpected entry kind %v for %s", e.Info, e.Path))
	}
}

// lastComponent returns the offset of the final component of name,
// ignoring trailing slashes. For a name made only of slashes it returns
// len(name).
func lastComponent(name string) int {
	base := 0
	for base < len(name) && name[base] == '/' {
		base++
	}
	sawSlash := false
	for i := base; i < len(name); i++ {
		if name[i] == '/' {
			sawSlash = true
		} else if sawSlash {
			base = i
			sawSlash = false
		}
	}
	return base
}

// stripTrailingSlashes removes trailing slashes, keeping a lone "/".
func stripTrailingSlashes(name string) string {
	t := strings.TrimRight(name, "/")
	if t == "" && name != "" {
		return "/"
	}
	return t
}

// isDotOrDotDot reports whether a final component, possibly followed by
// slashes, is "." or "..".
func isDotOrDotDot(name string) bool {
	name = strings.TrimRight(name, "/")
	return name == "." || name == ".."
}
