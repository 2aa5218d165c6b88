package remove

import (
	"rmfd/internal/fts"
)

// Check walks files the way Remove would and asks about every protected
// object up front, so that a "no" stops the run before anything is removed.
// It reports whether the run may proceed.
func (r *Remover) Check(files []string) bool {
	if len(files) == 0 || r.opts.Protected == nil {
		return true
	}

	w, err := r.open(files, r.walkFlags())
	if err != nil {
		r.diag.Error(err, "fts_open failed")
		return false
	}

	ok := true
	for ok {
		e, err := w.Read()
		if err != nil {
			r.diag.Error(err, "fts_read failed")
			ok = false
			break
		}
		if e == nil {
			break
		}
		ok = r.checkFTS(w, e)
	}

	if err := w.Close(); err != nil {
		r.diag.Error(err, "fts_close failed")
		ok = false
	}
	return ok
}

func (r *Remover) checkFTS(w Traverser, e *fts.Entry) bool {
	switch e.Info {
	case fts.D:
		if !r.opts.Recursive {
			w.Set(e, fts.Skip)
			return true
		}
		fallthrough
	case fts.F, fts.NS, fts.SL, fts.SLNone, fts.DNR, fts.NSOK, fts.Default:
		var cache statCache
		res := r.warn(e, w.CwdFD(), &cache)
		return res == warnOK || res == warnNotFound
	case fts.DC, fts.Err:
		w.Set(e, fts.Skip)
		return true
	default:
		return true
	}
}
