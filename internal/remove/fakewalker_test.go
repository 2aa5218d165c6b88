package remove

import (
	"golang.org/x/sys/unix"

	"rmfd/internal/fts"
)

// fakeWalker replays a scripted sequence of entries.
type fakeWalker struct {
	entries  []*fts.Entry
	next     int
	dev      uint64
	readErr  error
	closeErr error
	skipped  []string
	closed   bool
}

func (f *fakeWalker) Read() (*fts.Entry, error) {
	if f.next >= len(f.entries) {
		if f.readErr != nil {
			return nil, f.readErr
		}
		return nil, nil
	}
	e := f.entries[f.next]
	f.next++
	return e, nil
}

func (f *fakeWalker) Set(e *fts.Entry, instr fts.Instr) {
	if instr == fts.Skip {
		f.skipped = append(f.skipped, e.Path)
	}
}

func (f *fakeWalker) CwdFD() int   { return unix.AT_FDCWD }
func (f *fakeWalker) Dev() uint64  { return f.dev }
func (f *fakeWalker) Close() error { f.closed = true; return f.closeErr }

func (f *fakeWalker) opener() OpenFunc {
	return func([]string, fts.Flag) (Traverser, error) { return f, nil }
}

// entry builds a statted entry below parent (nil for a root).
func entry(parent *fts.Entry, path, name string, info fts.Info, dev uint64) *fts.Entry {
	e := &fts.Entry{Path: path, AccPath: name, Info: info, Parent: parent, Statted: true}
	if parent != nil {
		e.Level = parent.Level + 1
	}
	e.Stat.Dev = dev
	switch info {
	case fts.D, fts.DP, fts.DC, fts.DNR:
		e.Stat.Mode = unix.S_IFDIR | 0o755
	default:
		e.Stat.Mode = unix.S_IFREG | 0o644
	}
	return e
}
