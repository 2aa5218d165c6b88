// Package fts walks directory hierarchies depth first in the manner of
// fts(3) opened with FTS_CWDFD|FTS_NOSTAT|FTS_PHYSICAL.
//
// Every entry is reached through an open descriptor of its parent directory
// (CwdFD) plus a single name component (Entry.AccPath), so a concurrent
// rename of an ancestor cannot redirect the walk. Symbolic links are never
// followed and the process working directory is never changed.
package fts

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// Flag configures a Walker.
type Flag int

const (
	// CwdFD makes entries relative to a directory descriptor. Required.
	CwdFD Flag = 1 << iota
	// NoStat avoids stat(2) for non-directory entries whose type is known
	// from the directory listing; they are returned as NSOK.
	NoStat
	// Physical never follows symbolic links. Required.
	Physical
	// XDev does not descend into directories on a device other than the
	// one of the root being walked.
	XDev
)

// Instr is an instruction for the entry most recently returned by Read.
type Instr int

const (
	NoInstr Instr = iota
	// Skip does not descend into a preorder directory. The skipped directory
	// is not returned again in postorder.
	Skip
)

// maxOpenDirs bounds the directory descriptors a Walker keeps open. Deeper
// frames close the descriptors of their distant ancestors, which are
// reopened on the way back up.
const maxOpenDirs = 32

var (
	ErrClosed      = errors.New("fts: walker closed")
	ErrUnsupported = errors.New("fts: only descriptor-relative physical walks are supported")
)

type dirent struct {
	name string
	typ  fs.FileMode
}

// frame is a directory currently being listed; fd is the CwdFD of its
// children, or -1 while f is closed to stay under maxOpenDirs.
type frame struct {
	dir   *Entry
	f     *os.File
	fd    int
	names []dirent
	idx   int
}

// Walker is a lazily evaluated traversal over a list of root paths.
type Walker struct {
	roots  []string
	flags  Flag
	next   int
	cur    *Entry
	instr  Instr
	stack  []*frame
	dev    uint64
	closed bool
	errs   []error

	maxOpen int
}

// Open prepares a walk over roots. Nothing is touched until the first Read.
func Open(roots []string, flags Flag) (*Walker, error) {
	if flags&(CwdFD|Physical) != CwdFD|Physical {
		return nil, ErrUnsupported
	}
	return &Walker{roots: append([]string(nil), roots...), flags: flags, maxOpen: maxOpenDirs}, nil
}

// CwdFD returns the directory descriptor that the AccPath of the entry most
// recently returned by Read is relative to.
func (w *Walker) CwdFD() int {
	if n := len(w.stack); n > 0 {
		return w.stack[n-1].fd
	}
	return unix.AT_FDCWD
}

// Dev returns the device number of the root currently being walked.
func (w *Walker) Dev() uint64 {
	return w.dev
}

// Set records an instruction for e, which must be the entry most recently
// returned by Read.
func (w *Walker) Set(e *Entry, instr Instr) {
	if e == w.cur {
		w.instr = instr
	}
}

// Read returns the next entry, or nil when the walk is complete.
func (w *Walker) Read() (*Entry, error) {
	if w.closed {
		return nil, ErrClosed
	}

	if cur := w.cur; cur != nil && cur.Info == D {
		instr := w.instr
		w.instr = NoInstr
		switch {
		case instr == Skip:
		case w.flags&XDev != 0 && uint64(cur.Stat.Dev) != w.dev:
			cur.Info = DP
			return cur, nil
		default:
			if e := w.descend(cur); e != nil {
				return e, nil
			}
		}
	}
	w.instr = NoInstr

	return w.advance(), nil
}

// Close releases every open directory descriptor.
func (w *Walker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	for i := len(w.stack) - 1; i >= 0; i-- {
		w.release(w.stack[i])
	}
	w.stack = nil
	w.cur = nil
	return errors.Join(w.errs...)
}

func (w *Walker) advance() *Entry {
	for {
		if n := len(w.stack); n > 0 {
			top := w.stack[n-1]
			if err := w.reopen(n - 1); err != nil {
				return w.abandon(n-1, err)
			}
			w.trim()
			if top.idx < len(top.names) {
				de := top.names[top.idx]
				top.idx++
				w.cur = w.child(top, de)
				return w.cur
			}

			w.stack = w.stack[:n-1]
			w.release(top)
			if n > 1 {
				// The postorder entry is reached through its parent.
				if err := w.reopen(n - 2); err != nil {
					return w.abandon(n-2, err)
				}
				w.trim()
			}
			top.dir.Info = DP
			w.cur = top.dir
			return w.cur
		}

		if w.next >= len(w.roots) {
			w.cur = nil
			return nil
		}
		path := w.roots[w.next]
		w.next++
		w.cur = w.root(path)
		return w.cur
	}
}

// abandon drops stack[i] and everything below it in the hierarchy and
// returns the directory of stack[i] as an Err entry.
func (w *Walker) abandon(i int, err error) *Entry {
	for j := len(w.stack) - 1; j >= i; j-- {
		w.release(w.stack[j])
	}
	dir := w.stack[i].dir
	w.stack = w.stack[:i]
	dir.Info = Err
	dir.Errno = err
	w.cur = dir
	return w.cur
}

func (w *Walker) root(path string) *Entry {
	e := &Entry{Path: path, AccPath: path, Level: RootLevel}
	if err := fstatat(unix.AT_FDCWD, path, &e.Stat); err != nil {
		e.Info = NS
		e.Errno = err
		return e
	}
	e.Statted = true
	w.dev = uint64(e.Stat.Dev)
	e.Info = w.classify(e)
	return e
}

func (w *Walker) child(parent *frame, de dirent) *Entry {
	e := &Entry{
		Path:    joinPath(parent.dir.Path, de.name),
		AccPath: de.name,
		Level:   parent.dir.Level + 1,
		Parent:  parent.dir,
	}

	if w.flags&NoStat != 0 && !de.typ.IsDir() {
		e.Stat.Mode = modeBits(de.typ)
		e.Info = NSOK
		return e
	}

	if err := fstatat(parent.fd, de.name, &e.Stat); err != nil {
		e.Info = NS
		e.Errno = err
		return e
	}
	e.Statted = true
	e.Info = w.classify(e)
	return e
}

func (w *Walker) classify(e *Entry) Info {
	switch e.Stat.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		if w.inCycle(e) {
			return DC
		}
		return D
	case unix.S_IFLNK:
		return SL
	case unix.S_IFREG:
		return F
	default:
		return Default
	}
}

// inCycle reports whether e is the same directory as one of the directories
// currently being listed.
func (w *Walker) inCycle(e *Entry) bool {
	for _, fr := range w.stack {
		if fr.dir.Stat.Dev == e.Stat.Dev && fr.dir.Stat.Ino == e.Stat.Ino {
			return true
		}
	}
	return false
}

// descend opens and lists dir. On failure dir is reclassified (DNR or Err)
// and returned; on success a frame is pushed and nil is returned.
func (w *Walker) descend(dir *Entry) *Entry {
	fd, err := openDir(w.CwdFD(), dir.AccPath)
	if err != nil {
		dir.Info = DNR
		dir.Errno = err
		return dir
	}

	// The directory may have been replaced between the stat and the open.
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Dev != dir.Stat.Dev || st.Ino != dir.Stat.Ino {
		_ = unix.Close(fd)
		if err == nil {
			err = unix.ENOENT
		}
		dir.Info = Err
		dir.Errno = err
		return dir
	}

	f := os.NewFile(uintptr(fd), dir.Path)
	list, err := f.ReadDir(-1)
	if err != nil {
		_ = f.Close()
		dir.Info = Err
		dir.Errno = err
		return dir
	}

	names := make([]dirent, 0, len(list))
	for _, de := range list {
		names = append(names, dirent{name: de.Name(), typ: de.Type()})
	}
	sort.Slice(names, func(i, j int) bool { return names[i].name < names[j].name })

	w.stack = append(w.stack, &frame{dir: dir, f: f, fd: fd, names: names})
	w.trim()
	return nil
}

// trim closes the descriptors of frames more than maxOpen levels above the
// top of the stack.
func (w *Walker) trim() {
	for i := 0; i < len(w.stack)-w.maxOpen; i++ {
		w.release(w.stack[i])
	}
}

func (w *Walker) release(fr *frame) {
	if fr.f == nil {
		return
	}
	if err := fr.f.Close(); err != nil {
		w.errs = append(w.errs, err)
	}
	fr.f = nil
	fr.fd = -1
}

// reopen makes the descriptor of stack[i] usable again, reopening closed
// ancestors first. A directory that is no longer the one that was listed
// is an error.
func (w *Walker) reopen(i int) error {
	fr := w.stack[i]
	if fr.f != nil {
		return nil
	}
	dirfd := unix.AT_FDCWD
	if i > 0 {
		if err := w.reopen(i - 1); err != nil {
			return err
		}
		dirfd = w.stack[i-1].fd
	}

	fd, err := openDir(dirfd, fr.dir.AccPath)
	if err != nil {
		return err
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil || st.Dev != fr.dir.Stat.Dev || st.Ino != fr.dir.Stat.Ino {
		_ = unix.Close(fd)
		if err == nil {
			err = unix.ENOENT
		}
		return err
	}
	fr.f = os.NewFile(uintptr(fd), fr.dir.Path)
	fr.fd = fd
	return nil
}

func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

func modeBits(typ fs.FileMode) uint32 {
	switch {
	case typ&fs.ModeSymlink != 0:
		return unix.S_IFLNK
	case typ&fs.ModeNamedPipe != 0:
		return unix.S_IFIFO
	case typ&fs.ModeSocket != 0:
		return unix.S_IFSOCK
	case typ&fs.ModeCharDevice != 0:
		return unix.S_IFCHR
	case typ&fs.ModeDevice != 0:
		return unix.S_IFBLK
	case typ.IsDir():
		return unix.S_IFDIR
	default:
		return unix.S_IFREG
	}
}

func fstatat(dirfd int, name string, st *unix.Stat_t) error {
	for {
		err := unix.Fstatat(dirfd, name, st, unix.AT_SYMLINK_NOFOLLOW)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func openDir(dirfd int, name string) (int, error) {
	for {
		fd, err := unix.Openat(dirfd, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
		if err == unix.EINTR {
			continue
		}
		return fd, err
	}
}
