// Package safety holds the table of protected filesystem objects. Objects are
// keyed by device and inode, so a protected directory is recognised under any
// name: hard links, bind mounts and paths reached through symlinks included.
package safety

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"rmfd/internal/devino"
)

var ErrRelativePath = errors.New("protected path must be absolute")

// Ternary is a yes/no answer that may not have been given yet.
type Ternary int

const (
	Unknown Ternary = iota
	No
	Yes
)

// TernaryOf converts a definite answer.
func TernaryOf(yes bool) Ternary {
	if yes {
		return Yes
	}
	return No
}

func (t Ternary) String() string {
	switch t {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "unknown"
	}
}

// Entry is one protected object. Response caches the user's answer so that
// each protected object is asked about at most once per run.
type Entry struct {
	ID        devino.ID
	Response  Ternary
	GivenPath string
}

// Table maps object identity to its protected entry. A nil *Table is an
// empty table.
type Table struct {
	entries map[devino.ID]*Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[devino.ID]*Entry)}
}

// Add inserts id unless it is already present and returns the stored entry.
func (t *Table) Add(id devino.ID, givenPath string) *Entry {
	if e, ok := t.entries[id]; ok {
		return e
	}
	e := &Entry{ID: id, GivenPath: givenPath}
	t.entries[id] = e
	return e
}

// Lookup returns the entry for id, or nil.
func (t *Table) Lookup(id devino.ID) *Entry {
	if t == nil {
		return nil
	}
	return t.entries[id]
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Load reads one absolute path per line from r. Each path is protected by
// the identity of the object it names; when that object is a symbolic link
// the link's target is protected too. Paths that cannot be resolved are
// ignored. A relative path is an error; name identifies r in it.
func Load(r io.Reader, name string) (*Table, error) {
	t := NewTable()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !strings.HasPrefix(line, "/") {
			return nil, fmt.Errorf("%s:%d: %q: %w", name, lineNo, line, ErrRelativePath)
		}
		t.addPath(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return t, nil
}

// LoadFile loads the warn list at path. A file that cannot be opened yields
// a nil table and no error.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()
	return Load(f, path)
}

func (t *Table) addPath(path string) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return
	}
	t.Add(devino.Of(&st), path)

	if st.Mode&unix.S_IFMT != unix.S_IFLNK {
		return
	}
	if err := unix.Stat(path, &st); err != nil {
		return
	}
	t.Add(devino.Of(&st), path)
}
