package fts

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Info classifies an Entry.
type Info int

const (
	D       Info = iota + 1 // preorder directory
	DC                      // directory that causes a cycle
	Default                 // none of the others
	DNR                     // unreadable directory; Errno holds the open error
	DP                      // postorder directory
	Err                     // traversal error; Errno is set
	F                       // regular file
	NS                      // stat failed; Errno is set
	NSOK                    // not statted; only the type bits of Stat.Mode are set
	SL                      // symbolic link
	SLNone                  // symbolic link without target
)

var infoNames = map[Info]string{
	D: "D", DC: "DC", Default: "DEFAULT", DNR: "DNR", DP: "DP", Err: "ERR",
	F: "F", NS: "NS", NSOK: "NSOK", SL: "SL", SLNone: "SLNONE",
}

func (i Info) String() string {
	if s, ok := infoNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Info(%d)", int(i))
}

// RootLevel is the Level of entries named on the command line.
const RootLevel = 0

// Entry is one visited filesystem object. The walker owns entries; callers
// must not keep them past the next call to Read.
type Entry struct {
	// Path is the display path: the root as given, joined with child names.
	Path string
	// AccPath names the object relative to the walker's CwdFD.
	AccPath string
	Info    Info
	// Errno is the error behind NS, DNR and Err entries.
	Errno error
	Level int
	// Parent is nil for roots.
	Parent *Entry
	// Stat is valid when Statted; for NSOK entries only the file type bits
	// of Stat.Mode are filled in from the directory entry.
	Stat    unix.Stat_t
	Statted bool
	// ChildFailed is scratch space for the caller: set when some descendant
	// could not be removed.
	ChildFailed bool
}

// IsDirMode reports whether the entry's type bits say directory.
func (e *Entry) IsDirMode() bool {
	return e.Stat.Mode&unix.S_IFMT == unix.S_IFDIR
}

// IsSymlinkMode reports whether the entry's type bits say symbolic link.
func (e *Entry) IsSymlinkMode() bool {
	return e.Stat.Mode&unix.S_IFMT == unix.S_IFLNK
}
