// Package devino identifies filesystem objects by device and inode number.
package devino

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ID is the identity of a filesystem object. Two paths name the same object
// exactly when their IDs are equal.
type ID struct {
	Dev uint64
	Ino uint64
}

// Of returns the identity recorded in st.
func Of(st *unix.Stat_t) ID {
	return ID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}
}

func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Dev, id.Ino)
}

// Lstat returns the identity of path without following a final symlink.
func Lstat(path string) (ID, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return ID{}, err
	}
	return Of(&st), nil
}

// Stat returns the identity of path, following symlinks.
func Stat(path string) (ID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return ID{}, err
	}
	return Of(&st), nil
}

// Root returns the identity of "/". It is used to refuse recursive removal
// of the filesystem root.
func Root() (ID, error) {
	return Stat("/")
}
