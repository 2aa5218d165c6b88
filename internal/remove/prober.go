package remove

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

type wpResult int

const (
	writable wpResult = iota
	writeProtected
	wpError
)

// maxAccessPathLen bounds the path-based fallback; longer paths are judged
// from permission bits instead.
const maxAccessPathLen = 4096

// prober decides whether a non-symlink is write-protected. The function
// fields exist so tests can stand in for the kernel.
type prober struct {
	canWriteAny func() bool
	accessAt    func(dirfd int, name string, mode uint32, flags int) error
	access      func(path string, mode uint32) error
	// pathOnly is set on platforms without a usable faccessat.
	pathOnly bool
}

func newProber() *prober {
	return &prober{
		canWriteAny: func() bool { return os.Geteuid() == 0 },
		accessAt:    unix.Faccessat,
		access: func(path string, mode uint32) error {
			return unix.Faccessat(unix.AT_FDCWD, path, mode, unix.AT_EACCESS)
		},
	}
}

// writeProtected probes name, relative to dirfd. fullName is the display
// path, used only by the path-based fallback.
func (p *prober) writeProtected(dirfd int, name, fullName string, cache *statCache) (wpResult, error) {
	if p.canWriteAny() {
		return writable, nil
	}

	st, err := cache.fstatat(dirfd, name)
	if err != nil {
		return wpError, err
	}
	if st.Mode&unix.S_IFMT == unix.S_IFLNK {
		return writable, nil
	}

	if !p.pathOnly {
		return classifyAccess(p.accessAt(dirfd, name, unix.W_OK, unix.AT_EACCESS))
	}

	if len(fullName) < maxAccessPathLen {
		return classifyAccess(p.access(fullName, unix.W_OK))
	}
	if writableByMode(st) {
		return writable, nil
	}
	return writeProtected, nil
}

func classifyAccess(err error) (wpResult, error) {
	switch {
	case err == nil:
		return writable, nil
	case errors.Is(err, unix.EACCES):
		return writeProtected, nil
	default:
		return wpError, err
	}
}

// writableByMode applies the permission bits of st to the effective
// credentials of the process.
func writableByMode(st *unix.Stat_t) bool {
	euid := uint32(unix.Geteuid())
	if euid == 0 {
		return true
	}
	if st.Uid == euid {
		return st.Mode&unix.S_IWUSR != 0
	}
	if inGroup(st.Gid) {
		return st.Mode&unix.S_IWGRP != 0
	}
	return st.Mode&unix.S_IWOTH != 0
}

func inGroup(gid uint32) bool {
	if uint32(unix.Getegid()) == gid {
		return true
	}
	groups, err := unix.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if uint32(g) == gid {
			return true
		}
	}
	return false
}
