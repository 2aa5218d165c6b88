package remove

import "golang.org/x/sys/unix"

type statState int

const (
	statUnfetched statState = iota
	statFailed
	statFetched
)

// statCache holds the lstat result for the entry being processed so that
// the several decision points that need it share one syscall.
type statCache struct {
	state statState
	err   error
	st    unix.Stat_t
}

// fstatat returns the cached metadata of name, fetching it without
// following symlinks on first use. A failure is cached too.
func (c *statCache) fstatat(dirfd int, name string) (*unix.Stat_t, error) {
	if c.state == statUnfetched {
		var err error
		for {
			err = unix.Fstatat(dirfd, name, &c.st, unix.AT_SYMLINK_NOFOLLOW)
			if err != unix.EINTR {
				break
			}
		}
		if err != nil {
			c.state, c.err = statFailed, err
		} else {
			c.state = statFetched
		}
	}
	if c.state == statFailed {
		return nil, c.err
	}
	return &c.st, nil
}
