package fsops

import "golang.org/x/sys/unix"

// OSDeleter implements Deleter using the real unlinkat(2)
type OSDeleter struct{}

func (OSDeleter) Unlinkat(dirfd int, name string, flags int) error {
	for {
		err := unix.Unlinkat(dirfd, name, flags)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// DryRunDeleter reports success without touching the filesystem
type DryRunDeleter struct{}

func (DryRunDeleter) Unlinkat(int, string, int) error {
	return nil
}
