package fsops

// Deleter abstracts the destructive directory-relative syscall.
// Enables tests to prove which objects would be removed and to inject failures.
type Deleter interface {
	// Unlinkat removes name relative to the open directory dirfd.
	// flags is 0 for non-directories and unix.AT_REMOVEDIR for directories.
	Unlinkat(dirfd int, name string, flags int) error
}
