package fsops

import "golang.org/x/sys/unix"

// FakeDeleter implements Deleter for testing
// Records every call; names listed in Errs fail with the given error.
// With Passthrough set, calls that are not failed are forwarded to unlinkat(2).
type FakeDeleter struct {
	Calls       []string
	Errs        map[string]error
	Passthrough bool
}

func (f *FakeDeleter) Unlinkat(dirfd int, name string, flags int) error {
	prefix := "rm:"
	if flags&unix.AT_REMOVEDIR != 0 {
		prefix = "rmdir:"
	}
	f.Calls = append(f.Calls, prefix+name)
	if err, ok := f.Errs[name]; ok {
		return err
	}
	if f.Passthrough {
		return OSDeleter{}.Unlinkat(dirfd, name, flags)
	}
	return nil
}
