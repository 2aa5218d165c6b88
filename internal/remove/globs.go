package remove

import (
	"fmt"
	"os"
	"strings"

	"rmfd/internal/devino"
	"rmfd/internal/diag"
	"rmfd/internal/safety"
)

// globDir collects the operands that share one textual directory prefix.
type globDir struct {
	prefix string
	names  map[string]struct{}
}

// CheckGlobs catches "rm dir/*" aimed at a protected directory. Operands
// are grouped by their directory prefix exactly as written; when every
// entry of a protected directory is among the operands, the user is asked
// once for the whole directory, and a "yes" is remembered so the walk does
// not ask again. Patterns such as "dir/*.c" are not detected.
//
// It reports whether the run may proceed. An error means the directories
// could not be examined and the run must not continue.
func (r *Remover) CheckGlobs(files []string) (bool, error) {
	if r.opts.Protected == nil {
		return true, nil
	}

	dirs := make(map[string]*globDir)
	var order []string
	for _, f := range files {
		n := dirLen(f)
		prefix := f[:n]
		d, ok := dirs[prefix]
		if !ok {
			d = &globDir{prefix: prefix, names: make(map[string]struct{})}
			dirs[prefix] = d
			order = append(order, prefix)
		}
		d.names[strings.TrimLeft(f[n:], "/")] = struct{}{}
	}

	for _, prefix := range order {
		d := dirs[prefix]
		dirname := d.prefix
		if dirname == "" {
			dirname = "."
		}

		id, err := devino.Stat(dirname)
		if err != nil {
			if r.ignorableMissing(err) {
				continue
			}
			return false, fmt.Errorf("cannot stat %s: %w", diag.Quote(dirname), err)
		}

		found := r.opts.Protected.Lookup(id)
		if found == nil {
			continue
		}

		count, complete, err := r.countListed(dirname, d.names)
		if err != nil {
			return false, err
		}
		if !complete || count == 0 {
			continue
		}

		glob := found.GivenPath + "/*"
		if strings.HasSuffix(found.GivenPath, "/") {
			glob = found.GivenPath + "*"
		}
		plural := "s"
		if count == 1 {
			plural = ""
		}
		q := fmt.Sprintf("you are about to remove %d file%s via %s; continue? ", count, plural, diag.Quote(glob))
		found.Response = safety.TernaryOf(r.asker.Ask(r.diag.WarningPrefix() + q))
		if found.Response == safety.No {
			return false, nil
		}
	}
	return true, nil
}

// countListed counts the entries of dirname, skipping those whose names
// start with a dot. complete is false as soon as one entry is not in names.
func (r *Remover) countListed(dirname string, names map[string]struct{}) (count int, complete bool, err error) {
	f, err := os.Open(dirname)
	if err != nil {
		if r.ignorableMissing(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("cannot open directory %s: %w", diag.Quote(dirname), err)
	}

	entries, err := f.Readdirnames(-1)
	if err != nil {
		f.Close()
		if r.ignorableMissing(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error reading directory %s: %w", diag.Quote(dirname), err)
	}
	if err := f.Close(); err != nil {
		return 0, false, fmt.Errorf("cannot close directory %s: %w", diag.Quote(dirname), err)
	}

	for _, name := range entries {
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := names[name]; !ok {
			return count, false, nil
		}
		count++
	}
	return count, true, nil
}

// dirLen returns the length of the directory part of file, without the
// slashes that separate it from the last component. A leading "/" is kept.
func dirLen(file string) int {
	prefix := 0
	if strings.HasPrefix(file, "/") {
		prefix = 1
	}
	n := lastComponent(file)
	for ; prefix < n; n-- {
		if file[n-1] != '/' {
			break
		}
	}
	return n
}
