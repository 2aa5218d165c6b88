package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"rmfd/internal/remove"
)

// cliOptions collects what the command line asked for. The prompting
// flags overwrite one another, so the last of -f, -i, -I and --interactive
// decides.
type cliOptions struct {
	configPath    string
	dryRun        bool
	ignoreMissing bool
	interactive   remove.Interactive
	promptOnce    bool
	recursive     bool
	oneFileSystem bool
	preserveRoot  *bool
	presumeTTY    bool
	verbose       bool
	warnings      bool
	ignoredDir    bool
}

func newCLIOptions() *cliOptions {
	return &cliOptions{interactive: remove.Sometimes}
}

func (o *cliOptions) force() {
	o.interactive = remove.Never
	o.ignoreMissing = true
	o.promptOnce = false
}

func (o *cliOptions) always() {
	o.interactive = remove.Always
	o.ignoreMissing = false
	o.promptOnce = false
}

func (o *cliOptions) once() {
	o.interactive = remove.Never
	o.ignoreMissing = false
	o.promptOnce = true
}

func (o *cliOptions) setPreserveRoot(v bool) {
	o.preserveRoot = &v
}

// actionFlag is a boolean switch that runs apply each time it is given a
// true value.
type actionFlag struct {
	apply func()
}

func (a *actionFlag) String() string { return "false" }
func (a *actionFlag) Type() string   { return "bool" }

func (a *actionFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		a.apply()
	}
	return nil
}

type when int

const (
	whenNever when = iota
	whenOnce
	whenAlways
)

var whenArgs = []struct {
	name string
	when when
}{
	{"never", whenNever},
	{"no", whenNever},
	{"none", whenNever},
	{"once", whenOnce},
	{"always", whenAlways},
	{"yes", whenAlways},
}

// matchWhen accepts an exact argument or any unambiguous prefix of one. A
// prefix shared by several synonyms is not ambiguous.
func matchWhen(arg string) (when, error) {
	found := -1
	for i, a := range whenArgs {
		if a.name == arg {
			return a.when, nil
		}
		if !strings.HasPrefix(a.name, arg) {
			continue
		}
		if found >= 0 && whenArgs[found].when != a.when {
			return 0, fmt.Errorf("ambiguous argument %q; %s", arg, validWhen())
		}
		if found < 0 {
			found = i
		}
	}
	if found < 0 || arg == "" {
		return 0, fmt.Errorf("invalid argument %q; %s", arg, validWhen())
	}
	return whenArgs[found].when, nil
}

func validWhen() string {
	return "valid arguments are 'never', 'no', 'none', 'once', 'always', 'yes'"
}

// interactiveFlag implements --interactive[=WHEN].
type interactiveFlag struct {
	o    *cliOptions
	last string
}

func (f *interactiveFlag) String() string { return f.last }
func (f *interactiveFlag) Type() string   { return "when" }

func (f *interactiveFlag) Set(s string) error {
	w, err := matchWhen(s)
	if err != nil {
		return err
	}
	f.last = s
	switch w {
	case whenNever:
		f.o.interactive = remove.Never
		f.o.promptOnce = false
	case whenOnce:
		f.o.interactive = remove.Sometimes
		f.o.ignoreMissing = false
		f.o.promptOnce = true
	case whenAlways:
		f.o.always()
	}
	return nil
}

func registerFlags(fs *pflag.FlagSet, o *cliOptions) {
	fs.VarPF(&actionFlag{apply: o.force}, "force", "f",
		"ignore nonexistent files, never prompt unless overridden with --warnings").NoOptDefVal = "true"
	fs.VarPF(&interactiveFlag{o: o}, "interactive", "i",
		"prompt according to `WHEN`: never, once (-I), or always (-i); without WHEN, prompt always").NoOptDefVal = "always"
	fs.VarPF(&actionFlag{apply: o.once}, "prompt-once", "I",
		"prompt once before removing more than three files, or when removing recursively").NoOptDefVal = "true"

	fs.BoolVarP(&o.recursive, "recursive", "r", false, "remove directories and their contents recursively (-R is accepted too)")
	fs.BoolVarP(&o.recursive, "R", "R", false, "same as --recursive")
	_ = fs.MarkHidden("R")

	fs.BoolVar(&o.oneFileSystem, "one-file-system", false,
		"when removing a hierarchy recursively, skip any directory that is on a file system different from that of the corresponding command line argument")
	fs.VarPF(&actionFlag{apply: func() { o.setPreserveRoot(false) }}, "no-preserve-root", "",
		"do not treat '/' specially").NoOptDefVal = "true"
	fs.VarPF(&actionFlag{apply: func() { o.setPreserveRoot(true) }}, "preserve-root", "",
		"do not remove '/' (default)").NoOptDefVal = "true"

	fs.BoolVarP(&o.verbose, "verbose", "v", false, "explain what is being done")
	fs.BoolVarP(&o.warnings, "warnings", "w", false,
		"read the warn list (~/.rmfd/warn.list) and ask before removing anything in it")
	fs.BoolVar(&o.dryRun, "dry-run", false, "report what would be removed without removing anything")
	fs.StringVar(&o.configPath, "config", "", "path to configuration file (default ~/.rmfd/config.yaml)")

	fs.BoolVar(&o.presumeTTY, "presume-input-tty", false, "act as if standard input were a terminal")
	_ = fs.MarkHidden("presume-input-tty")
	fs.BoolVarP(&o.ignoredDir, "dir", "d", false, "ignored")
	_ = fs.MarkHidden("dir")
}
