package remove

import (
	"rmfd/internal/devino"
	"rmfd/internal/safety"
)

// Interactive says when to prompt.
type Interactive int

const (
	// Always prompts for every object.
	Always Interactive = iota + 1
	// Sometimes prompts only for write-protected objects, and only when
	// input is a terminal.
	Sometimes
	// Never prompts, except for protected objects.
	Never
)

// Options is the configuration of a run. It does not change once the run
// has started, except for the cached responses in Protected.
type Options struct {
	// IgnoreMissing treats a nonexistent operand as removed and disables
	// write-protection prompts.
	IgnoreMissing bool
	Interactive   Interactive
	// OneFileSystem refuses to remove directories on a device other than
	// that of the operand they were found under.
	OneFileSystem bool
	Recursive     bool
	// RootID, when set, is the identity of "/", which is never removed.
	RootID *devino.ID
	// StdinTTY says whether to assume the user is at a terminal.
	StdinTTY bool
	Verbose  bool
	// Protected is the table of objects that need an extra confirmation.
	// Nil disables the protected-path checks.
	Protected *safety.Table
	// RequireRestoreCwd makes a failure to close the walker an error
	// returned from Remove.
	RequireRestoreCwd bool
	// DryRun reports what would be removed; the Remover's Deleter is
	// expected to be a DryRunDeleter.
	DryRun bool
}
