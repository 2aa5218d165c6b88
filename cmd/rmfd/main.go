package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rmfd/internal/config"
	"rmfd/internal/devino"
	"rmfd/internal/diag"
	"rmfd/internal/exitcodes"
	"rmfd/internal/history"
	"rmfd/internal/logging"
	"rmfd/internal/metrics"
	"rmfd/internal/prompt"
	"rmfd/internal/remove"
	"rmfd/internal/safety"
)

const progName = "rmfd"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError is a command line the program could not make sense of.
type usageError struct {
	err    error
	advice string
}

func (e *usageError) Error() string { return e.err.Error() }

// exitError ends the run with code after its message, if any, has been
// printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

// run executes one invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o := newCLIOptions()
	reporter := diag.New(progName, stderr, isTerminal(stderr))

	cmd := &cobra.Command{
		Use:     progName + " [OPTION]... FILE...",
		Version: version,
		Short:   "Remove files and directory trees safely",
		Long: `rmfd removes (unlinks) each FILE. Directories are removed only with
--recursive, together with everything below them. Symbolic links are
removed, never followed, and every path is resolved one component at a
time relative to a directory rmfd has opened itself.

To remove a file whose name starts with a '-', for example '-foo', use
one of these commands:
  rmfd -- -foo
  rmfd ./-foo`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, files []string) error {
			code := execute(o, files, stdin, stdout, reporter)
			if code != exitcodes.Success {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().SortFlags = false
	registerFlags(cmd.Flags(), o)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err, advice: leadingHyphenAdvice(args)}
	})

	err := cmd.Execute()
	if err == nil {
		return exitcodes.Success
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		reporter.Error(nil, "%s", usageErr.err)
		if usageErr.advice != "" {
			fmt.Fprintln(stderr, usageErr.advice)
		}
	} else {
		reporter.Error(nil, "%s", err)
	}
	fmt.Fprintf(stderr, "Try '%s --help' for more information.\n", progName)
	return exitcodes.Usage
}

// leadingHyphenAdvice suggests "./-foo" when an argument that was taken
// for an option names an existing file.
func leadingHyphenAdvice(args []string) string {
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}
		if _, err := os.Lstat(arg); err == nil {
			return fmt.Sprintf("Try '%s ./%s' to remove the file %s.", progName, arg, diag.Quote(arg))
		}
	}
	return ""
}

func execute(o *cliOptions, files []string, stdin io.Reader, stdout io.Writer, reporter *diag.Reporter) int {
	stderr := reporter.Writer()
	if len(files) == 0 {
		if o.ignoreMissing {
			return exitcodes.Success
		}
		reporter.Error(nil, "missing operand")
		fmt.Fprintf(stderr, "Try '%s --help' for more information.\n", progName)
		return exitcodes.Usage
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		reporter.Error(err, "invalid configuration")
		return exitcodes.InvalidConfig
	}

	logger, logFile := logging.New(cfg.Logging.File, cfg.Logging.RotationDays)
	defer logFile.Close()
	runID := uuid.New().String()
	logger.Printf("[INFO] run %s starting: %d operand(s), recursive=%t dry_run=%t", runID, len(files), o.recursive, o.dryRun)

	opts := remove.Options{
		IgnoreMissing:     o.ignoreMissing,
		Interactive:       o.interactive,
		OneFileSystem:     o.oneFileSystem || cfg.OneFileSystem,
		Recursive:         o.recursive,
		StdinTTY:          o.presumeTTY || isTerminal(stdin),
		Verbose:           o.verbose,
		RequireRestoreCwd: cfg.RequireRestoreCwd,
		DryRun:            o.dryRun,
	}

	if o.warnings {
		table, err := loadWarnList(cfg.WarnList)
		if err != nil {
			reporter.Error(err, "invalid warn list")
			return exitcodes.InvalidConfig
		}
		opts.Protected = table
	}

	preserveRoot := cfg.PreserveRootEnabled()
	if o.preserveRoot != nil {
		preserveRoot = *o.preserveRoot
	}
	if opts.Recursive && preserveRoot {
		root, err := devino.Root()
		if err != nil {
			reporter.Error(err, "failed to get attributes of %s", diag.Quote("/"))
			return exitcodes.Failure
		}
		opts.RootID = &root
	}

	asker := prompt.NewTerminal(stdin, stderr)

	if o.promptOnce && (opts.Recursive || len(files) > 3) {
		q := "remove all arguments? "
		if opts.Recursive {
			q = "remove all arguments recursively? "
		}
		if !asker.Ask(reporter.Prefix() + q) {
			return exitcodes.Success
		}
	}

	r := remove.New(opts, asker, reporter)
	r.SetOutput(stdout)
	r.SetLogger(logger)

	if cfg.HistoryDB != "" {
		db, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Printf("[ERROR] open history %s: %v", cfg.HistoryDB, err)
			reporter.Error(err, "cannot open history database %s", diag.Quote(cfg.HistoryDB))
		} else {
			defer func() {
				if err := db.Close(); err != nil {
					logger.Printf("[ERROR] close history: %v", err)
				}
			}()
			r.SetHistory(db, runID)
		}
	}

	start := time.Now()
	status, code := removeAll(r, opts, files, reporter)
	logger.Printf("[INFO] run %s finished: status=%s duration=%s", runID, status, time.Since(start))

	metrics.RecordRun(start, status.String())
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Printf("[ERROR] %v", err)
		}
	}
	return code
}

// removeAll runs the protected-path pre-checks, when there is anything to
// protect, and then the removal itself.
func removeAll(r *remove.Remover, opts remove.Options, files []string, reporter *diag.Reporter) (remove.Status, int) {
	if opts.Protected != nil {
		ok, err := r.CheckGlobs(files)
		if err != nil {
			reporter.Error(nil, "%v", err)
			return remove.Error, exitcodes.Failure
		}
		if !ok || !r.Check(files) {
			return remove.UserDeclined, exitcodes.Failure
		}
	}

	status, err := r.Remove(files)
	if err != nil || status == remove.Error {
		return remove.Error, exitcodes.Failure
	}
	return status, exitcodes.Success
}

func loadConfig(path string) (*config.Config, error) {
	home, _ := os.UserHomeDir()
	if path != "" {
		return config.Load(path, home)
	}
	if home == "" {
		return config.Default("")
	}
	return config.LoadOrDefault(config.DefaultPath(home), home)
}

// loadWarnList returns nil when there is no usable warn list.
func loadWarnList(path string) (*safety.Table, error) {
	if !filepath.IsAbs(path) {
		// No home directory to find the default list in.
		return nil, nil
	}
	return safety.LoadFile(path)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
