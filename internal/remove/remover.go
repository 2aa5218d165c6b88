// Package remove deletes files and directory trees the way rm(1) does,
// without following symlinks and without ever resolving a path longer than
// one component against a directory the walk has not opened itself.
package remove

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"rmfd/internal/diag"
	"rmfd/internal/fsops"
	"rmfd/internal/fts"
	"rmfd/internal/history"
	"rmfd/internal/metrics"
	"rmfd/internal/prompt"
)

// ErrRestoreCwd is returned by Remove when the walker could not be closed
// and Options.RequireRestoreCwd is set.
var ErrRestoreCwd = errors.New("failed to restore the initial working directory")

// Traverser is the depth-first walk the driver consumes. *fts.Walker
// implements it.
type Traverser interface {
	Read() (*fts.Entry, error)
	Set(e *fts.Entry, instr fts.Instr)
	CwdFD() int
	Dev() uint64
	Close() error
}

// OpenFunc starts a walk over roots.
type OpenFunc func(roots []string, flags fts.Flag) (Traverser, error)

func openFTS(roots []string, flags fts.Flag) (Traverser, error) {
	return fts.Open(roots, flags)
}

// Logger receives the audit trail of a run.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	parts := []interface{}{fmt.Sprintf("[%s]", level), msg}
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics is the set of counters a Remover updates.
type Metrics interface {
	RemovedTotal(kind string) prometheus.Counter
	DeclinedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
	SkippedTotal(reason string) prometheus.Counter
}

// removeMetrics wraps global metrics to implement Metrics
type removeMetrics struct{}

func (removeMetrics) RemovedTotal(kind string) prometheus.Counter {
	return metrics.RemovedTotal.WithLabelValues(kind)
}

func (removeMetrics) DeclinedTotal() prometheus.Counter {
	return metrics.DeclinedTotal
}

func (removeMetrics) ErrorsTotal() prometheus.Counter {
	return metrics.ErrorsTotal
}

func (removeMetrics) SkippedTotal(reason string) prometheus.Counter {
	return metrics.SkippedTotal.WithLabelValues(reason)
}

// Remover runs removals. It is not safe for concurrent use.
type Remover struct {
	opts    Options
	asker   prompt.Asker
	diag    *diag.Reporter
	deleter fsops.Deleter
	prober  *prober
	open    OpenFunc
	out     io.Writer
	logger  Logger
	metrics Metrics
	db      *history.DB
	runID   string
}

// New returns a Remover that asks questions through asker and reports
// failures through reporter.
func New(opts Options, asker prompt.Asker, reporter *diag.Reporter) *Remover {
	metrics.Init()
	var deleter fsops.Deleter = fsops.OSDeleter{}
	if opts.DryRun {
		deleter = fsops.DryRunDeleter{}
	}
	return &Remover{
		opts:    opts,
		asker:   asker,
		diag:    reporter,
		deleter: deleter,
		prober:  newProber(),
		open:    openFTS,
		out:     os.Stdout,
		logger:  &stdLogger{Logger: log.New(io.Discard, "", 0)},
		metrics: removeMetrics{},
	}
}

// SetDeleter replaces the destructive syscall.
func (r *Remover) SetDeleter(d fsops.Deleter) { r.deleter = d }

// SetOutput sets where verbose notices go.
func (r *Remover) SetOutput(w io.Writer) { r.out = w }

// SetLogger sets the audit logger.
func (r *Remover) SetLogger(l *log.Logger) { r.logger = &stdLogger{Logger: l} }

// SetHistory records every outcome in db under runID.
func (r *Remover) SetHistory(db *history.DB, runID string) {
	r.db = db
	r.runID = runID
}

// SetWalker replaces the tree walker.
func (r *Remover) SetWalker(open OpenFunc) { r.open = open }

func (r *Remover) walkFlags() fts.Flag {
	flags := fts.CwdFD | fts.NoStat | fts.Physical
	if r.opts.OneFileSystem {
		flags |= fts.XDev
	}
	return flags
}

// isNonexistent reports whether err means the object does not exist.
func isNonexistent(err error) bool {
	return errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR)
}

func (r *Remover) ignorableMissing(err error) bool {
	return r.opts.IgnoreMissing && isNonexistent(err)
}

// fail reports one failure: a diagnostic line, the audit log, history and
// metrics.
func (r *Remover) fail(e *fts.Entry, err error, format string, args ...any) {
	r.diag.Error(err, format, args...)
	msg := ""
	if err != nil {
		msg = diag.Reason(err)
	}
	r.logger.Error("remove failed", "path", e.Path, "error", msg)
	r.metrics.ErrorsTotal().Inc()
	r.record(history.ActionError, e, msg)
}

// skip reports a structural refusal.
func (r *Remover) skip(e *fts.Entry, reason string, format string, args ...any) {
	r.diag.Error(nil, format, args...)
	r.logger.Error("remove refused", "path", e.Path, "reason", reason)
	r.metrics.SkippedTotal(reason).Inc()
	r.record(history.ActionSkip, e, reason)
}

func (r *Remover) declined(e *fts.Entry) {
	r.logger.Info("remove declined", "path", e.Path)
	r.metrics.DeclinedTotal().Inc()
	r.record(history.ActionDecline, e, "")
}

func (r *Remover) removed(e *fts.Entry, isDir bool) {
	kind := "file"
	if isDir {
		kind = "directory"
	}
	action := history.ActionRemove
	if r.opts.DryRun {
		action = history.ActionDryRun
	}
	r.logger.Info("removed", "path", e.Path, "kind", kind, "dry_run", r.opts.DryRun)
	r.metrics.RemovedTotal(kind).Inc()
	r.record(action, e, "")
}

func (r *Remover) record(action string, e *fts.Entry, errMsg string) {
	if r.db == nil {
		return
	}
	rec := history.Record{
		RunID:        r.runID,
		Timestamp:    time.Now(),
		Action:       action,
		Path:         e.Path,
		ObjectType:   objectType(e),
		ErrorMessage: errMsg,
	}
	if e.Statted {
		rec.Size = e.Stat.Size
		rec.Device = uint64(e.Stat.Dev)
		rec.Inode = uint64(e.Stat.Ino)
	}
	if err := r.db.Record(rec); err != nil {
		r.logger.Error("failed to record history", "path", e.Path, "error", err)
	}
}

func objectType(e *fts.Entry) string {
	if e.Statted {
		return fileType(&e.Stat)
	}
	switch {
	case e.Info == fts.NS:
		return "unknown"
	case e.IsDirMode():
		return "directory"
	case e.IsSymlinkMode():
		return "symbolic link"
	default:
		return "file"
	}
}

// fileType describes st for prompts.
func fileType(st *unix.Stat_t) string {
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		if st.Size == 0 {
			return "regular empty file"
		}
		return "regular file"
	case unix.S_IFDIR:
		return "directory"
	case unix.S_IFLNK:
		return "symbolic link"
	case unix.S_IFIFO:
		return "fifo"
	case unix.S_IFSOCK:
		return "socket"
	case unix.S_IFCHR:
		return "character special file"
	case unix.S_IFBLK:
		return "block special file"
	default:
		return "weird file"
	}
}
