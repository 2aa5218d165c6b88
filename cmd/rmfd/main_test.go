package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmfd/internal/exitcodes"
	"rmfd/internal/history"
	"rmfd/internal/remove"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func TestMain(m *testing.M) {
	// Keep the developer's ~/.rmfd out of the tests.
	home, err := os.MkdirTemp("", "rmfd-home")
	if err != nil {
		panic(err)
	}
	os.Setenv("HOME", home)
	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

func invoke(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func useHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestRemovesFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a")
	writeFile(t, f, "x")

	res := invoke(t, "", "-v", f)

	assert.Equal(t, exitcodes.Success, res.code, res.stderr)
	assert.False(t, exists(f))
	assert.Equal(t, "removed '"+f+"'\n", res.stdout)
}

func TestMissingOperand(t *testing.T) {
	res := invoke(t, "")
	assert.Equal(t, exitcodes.Usage, res.code)
	assert.Contains(t, res.stderr, "rmfd: missing operand\n")
	assert.Contains(t, res.stderr, "Try 'rmfd --help' for more information.")
}

func TestForceWithoutOperands(t *testing.T) {
	res := invoke(t, "", "-f")
	assert.Equal(t, exitcodes.Success, res.code)
	assert.Empty(t, res.stderr)
}

func TestMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	res := invoke(t, "", missing)
	assert.Equal(t, exitcodes.Failure, res.code)
	assert.Contains(t, res.stderr, "No such file or directory")

	res = invoke(t, "", "-f", missing)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.Empty(t, res.stderr)
}

func TestDirectoryNeedsRecursive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "d")
	writeFile(t, filepath.Join(dir, "f"), "")

	res := invoke(t, "", dir)
	assert.Equal(t, exitcodes.Failure, res.code)
	assert.Contains(t, res.stderr, "Is a directory")
	assert.True(t, exists(dir))

	for _, flag := range []string{"-r", "-R", "--recursive"} {
		writeFile(t, filepath.Join(dir, "f"), "")
		res = invoke(t, "", flag, dir)
		assert.Equal(t, exitcodes.Success, res.code, flag+": "+res.stderr)
		assert.False(t, exists(dir), flag)
	}
}

func TestInteractiveDeclined(t *testing.T) {
	f := filepath.Join(t.TempDir(), "keep")
	writeFile(t, f, "x")

	res := invoke(t, "n\n", "-i", f)

	assert.Equal(t, exitcodes.Success, res.code)
	assert.True(t, exists(f))
	assert.Contains(t, res.stderr, "rmfd: remove regular file '"+f+"'? ")
}

func TestLastPromptingFlagWins(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a")
	writeFile(t, f, "x")

	res := invoke(t, "", "-i", "-f", f)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.NotContains(t, res.stderr, "remove")
	assert.False(t, exists(f))

	writeFile(t, f, "x")
	res = invoke(t, "n\n", "-f", "--interactive", f)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.True(t, exists(f))

	res = invoke(t, "", "-fi", "--interactive=never", f)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.False(t, exists(f))
}

func TestPromptOnce(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, n := range []string{"a", "b", "c", "d"} {
		f := filepath.Join(dir, n)
		writeFile(t, f, "")
		files = append(files, f)
	}

	res := invoke(t, "no\n", append([]string{"-I"}, files...)...)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.Equal(t, "rmfd: remove all arguments? ", res.stderr)
	for _, f := range files {
		assert.True(t, exists(f))
	}

	res = invoke(t, "", append([]string{"-I"}, files[:3]...)...)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.Empty(t, res.stderr)
	assert.False(t, exists(files[0]))

	sub := filepath.Join(dir, "sub")
	writeFile(t, filepath.Join(sub, "x"), "")
	res = invoke(t, "y\n", "--interactive=once", "-r", sub)
	assert.Equal(t, exitcodes.Success, res.code)
	assert.Equal(t, "rmfd: remove all arguments recursively? ", res.stderr)
	assert.False(t, exists(sub))
}

func TestMatchWhen(t *testing.T) {
	tests := []struct {
		arg     string
		want    when
		wantErr bool
	}{
		{"never", whenNever, false},
		{"no", whenNever, false},
		{"n", whenNever, false},
		{"non", whenNever, false},
		{"o", whenOnce, false},
		{"always", whenAlways, false},
		{"al", whenAlways, false},
		{"y", whenAlways, false},
		{"", 0, true},
		{"sometimes", 0, true},
		{"alwaysx", 0, true},
	}
	for _, tt := range tests {
		got, err := matchWhen(tt.arg)
		if tt.wantErr {
			assert.Error(t, err, tt.arg)
			continue
		}
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

func TestInteractiveFlagSetsMode(t *testing.T) {
	o := newCLIOptions()
	f := &interactiveFlag{o: o}

	require.NoError(t, f.Set("once"))
	assert.Equal(t, remove.Sometimes, o.interactive)
	assert.True(t, o.promptOnce)

	o.ignoreMissing = true
	require.NoError(t, f.Set("never"))
	assert.Equal(t, remove.Never, o.interactive)
	assert.False(t, o.promptOnce)
	assert.True(t, o.ignoreMissing, "never keeps -f's missing-file handling")

	require.NoError(t, f.Set("always"))
	assert.Equal(t, remove.Always, o.interactive)
	assert.False(t, o.ignoreMissing)
}

func TestUnknownOptionAdvice(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "-foo"), "")

	res := invoke(t, "", "-foo")

	assert.Equal(t, exitcodes.Usage, res.code)
	assert.Contains(t, res.stderr, "Try 'rmfd ./-foo' to remove the file '-foo'.")
	assert.Contains(t, res.stderr, "Try 'rmfd --help' for more information.")
	assert.True(t, exists(filepath.Join(dir, "-foo")))

	res = invoke(t, "", "--", "-foo")
	assert.Equal(t, exitcodes.Success, res.code, res.stderr)
	assert.False(t, exists(filepath.Join(dir, "-foo")))
}

func TestPreserveRoot(t *testing.T) {
	// --dry-run keeps a broken guard from doing any damage.
	res := invoke(t, "", "--dry-run", "-rf", "/")
	assert.Equal(t, exitcodes.Failure, res.code)
	assert.Contains(t, res.stderr, "it is dangerous to operate recursively on '/'")
}

func TestFlagParsing(t *testing.T) {
	tests := []struct {
		args  []string
		check func(t *testing.T, o *cliOptions)
	}{
		{[]string{"--no-preserve-root", "--preserve-root"}, func(t *testing.T, o *cliOptions) {
			require.NotNil(t, o.preserveRoot)
			assert.True(t, *o.preserveRoot)
		}},
		{[]string{"--preserve-root", "--no-preserve-root"}, func(t *testing.T, o *cliOptions) {
			require.NotNil(t, o.preserveRoot)
			assert.False(t, *o.preserveRoot)
		}},
		{nil, func(t *testing.T, o *cliOptions) {
			assert.Nil(t, o.preserveRoot)
			assert.Equal(t, remove.Sometimes, o.interactive)
		}},
		{[]string{"-R"}, func(t *testing.T, o *cliOptions) {
			assert.True(t, o.recursive)
		}},
		{[]string{"-If"}, func(t *testing.T, o *cliOptions) {
			assert.Equal(t, remove.Never, o.interactive)
			assert.True(t, o.ignoreMissing)
			assert.False(t, o.promptOnce)
		}},
		{[]string{"-fI"}, func(t *testing.T, o *cliOptions) {
			assert.False(t, o.ignoreMissing)
			assert.True(t, o.promptOnce)
		}},
		{[]string{"-d", "--presume-input-tty"}, func(t *testing.T, o *cliOptions) {
			assert.True(t, o.presumeTTY)
		}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			o := newCLIOptions()
			fs := pflag.NewFlagSet("rmfd", pflag.ContinueOnError)
			registerFlags(fs, o)
			require.NoError(t, fs.Parse(tt.args))
			tt.check(t, o)
		})
	}
}

func TestInteractiveBadArgument(t *testing.T) {
	res := invoke(t, "", "--interactive=sometimes", "x")
	assert.Equal(t, exitcodes.Usage, res.code)
	assert.Contains(t, res.stderr, "valid arguments are")
}

func TestDryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(dir, "a"), "")

	res := invoke(t, "", "--dry-run", "-rv", dir)

	assert.Equal(t, exitcodes.Success, res.code, res.stderr)
	assert.True(t, exists(filepath.Join(dir, "a")))
	assert.Contains(t, res.stdout, "would remove '"+filepath.Join(dir, "a")+"'")
}

func TestInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfg, "no_such_key: true\n")
	f := filepath.Join(t.TempDir(), "a")
	writeFile(t, f, "")

	res := invoke(t, "", "--config", cfg, f)

	assert.Equal(t, exitcodes.InvalidConfig, res.code)
	assert.True(t, exists(f))
}

func TestWarnListDeclined(t *testing.T) {
	home := useHome(t)
	f := filepath.Join(t.TempDir(), "precious")
	writeFile(t, f, "")
	writeFile(t, filepath.Join(home, ".rmfd", "warn.list"), f+"\n")

	res := invoke(t, "n\n", "-f", "-w", f)

	assert.Equal(t, exitcodes.Failure, res.code)
	assert.True(t, exists(f))
	assert.Contains(t, res.stderr, "you are about to remove '"+f+"'; continue? ")
}

func TestWarnListAcceptedAsksOnce(t *testing.T) {
	home := useHome(t)
	f := filepath.Join(t.TempDir(), "precious")
	writeFile(t, f, "")
	writeFile(t, filepath.Join(home, ".rmfd", "warn.list"), f+"\n")

	res := invoke(t, "y\n", "-f", "-w", f)

	assert.Equal(t, exitcodes.Success, res.code, res.stderr)
	assert.False(t, exists(f))
	assert.Equal(t, 1, strings.Count(res.stderr, "you are about to remove"))
}

func TestWarnListRelativePath(t *testing.T) {
	home := useHome(t)
	writeFile(t, filepath.Join(home, ".rmfd", "warn.list"), "relative/path\n")
	f := filepath.Join(t.TempDir(), "a")
	writeFile(t, f, "")

	res := invoke(t, "", "-w", f)

	assert.Equal(t, exitcodes.InvalidConfig, res.code)
	assert.Contains(t, res.stderr, "protected path must be absolute")
	assert.True(t, exists(f))
}

func TestWarnListAbsentProtectsNothing(t *testing.T) {
	f := filepath.Join(t.TempDir(), "a")
	writeFile(t, f, "")

	res := invoke(t, "", "-w", f)

	assert.Equal(t, exitcodes.Success, res.code, res.stderr)
	assert.False(t, exists(f))
}

func TestHistoryAndMetricsFromConfig(t *testing.T) {
	home := useHome(t)
	state := t.TempDir()
	dbPath := filepath.Join(state, "history.db")
	prom := filepath.Join(state, "rmfd.prom")
	logFile := filepath.Join(state, "rmfd.log")
	writeFile(t, filepath.Join(home, ".rmfd", "config.yaml"),
		"history_db: "+dbPath+"\n"+
			"logging:\n  file: "+logFile+"\n"+
			"metrics:\n  textfile: "+prom+"\n")

	dir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(dir, "a"), "abc")

	res := invoke(t, "", "-r", dir)
	require.Equal(t, exitcodes.Success, res.code, res.stderr)

	db, err := history.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	records, err := db.ByAction(history.ActionRemove, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rmfd_last_run_timestamp")

	logData, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "finished: status=ok")
}
