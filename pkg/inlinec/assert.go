package inlinec

import (
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/icmd"
)

// Assert owns a compiled snippet: the command that runs it and the
// temporary files that must be deleted afterward.
type Assert struct {
	cmd       icmd.Cmd
	artifacts []string
	fs        afero.Fs

	closeOnce sync.Once
	closeErr  error
}

func newAssert(cmd icmd.Cmd, artifacts []string, fs afero.Fs) *Assert {
	return &Assert{cmd: cmd, artifacts: artifacts, fs: fs}
}

// Assert runs the program to completion and returns the result for
// further checks. Every call runs the program again.
func (a *Assert) Assert() *icmd.Result {
	return icmd.RunCmd(a.cmd)
}

// Stream runs the program like Assert and also copies its output to
// stdout and stderr as it is produced. Nil writers are skipped.
func (a *Assert) Stream(stdout, stderr io.Writer) *icmd.Result {
	cmd := a.cmd
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return icmd.RunCmd(cmd)
}

// Success runs the program and fails t unless it exits with status zero.
func (a *Assert) Success(t assert.TestingT) *icmd.Result {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return a.Assert().Assert(t, icmd.Success)
}

// Failure runs the program and fails t if it exits with status zero.
func (a *Assert) Failure(t assert.TestingT) *icmd.Result {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	res := a.Assert()
	assert.Assert(t, res.ExitCode != 0,
		"expected a non-zero exit status, got %d\n%s", res.ExitCode, res.String())
	return res
}

// Executable returns the path of the compiled program.
func (a *Assert) Executable() string {
	return a.cmd.Command[0]
}

// Artifacts returns the temporary files owned by a.
func (a *Assert) Artifacts() []string {
	return append([]string(nil), a.artifacts...)
}

// Close deletes the artifacts that still exist. Missing files are skipped.
// The first file that exists but cannot be removed stops cleanup and is
// reported as a *CleanupError; that points at a broken environment and
// callers in tests should stop the test. Close runs once; later calls
// return the first result.
func (a *Assert) Close() error {
	a.closeOnce.Do(func() {
		for _, path := range a.artifacts {
			if err := removeExisting(a.fs, path); err != nil {
				a.closeErr = err
				return
			}
		}
	})
	return a.closeErr
}

func removeExisting(fs afero.Fs, path string) error {
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &CleanupError{Path: path, Err: err}
	}
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return &CleanupError{Path: path, Err: err}
	}
	return nil
}

// removeAll removes every path it can and reports all failures.
func removeAll(fs afero.Fs, paths []string) error {
	var result *multierror.Error
	for _, path := range paths {
		if err := removeExisting(fs, path); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type helperT interface {
	Helper()
}
