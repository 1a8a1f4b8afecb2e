package inlinec

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/funvibe/inlinec/internal/flags"
	"github.com/funvibe/inlinec/internal/toolchain"
)

// Sentinel errors returned by Run; test them with errors.Is.
var (
	// ErrUnsupportedToolchain is returned when the configured compiler
	// cannot build native executables for the host.
	ErrUnsupportedToolchain = toolchain.ErrUnsupportedToolchain

	// ErrToolchainNotFound is returned when the compiler is not installed.
	ErrToolchainNotFound = toolchain.ErrToolchainNotFound
)

// MissingTokenError reports a link configuration with the path or the
// library missing.
type MissingTokenError = flags.MissingTokenError

// CompileError is returned when the compiler exits unsuccessfully.
type CompileError struct {
	// Command is the compiler command line.
	Command []string

	// Output is the compiler's combined stdout and stderr with terminal
	// colour codes removed.
	Output string

	// Err is the process error.
	Err error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compiling snippet: %v\ncommand: %s", e.Err, shellquote.Join(e.Command...))
	if out := strings.TrimRight(e.Output, "\n"); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CleanupError reports an artifact that exists but could not be removed.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove %q: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
