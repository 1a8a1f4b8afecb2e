// Package toolchain finds the host's native C/C++ compiler and assembles
// compiler invocations for snippets.
package toolchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cli/safeexec"
	"github.com/kballard/go-shellquote"

	"github.com/funvibe/inlinec/internal/config"
)

var (
	// ErrUnsupportedToolchain means the configured compiler does not belong
	// to a family that targets the host.
	ErrUnsupportedToolchain = errors.New("unsupported toolchain")

	// ErrToolchainNotFound means the compiler executable could not be located.
	ErrToolchainNotFound = errors.New("toolchain not found")
)

// lookPath is swapped out in tests.
var lookPath = safeexec.LookPath

// launchers wrap the real compiler and are skipped for family detection.
var launchers = map[string]bool{"ccache": true, "sccache": true, "distcc": true}

// Toolchain is a located compiler.
type Toolchain struct {
	// Family is the detected compiler family.
	Family Family

	// Path is the resolved executable.
	Path string

	// Args are leading arguments taken from the compiler setting
	// (e.g. the real compiler after "ccache").
	Args []string

	// Host is the platform the compiler targets.
	Host Host
}

// Selection is everything that can name a compiler, highest priority first
// except for the host default, which is always last.
type Selection struct {
	// Vars is the merged configuration map (CC / CXX).
	Vars map[string]string

	// Ambient is the process environment (CC / CXX).
	Ambient config.Env

	// Project is the optional project file.
	Project *config.Project
}

// Command returns the compiler command line configured for lang, or the
// host default, and where it came from.
func (s Selection) Command(lang Language, host Host) (string, string) {
	name := config.CCVar
	if lang == Cxx {
		name = config.CXXVar
	}
	if v := strings.TrimSpace(s.Vars[name]); v != "" {
		return v, "configuration " + name
	}
	if v, _ := s.Ambient.Lookup(name); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), "environment " + name
	}
	if v := s.Project.CompilerFor(lang == Cxx); v != "" {
		return v, "project file"
	}
	return host.DefaultCompiler(lang), "host default"
}

// Detect selects, classifies and locates the compiler for lang on host.
// An unsupported family is reported before the executable is looked up.
func Detect(lang Language, sel Selection, host Host) (*Toolchain, error) {
	command, source := sel.Command(lang, host)
	words, err := splitCommand(command, host)
	if err != nil {
		return nil, fmt.Errorf("parsing compiler %q from %s: %w", command, source, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty compiler from %s", ErrToolchainNotFound, source)
	}

	exe, args := words[0], words[1:]
	compiler := exe
	if launchers[strings.TrimSuffix(strings.ToLower(filepath.Base(exe)), ".exe")] && len(args) > 0 {
		compiler = args[0]
	}

	family := DetectFamily(compiler)
	if !host.Supports(family) {
		return nil, fmt.Errorf("%w: %s (%s family, from %s) cannot build for %s",
			ErrUnsupportedToolchain, compiler, family, source, host)
	}

	path, err := lookPath(exe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (from %s): %v", ErrToolchainNotFound, exe, source, err)
	}

	return &Toolchain{
		Family: family,
		Path:   path,
		Args:   args,
		Host:   host,
	}, nil
}

// splitCommand breaks a compiler setting into words. Windows paths keep
// their backslashes: only double quotes group, as cmd.exe reads them.
func splitCommand(command string, host Host) ([]string, error) {
	if host.GOOS != "windows" {
		return shellquote.Split(command)
	}

	var (
		words   []string
		word    strings.Builder
		inWord  bool
		inQuote bool
	)
	for _, r := range command {
		switch {
		case r == '"':
			inQuote = !inQuote
			inWord = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quoted string")
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}
