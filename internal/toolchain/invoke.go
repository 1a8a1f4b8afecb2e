package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/funvibe/inlinec/internal/config"
	"github.com/funvibe/inlinec/internal/flags"
)

var execCommandContext = exec.CommandContext

// Request describes one snippet to compile.
type Request struct {
	Language Language

	// Program is the snippet with directives already removed.
	Program string

	Flags flags.Groups
	Link  flags.Link

	// Vars is the merged configuration map, exported to the compiler.
	Vars map[string]string

	// Environ is the base environment of the compiler process.
	// Nil means os.Environ().
	Environ []string

	// TempDir receives the staged source and the output. Empty means
	// os.TempDir().
	TempDir string
}

// Invocation is a compiler command that has not been run yet, together
// with the files it owns.
type Invocation struct {
	Cmd *exec.Cmd

	// Source is the staged program.
	Source string

	// Output is the executable the compiler will write.
	Output string

	// Object is the intermediate object the compiler may leave behind.
	Object string
}

// Artifacts lists every file that must be removed once the invocation and
// its output are no longer needed.
func (inv *Invocation) Artifacts() []string {
	return []string{inv.Source, inv.Output, inv.Object}
}

// Invoker stages snippets and builds compiler commands.
type Invoker struct {
	Toolchain *Toolchain

	// FS is where the source is staged. It must be backed by the OS
	// filesystem for the compiler to see the file.
	FS afero.Fs
}

// NewInvoker creates an Invoker on the OS filesystem.
func NewInvoker(tc *Toolchain) *Invoker {
	return &Invoker{Toolchain: tc, FS: afero.NewOsFs()}
}

// Prepare stages req.Program and returns the compiler command for it.
// Nothing is left on disk when an error is returned.
func (iv *Invoker) Prepare(ctx context.Context, req Request) (*Invocation, error) {
	dir := req.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	source, err := iv.stage(dir, req.Language, req.Program)
	if err != nil {
		return nil, err
	}

	output := filepath.Join(dir, config.TempPrefix+uuid.NewString()+iv.Toolchain.Host.ExeSuffix())
	inv := &Invocation{
		Source: source,
		Output: output,
		Object: strings.TrimSuffix(output, filepath.Ext(output)) + iv.Toolchain.Family.ObjectSuffix(),
	}

	cmd := execCommandContext(ctx, iv.Toolchain.Path, iv.Args(req, inv)...)
	environ := req.Environ
	if environ == nil {
		environ = os.Environ()
	}
	cmd.Env = append(append([]string(nil), environ...), envPairs(req.Vars)...)
	inv.Cmd = cmd

	return inv, nil
}

func (iv *Invoker) stage(dir string, lang Language, program string) (string, error) {
	path := filepath.Join(dir, config.TempPrefix+uuid.NewString()+lang.Ext())
	f, err := iv.FS.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("staging source: %w", err)
	}
	_, werr := f.WriteString(program)
	cerr := f.Close()
	if werr == nil && cerr == nil {
		return path, nil
	}

	var result *multierror.Error
	result = multierror.Append(result, werr, cerr)
	if rerr := iv.FS.Remove(path); rerr != nil {
		result = multierror.Append(result, fmt.Errorf("removing %s: %w", path, rerr))
	}
	return "", fmt.Errorf("staging source %s: %w", path, result.ErrorOrNil())
}

// Args assembles the compiler arguments for req, writing inv's paths.
func (iv *Invoker) Args(req Request, inv *Invocation) []string {
	fam := iv.Toolchain.Family
	args := append([]string(nil), iv.Toolchain.Args...)
	args = append(args, defaultFlags(fam, req.Language)...)
	args = append(args, req.Flags.CPPFlags...)
	args = append(args, req.Flags.CFlags...)
	if req.Language == Cxx {
		args = append(args, req.Flags.CXXFlags...)
	}

	if fam == MSVC {
		args = append(args, "-Fo"+inv.Object, "-Fe"+inv.Output)
	} else {
		args = append(args, "-o", inv.Output)
	}

	args = append(args, inv.Source)
	return append(args, linkArgs(fam, req.Link)...)
}

// defaultFlags: warnings are errors, no debug info, optimisation level 1.
func defaultFlags(fam Family, lang Language) []string {
	if fam.MSVCStyle() {
		out := []string{"-nologo", "-W4", "-WX", "-O1"}
		if lang == Cxx {
			out = append(out, "-EHsc")
		}
		return out
	}
	return []string{"-Wall", "-Wextra", "-Werror", "-O1"}
}

func linkArgs(fam Family, l flags.Link) []string {
	if !l.Requested() {
		return nil
	}
	if fam.MSVCStyle() {
		args := []string{"/link", l.ImportLibrary(true), "/LIBPATH:" + l.Path}
		return append(args, l.Extra...)
	}
	args := []string{"-L" + l.Path, "-Wl,-rpath," + l.Path, libraryArg(l)}
	return append(args, l.Extra...)
}

// libraryArg links a bare name with -l and a file name by path.
func libraryArg(l flags.Link) string {
	lib := l.Library
	switch {
	case strings.HasPrefix(lib, "-"):
		return lib
	case strings.ContainsAny(lib, `/\`):
		return lib
	case isLibraryFile(lib):
		return filepath.Join(l.Path, lib)
	}
	return "-l" + lib
}

func isLibraryFile(name string) bool {
	for _, suffix := range []string{".a", ".so", ".dylib", ".dll", ".lib"} {
		if strings.HasSuffix(name, suffix) || strings.Contains(name, suffix+".") {
			return true
		}
	}
	return false
}

func envPairs(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
