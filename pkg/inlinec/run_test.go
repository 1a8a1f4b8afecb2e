package inlinec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gtassert "gotest.tools/v3/assert"
	"gotest.tools/v3/icmd"

	"github.com/funvibe/inlinec/internal/config"
	"github.com/funvibe/inlinec/internal/toolchain"
)

// testEnviron is the process environment without anything that would
// change how snippets are compiled.
func testEnviron() []string {
	var env []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		switch {
		case strings.HasPrefix(name, config.EnvPrefix):
			continue
		case name == config.CFlagsVar, name == config.CPPFlagsVar,
			name == config.CXXFlagsVar, name == config.LDFlagsVar:
			continue
		}
		env = append(env, kv)
	}
	return env
}

// requireCompiler skips the test when the host has no supported compiler
// for lang, and returns options that isolate the run in a temp dir.
func requireCompiler(t *testing.T, lang Language, extraEnv ...string) (string, []Option) {
	t.Helper()
	environ := append(testEnviron(), extraEnv...)
	sel := toolchain.Selection{Ambient: config.ParseEnv(environ)}
	if _, err := toolchain.Detect(lang, sel, toolchain.CurrentHost()); err != nil {
		t.Skipf("no usable %s compiler: %v", lang, err)
	}
	dir := t.TempDir()
	return dir, []Option{WithEnviron(environ), WithTempDir(dir)}
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names, "leftover artifacts in %s", dir)
}

func requireGone(t *testing.T, paths []string) {
	t.Helper()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s still exists", p)
	}
}

func TestRun_ExitZero(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	a, err := Run(context.Background(), LangC, "int main(){return 0;}", opts...)
	require.NoError(t, err)

	a.Success(t)
	_, err = os.Stat(a.Executable())
	require.NoError(t, err)

	artifacts := a.Artifacts()
	require.Len(t, artifacts, 3)
	require.NoError(t, a.Close())
	requireGone(t, artifacts)
	requireEmptyDir(t, dir)
}

func TestRun_ExitOne(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	a, err := Run(context.Background(), LangC, "int main(){return 1;}", opts...)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, a.Close())
		requireEmptyDir(t, dir)
	}()

	ft := withFakeT(func(ft gtassert.TestingT) { a.Success(ft) })
	assert.True(t, ft.failed, "Success must fail for exit status 1")

	a.Failure(t)
	a.Assert().Assert(t, icmd.Expected{ExitCode: 1})
}

func TestRun_DirectiveDefinesMacro(t *testing.T) {
	_, opts := requireCompiler(t, LangC)

	program := "#inline_c_rs CFLAGS: \"-DFOO=1\"\n" +
		"#ifdef FOO\nint main(){return 0;}\n#else\nint main(){return 2;}\n#endif\n"
	C(t, program, opts...).Success(t)
}

func TestRun_EnvironmentPrefix(t *testing.T) {
	_, opts := requireCompiler(t, LangC, "INLINE_C_RS_CFLAGS=-DFOO=1")

	program := "#ifdef FOO\nint main(){return 0;}\n#else\nint main(){return 2;}\n#endif\n"
	C(t, program, opts...).Success(t)
}

func TestRun_DirectiveOverridesEnvironment(t *testing.T) {
	_, opts := requireCompiler(t, LangC, "INLINE_C_RS_CFLAGS=-DFOO=1")

	program := "#inline_c_rs CFLAGS: \"-DBAR=1\"\n" +
		"#ifdef FOO\nint main(){return 3;}\n#else\nint main(){return 0;}\n#endif\n"
	C(t, program, opts...).Success(t)
}

func TestRun_VariablesReachProgram(t *testing.T) {
	_, opts := requireCompiler(t, LangC)

	program := `#inline_c_rs GREETING: "hello from a directive"
#include <stdio.h>
#include <stdlib.h>

int main(void) {
    const char *v = getenv("GREETING");
    printf("%s\n", v ? v : "unset");
    return 0;
}
`
	res := C(t, program, opts...).Success(t)
	res.Assert(t, icmd.Expected{Out: "hello from a directive"})
}

func TestRun_Cxx(t *testing.T) {
	_, opts := requireCompiler(t, LangCxx)

	program := `#include <iostream>

int main() {
    std::cout << "hello from c++" << std::endl;
    return 0;
}
`
	a := Cxx(t, program, opts...)
	assert.Equal(t, ".cpp", filepath.Ext(a.Artifacts()[0]))
	a.Success(t).Assert(t, icmd.Expected{Out: "hello from c++"})
}

func TestRun_HeaderStandIn(t *testing.T) {
	_, opts := requireCompiler(t, LangC)

	include := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(include, "answer-real.h"),
		[]byte("#define ANSWER 42\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(include, "answer.h"),
		[]byte("answer-real.h"), 0o644))

	program := "#inline_c_rs CFLAGS: \"-I" + include + "\"\n" +
		"#include \"answer.h\"\nint main(void) { return ANSWER == 42 ? 0 : 1; }\n"
	C(t, program, opts...).Success(t)

	data, err := os.ReadFile(filepath.Join(include, "answer.h"))
	require.NoError(t, err)
	assert.Equal(t, "#define ANSWER 42\n", string(data))
}

func TestRun_MissingLinkLibrary(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	program := "#inline_c_rs LDFLAGS: \"-rpath,/opt/nowhere/lib\"\nint main(){return 0;}\n"
	a, err := Run(context.Background(), LangC, program, opts...)
	require.Nil(t, a)

	var mte *MissingTokenError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, "link library", mte.Token)
	assert.Contains(t, err.Error(), "link library")
	requireEmptyDir(t, dir)
}

func TestRun_CompileError(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	_, err := Run(context.Background(), LangC, "int main(void) { return undefined_symbol; }\n", opts...)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Output, "undefined_symbol")
	assert.NotContains(t, cerr.Output, "\x1b[")
	assert.Contains(t, err.Error(), "command:")
	requireEmptyDir(t, dir)
}

func TestRun_WarningsAreErrors(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	_, err := Run(context.Background(), LangC, "int main(void) { int unused; return 0; }\n", opts...)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	requireEmptyDir(t, dir)
}

func TestRun_UnsupportedToolchain(t *testing.T) {
	dir := t.TempDir()
	compiler := "cl"
	if toolchain.CurrentHost().GOOS == "windows" {
		compiler = "gcc"
	}

	_, err := Run(context.Background(), LangC, "int main(){return 0;}",
		WithEnviron(append(testEnviron(), "CC="+compiler)), WithTempDir(dir))
	require.ErrorIs(t, err, ErrUnsupportedToolchain)
	requireEmptyDir(t, dir)
}

func TestRun_ToolchainNotFound(t *testing.T) {
	dir := t.TempDir()
	compiler := "/nonexistent/inlinec/gcc"
	if toolchain.CurrentHost().GOOS == "windows" {
		compiler = `C:\nowhere\cl.exe`
	}

	_, err := Run(context.Background(), LangC, "int main(){return 0;}",
		WithEnviron(append(testEnviron(), "INLINE_C_RS_CC="+compiler)), WithTempDir(dir))
	require.ErrorIs(t, err, ErrToolchainNotFound)
	requireEmptyDir(t, dir)
}

func TestRun_Timeout(t *testing.T) {
	_, opts := requireCompiler(t, LangC)

	program := "int main(void) { volatile int spin = 1; while (spin) {} return 0; }\n"
	a := C(t, program, append(opts, WithTimeout(30*time.Second))...)
	a.cmd.Timeout = 200 * time.Millisecond

	res := a.Assert()
	assert.True(t, res.Timeout, "program should have been stopped")
}

func TestRun_ProjectFile(t *testing.T) {
	dir, opts := requireCompiler(t, LangC)

	project, err := config.ParseProject([]byte("env:\n  CFLAGS: \"-DFROM_PROJECT=1\"\n"),
		filepath.Join(dir, "inlinec.yaml"))
	require.NoError(t, err)

	program := "#ifdef FROM_PROJECT\nint main(){return 0;}\n#else\nint main(){return 5;}\n#endif\n"
	C(t, program, append(opts, WithProject(project))...).Success(t)
}

func TestRun_VerboseLogging(t *testing.T) {
	_, opts := requireCompiler(t, LangC)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	C(t, "int main(){return 0;}", append(opts, WithLogger(logger))...)

	assert.Contains(t, buf.String(), "compiling")
	assert.Contains(t, buf.String(), "using compiler")
}

func TestCompileError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &CompileError{Command: []string{"cc", "-o", "out file", "a.c"}, Output: "a.c:1: error\n", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "'out file'")
	assert.Contains(t, err.Error(), "a.c:1: error")
}
