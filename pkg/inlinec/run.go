// Package inlinec compiles C and C++ snippets with the host's native
// compiler and runs them under test.
//
// A snippet may carry its own configuration:
//
//	#inline_c_rs CFLAGS: "-I/opt/wasmer/include"
//	#inline_c_rs LDFLAGS: "-rpath,/opt/wasmer/lib libwasmer.so"
//	#include "wasmer.h"
//	int main(void) { return 0; }
//
// Directive values override INLINE_C_RS_<NAME> environment variables,
// which override the env section of an inlinec.yaml project file.
package inlinec

import (
	"context"
	"fmt"

	"github.com/acarl005/stripansi"
	"github.com/hashicorp/go-multierror"
	"github.com/kballard/go-shellquote"
	"gotest.tools/v3/icmd"

	"github.com/funvibe/inlinec/internal/config"
	"github.com/funvibe/inlinec/internal/directive"
	"github.com/funvibe/inlinec/internal/flags"
	"github.com/funvibe/inlinec/internal/headers"
	"github.com/funvibe/inlinec/internal/toolchain"
)

// Language selects C or C++.
type Language = toolchain.Language

// Languages accepted by Run.
const (
	LangC   = toolchain.C   // compiled as .c
	LangCxx = toolchain.Cxx // compiled as .cpp
)

// Run compiles program and returns an Assert for the resulting executable.
// The caller owns the Assert and must Close it.
//
// Errors, in pipeline order: an unsupported or missing toolchain, an
// incomplete link configuration (*MissingTokenError), a header read/write
// failure, and a compiler failure (*CompileError). No temporary file is
// left behind when an error is returned.
func Run(ctx context.Context, lang Language, program string, opts ...Option) (*Assert, error) {
	o := newOptions(opts)
	log := o.logger

	ambient := config.ParseEnv(o.environ)
	extracted := directive.Extract(program, ambient, o.project.Vars())
	log.Debug("collected configuration", "vars", extracted.Vars)

	tc, err := toolchain.Detect(lang, toolchain.Selection{
		Vars:    extracted.Vars,
		Ambient: ambient,
		Project: o.project,
	}, o.host)
	if err != nil {
		return nil, fmt.Errorf("detecting toolchain: %w", err)
	}
	log.Debug("using compiler", "path", tc.Path, "family", tc.Family.String())

	groups := flags.Resolve(extracted.Vars, ambient)
	link, err := flags.ResolveLink(extracted.Vars, groups)
	if err != nil {
		return nil, err
	}

	fixer := headers.NewFixer(o.fs, log)
	report, err := fixer.Fix(groups.IncludePaths(), extracted.Program)
	if err != nil {
		return nil, fmt.Errorf("fixing headers: %w", err)
	}
	if len(report.Rewritten) > 0 {
		log.Debug("rewrote headers", "headers", report.Rewritten)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	invoker := &toolchain.Invoker{Toolchain: tc, FS: o.fs}
	inv, err := invoker.Prepare(ctx, toolchain.Request{
		Language: lang,
		Program:  extracted.Program,
		Flags:    groups,
		Link:     link,
		Vars:     extracted.Vars,
		Environ:  o.environ,
		TempDir:  o.tempDir,
	})
	if err != nil {
		return nil, fmt.Errorf("preparing compiler: %w", err)
	}

	log.Debug("compiling", "command", shellquote.Join(inv.Cmd.Args...))
	out, err := inv.Cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		var result error = &CompileError{
			Command: inv.Cmd.Args,
			Output:  stripansi.Strip(string(out)),
			Err:     err,
		}
		if cerr := removeAll(o.fs, inv.Artifacts()); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		return nil, result
	}

	cmd := icmd.Cmd{
		Command: []string{inv.Output},
		Env:     inv.Cmd.Env,
		Timeout: o.timeout,
	}
	return newAssert(cmd, inv.Artifacts(), o.fs), nil
}
