package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gotest.tools/v3/icmd"

	"github.com/funvibe/inlinec/internal/toolchain"
	"github.com/funvibe/inlinec/pkg/inlinec"
)

const usage = `Usage: %s [options] <file>

Compiles a C or C++ snippet with the host compiler and runs it.

Options:
  -x <lang>          language: c or c++ (default: from the file extension)
  --config <file>    project file (default: nearest inlinec.yaml)
  --timeout <d>      stop the compiler and the program after d (e.g. 10s)
  -v                 verbose pipeline logging
`

const (
	exitBuildFailed = 2
	exitTimeout     = 124
	exitSignalBase  = 128
)

type cliOptions struct {
	path       string
	lang       string
	configPath string
	timeout    time.Duration
	verbose    bool
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, usage, filepath.Base(args[0]))
		return exitBuildFailed
	}

	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
	status := color.New(color.FgCyan, color.Bold).SprintFunc()
	failure := color.New(color.FgRed, color.Bold).SprintFunc()

	source, err := os.ReadFile(opts.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failure("[inlinec]"), err)
		return exitBuildFailed
	}

	lang, err := languageFor(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failure("[inlinec]"), err)
		return exitBuildFailed
	}

	runOpts := []inlinec.Option{inlinec.WithVerbose(opts.verbose)}
	project, err := loadProject(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failure("[inlinec]"), err)
		return exitBuildFailed
	}
	if project != nil {
		runOpts = append(runOpts, inlinec.WithProject(project))
	}
	if opts.timeout > 0 {
		runOpts = append(runOpts, inlinec.WithTimeout(opts.timeout))
	}

	a, err := inlinec.Run(context.Background(), lang, string(source), runOpts...)
	if err != nil {
		var cerr *inlinec.CompileError
		if errors.As(err, &cerr) {
			fmt.Fprintf(os.Stderr, "%s build failed\n%s\n", failure("[inlinec]"), strings.TrimRight(cerr.Output, "\n"))
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", failure("[inlinec]"), err)
		}
		return exitBuildFailed
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", failure("[inlinec]"), err)
			os.Exit(exitBuildFailed)
		}
	}()

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "%s running %s\n", status("[inlinec]"), a.Executable())
	}

	res := a.Stream(os.Stdout, os.Stderr)
	if res.Timeout {
		fmt.Fprintf(os.Stderr, "%s timed out after %s\n", failure("[inlinec]"), opts.timeout)
		return exitTimeout
	}
	if sig, ok := signaled(res); ok {
		fmt.Fprintf(os.Stderr, "%s killed by signal: %v\n", failure("[inlinec]"), sig)
		return exitSignalBase + int(sig)
	}
	if res.ExitCode != 0 {
		fmt.Fprintf(os.Stderr, "%s exit status %d\n", failure("[inlinec]"), res.ExitCode)
	} else if opts.verbose {
		fmt.Fprintf(os.Stderr, "%s ok\n", status("[inlinec]"))
	}
	return res.ExitCode
}

// signaled reports the signal that terminated the program, if any.
func signaled(res *icmd.Result) (syscall.Signal, bool) {
	if res.Cmd == nil || res.Cmd.ProcessState == nil {
		return 0, false
	}
	ws, ok := res.Cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return ws.Signal(), true
}

func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{}
	for i := 1; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-x":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-x requires a language")
			}
			i++
			opts.lang = args[i]
		case "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--config requires a file")
			}
			i++
			opts.configPath = args[i]
		case "--timeout":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--timeout requires a duration")
			}
			i++
			d, err := time.ParseDuration(args[i])
			if err != nil {
				return nil, fmt.Errorf("--timeout: %w", err)
			}
			opts.timeout = d
		case "-v", "--verbose":
			opts.verbose = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option %q", arg)
			}
			if opts.path != "" {
				return nil, fmt.Errorf("only one file may be given")
			}
			opts.path = arg
		}
	}
	if opts.path == "" {
		return nil, fmt.Errorf("no file given")
	}
	return opts, nil
}

func languageFor(opts *cliOptions) (inlinec.Language, error) {
	if opts.lang != "" {
		return toolchain.ParseLanguage(opts.lang)
	}
	switch strings.ToLower(filepath.Ext(opts.path)) {
	case ".cpp", ".cc", ".cxx", ".c++":
		return inlinec.LangCxx, nil
	}
	return inlinec.LangC, nil
}

func loadProject(opts *cliOptions) (*inlinec.Project, error) {
	path := opts.configPath
	if path == "" {
		found, err := inlinec.FindProject(filepath.Dir(opts.path))
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, nil
		}
		path = found
	}
	return inlinec.LoadProject(path)
}
