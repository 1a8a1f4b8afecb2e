package inlinec

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/funvibe/inlinec/internal/config"
	"github.com/funvibe/inlinec/internal/toolchain"
)

// Project is a parsed inlinec.yaml.
type Project = config.Project

// LoadProject reads an inlinec.yaml file.
func LoadProject(path string) (*Project, error) {
	return config.LoadProject(path)
}

// FindProject returns the nearest inlinec.yaml at or above dir, or "".
func FindProject(dir string) (string, error) {
	return config.FindProject(dir)
}

// Option configures Run.
type Option func(*options)

type options struct {
	environ []string
	tempDir string
	fs      afero.Fs
	logger  *slog.Logger
	project *config.Project
	timeout time.Duration
	host    toolchain.Host
}

func newOptions(opts []Option) *options {
	o := &options{
		fs:   afero.NewOsFs(),
		host: toolchain.CurrentHost(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.environ == nil {
		o.environ = os.Environ()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.tempDir == "" && o.project != nil {
		o.tempDir = o.project.TempDir
	}
	if o.timeout == 0 {
		o.timeout = o.project.TimeoutDuration()
	}
	return o
}

// WithEnviron replaces the process environment as the source of
// INLINE_C_RS_* entries, flag variables and compiler overrides. It is also
// the base environment of the compiler and of the compiled program.
func WithEnviron(environ []string) Option {
	return func(o *options) { o.environ = environ }
}

// WithTempDir sets where sources and executables are staged.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithFs sets the filesystem used for staging, header fixing and cleanup.
// It must be backed by the OS filesystem for the compiler to work.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLogger sets the logger for pipeline tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithVerbose logs every pipeline step to stderr.
func WithVerbose(v bool) Option {
	return func(o *options) {
		if v {
			o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})).
				With("component", "inlinec")
		}
	}
}

// WithProject applies defaults from a project file.
func WithProject(p *Project) Option {
	return func(o *options) { o.project = p }
}

// WithTimeout bounds the compiler and every run of the compiled program.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}
