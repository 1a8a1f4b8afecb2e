// Package headers repairs header trees checked out without symbolic link
// support.
//
// On such checkouts a symlinked header is materialized as a plain file whose
// only content is the relative path of its target. The native compiler
// would try to parse that path as C. Fixer finds those files, starting from
// the include directories and from the headers a snippet includes, and
// replaces each with its target's content.
package headers

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/funvibe/inlinec/internal/config"
)

var includeRe = regexp.MustCompile(`#[ \t]*include[ \t]*"([^"]+)"`)

// Includes returns the targets of every quoted #include in text, in order.
func Includes(text string) []string {
	var out []string
	for _, m := range includeRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// Report lists what a Fix call touched.
type Report struct {
	// Visited holds every header read, in traversal order.
	Visited []string

	// Rewritten holds the headers that were replaced with their target.
	Rewritten []string
}

// Fixer rewrites link-stand-in headers in place.
type Fixer struct {
	FS     afero.Fs
	Logger *slog.Logger

	visited map[string]bool
	report  *Report
}

// NewFixer creates a Fixer on fs. A nil logger discards output.
func NewFixer(fs afero.Fs, logger *slog.Logger) *Fixer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fixer{FS: fs, Logger: logger}
}

// Fix walks every header in each of roots, then every header program
// includes (resolved against the first root), following #include chains.
// Any filesystem error aborts the walk.
func (f *Fixer) Fix(roots []string, program string) (*Report, error) {
	f.visited = make(map[string]bool)
	f.report = &Report{}
	defer func() { f.visited = nil }()

	f.Logger.Debug("fixing headers", "roots", roots)

	for _, root := range roots {
		entries, err := afero.ReadDir(f.FS, root)
		if err != nil {
			return nil, fmt.Errorf("listing include dir %s: %w", root, err)
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() || !config.IsHeader(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(root, e.Name()))
		}
		if err := f.walk(paths); err != nil {
			return nil, err
		}
	}

	if len(roots) == 0 {
		return f.report, nil
	}

	includes := Includes(program)
	f.Logger.Debug("program includes", "targets", includes)
	paths := make([]string, 0, len(includes))
	for _, inc := range includes {
		paths = append(paths, filepath.Join(roots[0], inc))
	}
	if err := f.walk(paths); err != nil {
		return nil, err
	}

	return f.report, nil
}

func (f *Fixer) walk(paths []string) error {
	for _, path := range paths {
		key := canonical(path)
		if f.visited[key] {
			continue
		}
		f.visited[key] = true
		f.report.Visited = append(f.report.Visited, path)

		data, err := afero.ReadFile(f.FS, path)
		if err != nil {
			return fmt.Errorf("reading header %s: %w", path, err)
		}
		content := string(data)
		dir := filepath.Dir(path)

		target, ok := f.linkTarget(path, content)
		if ok {
			resolved, err := afero.ReadFile(f.FS, target)
			if err != nil {
				return fmt.Errorf("reading link target %s of %s: %w", target, path, err)
			}
			if err := afero.WriteFile(f.FS, path, resolved, 0o644); err != nil {
				return fmt.Errorf("rewriting header %s: %w", path, err)
			}
			f.Logger.Debug("replaced link stand-in", "header", path, "target", target)
			f.report.Rewritten = append(f.report.Rewritten, path)
			content = string(resolved)
		}

		var next []string
		for _, inc := range Includes(content) {
			next = append(next, filepath.Join(dir, inc))
		}
		if len(next) > 0 {
			f.Logger.Debug("following includes", "header", path, "targets", next)
		}
		if err := f.walk(next); err != nil {
			return err
		}
	}
	return nil
}

// linkTarget reports whether content is a relative path naming another
// regular file next to header.
func (f *Fixer) linkTarget(header, content string) (string, bool) {
	name := strings.TrimSpace(content)
	if name == "" || strings.ContainsAny(name, "\n\x00") || filepath.IsAbs(name) {
		return "", false
	}
	target := filepath.Join(filepath.Dir(header), name)
	if canonical(target) == canonical(header) {
		return "", false
	}
	info, err := f.FS.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return target, true
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
