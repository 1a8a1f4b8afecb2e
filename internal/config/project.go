// Package config holds the constants shared by the compile-and-run
// pipeline and the optional inlinec.yaml project file.
//
// The project file supplies defaults for every snippet compiled below its
// directory:
//   - which compiler to use for C and C++
//   - configuration entries with lower priority than INLINE_C_RS_* variables
//   - an explicit link path and library
//   - a timeout and a directory for temporary artifacts
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Project represents a parsed inlinec.yaml.
type Project struct {
	// Compiler overrides the host default compiler per language.
	Compiler Compiler `yaml:"compiler,omitempty"`

	// Env seeds the configuration map. Entries here lose against
	// INLINE_C_RS_* process variables and in-snippet directives.
	Env map[string]string `yaml:"env,omitempty"`

	// Link is the explicit link configuration.
	Link Link `yaml:"link,omitempty"`

	// Timeout bounds both the compiler and the compiled program
	// (e.g. "30s"). Empty means no timeout.
	Timeout string `yaml:"timeout,omitempty"`

	// TempDir is where sources and executables are staged. Relative paths
	// resolve against the project file's directory.
	TempDir string `yaml:"tmpdir,omitempty"`

	// dir is the directory containing the project file.
	dir string

	timeout time.Duration
}

// Compiler names the compiler executables.
type Compiler struct {
	C   string `yaml:"c,omitempty"`
	Cxx string `yaml:"cxx,omitempty"`
}

// Link describes the library every snippet links against.
type Link struct {
	// Path is the library search directory. Relative paths resolve against
	// the project file's directory.
	Path string `yaml:"path,omitempty"`

	// Library is the library to link (e.g. "libwasmer.so" or "wasmer.dll").
	Library string `yaml:"library,omitempty"`
}

// LoadProject reads and parses a project file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseProject(data, path)
}

// ParseProject parses project file content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.dir = filepath.Dir(path)
	if err := p.validate(path); err != nil {
		return nil, err
	}
	p.resolvePaths()
	return &p, nil
}

// FindProject searches for inlinec.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the file and nil error if found,
// or empty string and nil error if not found.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ProjectFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (p *Project) validate(path string) error {
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return fmt.Errorf("%s: timeout %q: %w", path, p.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s: timeout %q must be positive", path, p.Timeout)
		}
		p.timeout = d
	}

	if (p.Link.Path == "") != (p.Link.Library == "") {
		return fmt.Errorf("%s: link: path and library must be set together", path)
	}

	for k := range p.Env {
		if k == "" {
			return fmt.Errorf("%s: env: empty variable name", path)
		}
	}

	return nil
}

func (p *Project) resolvePaths() {
	if p.TempDir != "" && !filepath.IsAbs(p.TempDir) {
		p.TempDir = filepath.Join(p.dir, p.TempDir)
	}
	if p.Link.Path != "" && !filepath.IsAbs(p.Link.Path) {
		p.Link.Path = filepath.Join(p.dir, p.Link.Path)
	}
}

// Dir returns the directory containing the project file.
func (p *Project) Dir() string {
	return p.dir
}

// TimeoutDuration returns the parsed timeout, or zero when unset.
func (p *Project) TimeoutDuration() time.Duration {
	if p == nil {
		return 0
	}
	return p.timeout
}

// CompilerFor returns the configured compiler for C (cxx == false) or C++.
func (p *Project) CompilerFor(cxx bool) string {
	if p == nil {
		return ""
	}
	if cxx {
		return p.Compiler.Cxx
	}
	return p.Compiler.C
}

// Vars returns the configuration map entries contributed by the project
// file: the env section plus LINK_PATH/LINK_LIBRARY from the link section.
func (p *Project) Vars() map[string]string {
	vars := make(map[string]string)
	if p == nil {
		return vars
	}
	for k, v := range p.Env {
		vars[k] = v
	}
	if p.Link.Path != "" {
		vars[LinkPathVar] = p.Link.Path
		vars[LinkLibraryVar] = p.Link.Library
	}
	return vars
}
