package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DirectiveMarker starts an embedded configuration line inside a snippet.
const DirectiveMarker = "#inline_c_rs"

// EnvPrefix marks process environment variables that seed the
// configuration map. The prefix is stripped on insertion.
const EnvPrefix = "INLINE_C_RS_"

// TempPrefix is prepended to every staged source file and output executable.
const TempPrefix = "inline-c-rs-"

// Flag variable names
const (
	CFlagsVar   = "CFLAGS"
	CPPFlagsVar = "CPPFLAGS"
	CXXFlagsVar = "CXXFLAGS"
	LDFlagsVar  = "LDFLAGS"
)

// Explicit link configuration. These take precedence over the positional
// LDFLAGS tokens.
const (
	LinkPathVar    = "LINK_PATH"
	LinkLibraryVar = "LINK_LIBRARY"
)

// Compiler overrides
const (
	CCVar  = "CC"
	CXXVar = "CXX"
)

// IncludeMarker prefixes include-path tokens in CFLAGS.
const IncludeMarker = "-I"

// HeaderExtensions are all recognized header file extensions
var HeaderExtensions = []string{".h", ".hh", ".hpp", ".hxx"}

// IsHeader checks if a file name has a recognized header extension
func IsHeader(name string) bool {
	ext := filepath.Ext(name)
	for _, h := range HeaderExtensions {
		if ext == h {
			return true
		}
	}
	return false
}

// ProjectFileNames are the file names searched for by FindProject, in order.
var ProjectFileNames = []string{"inlinec.yaml", "inlinec.yml"}

// Env is a snapshot of environment variables. It is passed around
// explicitly so nothing below the public entry point reads process state.
type Env map[string]string

// ParseEnv builds an Env from KEY=VALUE entries as returned by os.Environ.
// Later entries win. Entries without '=' are ignored.
func ParseEnv(environ []string) Env {
	env := make(Env, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Environ snapshots the current process environment.
func Environ() Env {
	return ParseEnv(os.Environ())
}

// Lookup returns the value of key and whether it was set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// WithPrefix returns the entries whose name starts with prefix, with the
// prefix removed from the key.
func (e Env) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range e {
		if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
			out[name] = v
		}
	}
	return out
}
