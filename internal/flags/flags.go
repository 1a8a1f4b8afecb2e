// Package flags derives compiler and linker arguments from the merged
// configuration map.
package flags

import (
	"strings"

	"github.com/funvibe/inlinec/internal/config"
)

// Groups holds the four classic flag variables, whitespace-tokenized.
type Groups struct {
	CFlags   []string
	CPPFlags []string
	CXXFlags []string
	LDFlags  []string
}

// Resolve looks every flag variable up in vars, then in ambient.
// A missing variable yields an empty group.
func Resolve(vars map[string]string, ambient config.Env) Groups {
	return Groups{
		CFlags:   lookup(vars, ambient, config.CFlagsVar),
		CPPFlags: lookup(vars, ambient, config.CPPFlagsVar),
		CXXFlags: lookup(vars, ambient, config.CXXFlagsVar),
		LDFlags:  lookup(vars, ambient, config.LDFlagsVar),
	}
}

func lookup(vars map[string]string, ambient config.Env, name string) []string {
	if v, ok := vars[name]; ok {
		return strings.Fields(v)
	}
	if v, ok := ambient.Lookup(name); ok {
		return strings.Fields(v)
	}
	return nil
}

// IncludePaths returns the include directories named in CFLAGS, in order.
// Both "-Idir" and "-I dir" spellings are recognized.
func (g Groups) IncludePaths() []string {
	var paths []string
	for i := 0; i < len(g.CFlags); i++ {
		tok := g.CFlags[i]
		if !strings.HasPrefix(tok, config.IncludeMarker) {
			continue
		}
		dir := strings.TrimPrefix(tok, config.IncludeMarker)
		if dir == "" {
			if i+1 >= len(g.CFlags) {
				break
			}
			i++
			dir = g.CFlags[i]
		}
		paths = append(paths, dir)
	}
	return paths
}
