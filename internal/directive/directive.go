// Package directive extracts embedded configuration from snippet text.
//
// A directive is a line of the form
//
//	#inline_c_rs CFLAGS: "-I/opt/include"
//
// Directives configure the snippet they live in and never reach the
// compiler.
package directive

import (
	"regexp"
	"strings"

	"github.com/funvibe/inlinec/internal/config"
)

var directiveRe = regexp.MustCompile(
	regexp.QuoteMeta(config.DirectiveMarker) +
		` (?P<name>[^:]+):\s*"(?P<value>[^"]+)"\r?\n`)

// Result is a snippet with its directives removed, plus the merged
// configuration map.
type Result struct {
	// Program is the text handed to the compiler.
	Program string

	// Vars maps configuration names to values.
	Vars map[string]string
}

// Extract collects configuration for program.
//
// The map is seeded from base (lowest priority), then from every env
// entry named INLINE_C_RS_<NAME>, then from the directives in text order.
// Later writes win.
func Extract(program string, env config.Env, base map[string]string) Result {
	vars := make(map[string]string, len(base))
	for k, v := range base {
		vars[k] = v
	}
	for k, v := range env.WithPrefix(config.EnvPrefix) {
		vars[k] = v
	}

	nameIdx := directiveRe.SubexpIndex("name")
	valueIdx := directiveRe.SubexpIndex("value")
	for _, m := range directiveRe.FindAllStringSubmatch(program, -1) {
		vars[strings.TrimSpace(m[nameIdx])] = m[valueIdx]
	}

	return Result{
		Program: directiveRe.ReplaceAllLiteralString(program, ""),
		Vars:    vars,
	}
}
