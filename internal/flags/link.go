package flags

import (
	"fmt"
	"strings"

	"github.com/funvibe/inlinec/internal/config"
)

// Tokens named by MissingTokenError.
const (
	TokenLinkPath    = "link path"
	TokenLinkLibrary = "link library"
)

// MissingTokenError reports an incomplete link configuration.
type MissingTokenError struct {
	// Token is TokenLinkPath or TokenLinkLibrary.
	Token string
}

func (e *MissingTokenError) Error() string {
	switch e.Token {
	case TokenLinkPath:
		return fmt.Sprintf("link configuration: missing %s (set %s or the first %s token)",
			e.Token, config.LinkPathVar, config.LDFlagsVar)
	case TokenLinkLibrary:
		return fmt.Sprintf("link configuration: missing %s (set %s or the second %s token)",
			e.Token, config.LinkLibraryVar, config.LDFlagsVar)
	}
	return "link configuration: missing " + e.Token
}

// Link is the library a snippet is linked against.
type Link struct {
	// Path is the library search directory.
	Path string

	// Library is the library name or file.
	Library string

	// Extra holds link flags passed through unchanged.
	Extra []string
}

// Requested reports whether any link configuration was supplied.
func (l Link) Requested() bool {
	return l.Path != "" || l.Library != "" || len(l.Extra) > 0
}

// ImportLibrary returns the name handed to the linker. MSVC links against
// the import library that sits next to a DLL, named "<dll>.lib".
func (l Link) ImportLibrary(msvc bool) string {
	if msvc && strings.HasSuffix(l.Library, ".dll") {
		return l.Library + ".lib"
	}
	return l.Library
}

// ResolveLink builds the link configuration.
//
// LINK_PATH and LINK_LIBRARY in vars win; every LDFLAGS token is then
// passed through as Extra. Without them, LDFLAGS is read positionally:
// the first token is the search path (decorations such as "-rpath,"
// stripped), the second the library, the rest Extra.
//
// No configuration at all is valid and means nothing is linked. Partial
// configuration is a *MissingTokenError.
func ResolveLink(vars map[string]string, g Groups) (Link, error) {
	var l Link

	path, hasPath := vars[config.LinkPathVar]
	lib, hasLib := vars[config.LinkLibraryVar]
	if hasPath || hasLib {
		l.Path = strings.TrimSpace(path)
		l.Library = strings.TrimSpace(lib)
		l.Extra = g.LDFlags
	} else if len(g.LDFlags) > 0 {
		l.Path = stripDecoration(g.LDFlags[0])
		if len(g.LDFlags) > 1 {
			l.Library = g.LDFlags[1]
		}
		if len(g.LDFlags) > 2 {
			l.Extra = g.LDFlags[2:]
		}
	}

	if !l.Requested() {
		return Link{}, nil
	}
	if l.Path == "" {
		return Link{}, &MissingTokenError{Token: TokenLinkPath}
	}
	if l.Library == "" {
		return Link{}, &MissingTokenError{Token: TokenLinkLibrary}
	}
	return l, nil
}

func stripDecoration(tok string) string {
	tok = strings.TrimPrefix(tok, "-Wl,")
	tok = strings.TrimPrefix(tok, "-rpath,")
	tok = strings.TrimPrefix(tok, "-L")
	return tok
}
