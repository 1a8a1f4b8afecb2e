package toolchain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// Language selects the compiler front end.
type Language int

const (
	C Language = iota
	Cxx
)

func (l Language) String() string {
	switch l {
	case C:
		return "c"
	case Cxx:
		return "c++"
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// Ext returns the source file extension for l.
func (l Language) Ext() string {
	if l == Cxx {
		return ".cpp"
	}
	return ".c"
}

// ParseLanguage accepts "c", "c++", "cxx" and "cpp".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "c":
		return C, nil
	case "c++", "cxx", "cpp":
		return Cxx, nil
	}
	return 0, fmt.Errorf("unknown language %q", s)
}

// Family is a compiler ABI family. The set is closed; adding a family means
// adding a case to every switch in this package.
type Family int

const (
	Unknown Family = iota
	GNU
	Clang
	MSVC
	ClangCL
)

func (f Family) String() string {
	switch f {
	case GNU:
		return "gnu"
	case Clang:
		return "clang"
	case MSVC:
		return "msvc"
	case ClangCL:
		return "clang-cl"
	}
	return "unknown"
}

// MSVCStyle reports whether f takes cl.exe style arguments.
func (f Family) MSVCStyle() bool {
	return f == MSVC || f == ClangCL
}

// ObjectSuffix is the intermediate object extension the family leaves next
// to its output.
func (f Family) ObjectSuffix() string {
	if f.MSVCStyle() {
		return ".obj"
	}
	return ".o"
}

var gnuName = regexp.MustCompile(`(^|-)(gcc|g\+\+|cc|c\+\+)(-[0-9.]+)?$`)

// DetectFamily classifies a compiler by its executable name.
func DetectFamily(path string) Family {
	base := filepath.Base(path)
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.ToLower(base), ".exe")
	switch {
	case base == "cl":
		return MSVC
	case base == "clang-cl":
		return ClangCL
	case strings.Contains(base, "clang"):
		return Clang
	case gnuName.MatchString(base):
		return GNU
	}
	return Unknown
}

// Host is the platform snippets are compiled for. Only the host itself is
// supported as a target.
type Host struct {
	GOOS   string
	GOARCH string
}

// CurrentHost describes the running platform.
func CurrentHost() Host {
	return Host{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
}

func (h Host) String() string {
	return h.GOOS + "/" + h.GOARCH
}

// Supports reports whether f produces native executables for h.
func (h Host) Supports(f Family) bool {
	if h.GOOS == "windows" {
		return f == MSVC || f == ClangCL
	}
	return f == GNU || f == Clang
}

// ExeSuffix is the native executable extension.
func (h Host) ExeSuffix() string {
	if h.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// DefaultCompiler is the compiler used when nothing is configured.
func (h Host) DefaultCompiler(lang Language) string {
	switch h.GOOS {
	case "windows":
		return "cl"
	case "darwin", "freebsd", "openbsd":
		if lang == Cxx {
			return "clang++"
		}
		return "clang"
	}
	if lang == Cxx {
		return "c++"
	}
	return "cc"
}
