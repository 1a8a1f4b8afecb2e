package inlinec

import (
	"context"
	"testing"
)

// C compiles program as C for the duration of t. Build errors fail the
// test immediately, and the artifacts are removed when t finishes.
func C(t testing.TB, program string, opts ...Option) *Assert {
	t.Helper()
	return mustRun(t, LangC, program, opts...)
}

// Cxx is C for C++ snippets.
func Cxx(t testing.TB, program string, opts ...Option) *Assert {
	t.Helper()
	return mustRun(t, LangCxx, program, opts...)
}

func mustRun(t testing.TB, lang Language, program string, opts ...Option) *Assert {
	t.Helper()
	a, err := Run(context.Background(), lang, program, opts...)
	if err != nil {
		t.Fatalf("building %s snippet: %v", lang, err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Fatalf("cleaning up %s snippet: %v", lang, err)
		}
	})
	return a
}
