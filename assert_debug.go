//go:build regldebug

package regl

import "fmt"

// debugAssert panics on violated invariants. Compiled in only under the
// regldebug build tag; release builds keep the hot path branch-free.
func debugAssert(cond bool, format string, args ...any) {
	if !cond {
		panic("regl: assertion failed: " + fmt.Sprintf(format, args...))
	}
}
