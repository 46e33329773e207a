//go:build !regldebug

package regl

func debugAssert(bool, string, ...any) {}
