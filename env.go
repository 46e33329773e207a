package regl

import (
	"reflect"
	"strings"
	"unicode"
)

// Env is the ambient evaluation context passed to dynamic value
// functions and scope callbacks. Built-in fields track the frame clock
// and the sizes of the current render target; user entries come from
// WithContext and from command Context maps applied by scopes.
type Env struct {
	// Tick counts completed Poll calls.
	Tick int

	// Time is seconds since the instance was created, sampled at the
	// last Poll.
	Time float64

	// ViewportWidth and ViewportHeight are the dimensions of the
	// viewport applied by the innermost active command.
	ViewportWidth  int
	ViewportHeight int

	// FramebufferWidth and FramebufferHeight are the dimensions of the
	// currently bound framebuffer (the drawing buffer when none is
	// bound).
	FramebufferWidth  int
	FramebufferHeight int

	// DrawingBufferWidth and DrawingBufferHeight are the dimensions of
	// the default framebuffer.
	DrawingBufferWidth  int
	DrawingBufferHeight int

	// PixelRatio is the device pixel ratio configured at creation.
	PixelRatio float64

	user map[string]any
}

// Value resolves a context reference path. Built-in names take priority
// over user entries; dotted paths descend into user values.
func (e *Env) Value(path string) any {
	switch path {
	case "tick":
		return e.Tick
	case "time":
		return e.Time
	case "viewportWidth":
		return e.ViewportWidth
	case "viewportHeight":
		return e.ViewportHeight
	case "framebufferWidth":
		return e.FramebufferWidth
	case "framebufferHeight":
		return e.FramebufferHeight
	case "drawingBufferWidth":
		return e.DrawingBufferWidth
	case "drawingBufferHeight":
		return e.DrawingBufferHeight
	case "pixelRatio":
		return e.PixelRatio
	}
	head, rest, _ := strings.Cut(path, ".")
	v, ok := e.user[head]
	if !ok {
		return nil
	}
	if rest == "" {
		return v
	}
	return resolvePath(v, rest)
}

func (e *Env) setUser(name string, v any) {
	if e.user == nil {
		e.user = make(map[string]any)
	}
	e.user[name] = v
}

func (e *Env) delUser(name string) {
	delete(e.user, name)
}

func (e *Env) getUser(name string) (any, bool) {
	v, ok := e.user[name]
	return v, ok
}

// resolvePath walks a dotted path through maps and exported struct
// fields. Map keys match exactly; struct fields match exactly first,
// then with the first letter upper-cased so that JS-style lowercase
// paths find exported Go fields.
func resolvePath(v any, path string) any {
	for path != "" {
		if v == nil {
			return nil
		}
		var head string
		head, path, _ = strings.Cut(path, ".")
		switch t := v.(type) {
		case map[string]any:
			v = t[head]
		default:
			rv := reflect.ValueOf(v)
			for rv.Kind() == reflect.Pointer {
				if rv.IsNil() {
					return nil
				}
				rv = rv.Elem()
			}
			if rv.Kind() != reflect.Struct {
				return nil
			}
			f := rv.FieldByName(head)
			if !f.IsValid() {
				f = rv.FieldByName(upperFirst(head))
			}
			if !f.IsValid() {
				return nil
			}
			v = f.Interface()
		}
	}
	return v
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
