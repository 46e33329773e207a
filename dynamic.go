package regl

import (
	"github.com/plotly/regl-go/internal/vm"
)

// Dynamic marks a command-specification value that is resolved at
// invocation time instead of construction time. The concrete kinds are
// property references (Prop), ambient context references (Context),
// command-record references (This), and the function forms (ThisFunc,
// ContextFunc, DynamicFunc). A plain Go value anywhere a Dynamic is
// accepted is a constant.
type Dynamic interface {
	dependencyFlags() (thisDep, contextDep, propDep bool)
	produce(f *vm.Frame) any
}

type propRef struct{ path string }

// Prop references a field of the per-invocation props record by dotted
// path. Props may be a map[string]any or a struct; see resolvePath.
func Prop(path string) Dynamic { return propRef{path: path} }

func (propRef) dependencyFlags() (bool, bool, bool) { return false, false, true }

func (p propRef) produce(f *vm.Frame) any { return resolvePath(f.Props, p.path) }

type contextRef struct{ path string }

// Context references an ambient context value by dotted path: a built-in
// name (tick, time, viewportWidth, ...) or a user entry.
func Context(path string) Dynamic { return contextRef{path: path} }

func (contextRef) dependencyFlags() (bool, bool, bool) { return false, true, false }

func (c contextRef) produce(f *vm.Frame) any { return f.Context.(*Env).Value(c.path) }

type thisRef struct{ path string }

// This references a field of the record attached to the command via
// CommandSpec.This, by dotted path.
func This(path string) Dynamic { return thisRef{path: path} }

func (thisRef) dependencyFlags() (bool, bool, bool) { return true, false, false }

func (t thisRef) produce(f *vm.Frame) any {
	return resolvePath(f.This.(*Command).thisRecord, t.path)
}

type thisFunc struct{ fn func() any }

// ThisFunc wraps a niladic function: the value depends only on the
// command itself and may be hoisted out of batch loops.
func ThisFunc(fn func() any) Dynamic { return thisFunc{fn: fn} }

func (thisFunc) dependencyFlags() (bool, bool, bool) { return true, false, false }

func (t thisFunc) produce(*vm.Frame) any { return t.fn() }

type contextFunc struct{ fn func(env *Env) any }

// ContextFunc wraps a function of the ambient context: re-evaluated when
// the context may have changed, but invariant across a props batch.
func ContextFunc(fn func(env *Env) any) Dynamic { return contextFunc{fn: fn} }

func (contextFunc) dependencyFlags() (bool, bool, bool) { return true, true, false }

func (c contextFunc) produce(f *vm.Frame) any { return c.fn(f.Context.(*Env)) }

type dynamicFunc struct{ fn func(env *Env, props any, batchID int) any }

// DynamicFunc wraps a fully dynamic function of (context, props, batch
// index): re-evaluated once per invocation or batch item.
func DynamicFunc(fn func(env *Env, props any, batchID int) any) Dynamic {
	return dynamicFunc{fn: fn}
}

func (dynamicFunc) dependencyFlags() (bool, bool, bool) { return true, true, true }

func (d dynamicFunc) produce(f *vm.Frame) any {
	return d.fn(f.Context.(*Env), f.Props, f.BatchID)
}

// declaration is the compile-time descriptor of one command field: its
// dependency class and the logic producing its value. Created once per
// field at command construction; immutable afterwards.
type declaration struct {
	thisDep    bool
	contextDep bool
	propDep    bool
	value      func(f *vm.Frame) any
}

// isStatic reports whether the field has no runtime dependencies.
func (d *declaration) isStatic() bool {
	return !d.thisDep && !d.contextDep && !d.propDep
}

// static wraps a constant into a declaration.
func staticDecl(v any) declaration {
	return declaration{value: func(*vm.Frame) any { return v }}
}

// classify turns a raw specification value into a declaration.
// Classification is purely structural: Dynamic kinds set their flags, a
// []any of values takes the union of its children's flags (producing a
// fresh []any per evaluation when any child is dynamic), and everything
// else is a constant. Runs once per field; no side effects.
func classify(v any) declaration {
	switch t := v.(type) {
	case Dynamic:
		this, ctx, prop := t.dependencyFlags()
		return declaration{thisDep: this, contextDep: ctx, propDep: prop, value: t.produce}
	case []any:
		children := make([]declaration, len(t))
		d := declaration{}
		dynamic := false
		for i, c := range t {
			children[i] = classify(c)
			d.thisDep = d.thisDep || children[i].thisDep
			d.contextDep = d.contextDep || children[i].contextDep
			d.propDep = d.propDep || children[i].propDep
			dynamic = dynamic || !children[i].isStatic()
		}
		if !dynamic {
			return staticDecl(t)
		}
		d.value = func(f *vm.Frame) any {
			out := make([]any, len(children))
			for i := range children {
				out[i] = children[i].value(f)
			}
			return out
		}
		return d
	default:
		return staticDecl(v)
	}
}
