// Package vm is the code environment for compiled draw commands.
//
// Instead of synthesizing source text at runtime, a command is planned
// once at construction time as an ordered list of micro-operations and
// replayed by a tight interpreter on every invocation. The environment
// assembles the plan: identity-memoized links to external objects,
// appendable statement blocks, entry/exit scope pairs with save/restore
// semantics, conditionals, and named procedures.
//
// Two plans assembled from structurally identical dependency shapes
// behave identically, differing only in which concrete values are linked.
package vm

import "reflect"

// Frame is the per-invocation execution state threaded through every op.
// The interpreter stops at the first op that sets Err.
type Frame struct {
	// This is the command's own mutable state record.
	This any

	// Context is the ambient evaluation context.
	Context any

	// Props is the per-invocation property record, nil for a bare call.
	Props any

	// BatchID is the index within a batch or scoped iteration.
	BatchID int

	// Locals holds scope-saved snapshots and scratch values. Allocated
	// lazily by Program.Run to the environment's local count.
	Locals []any

	// Err aborts the current invocation when set. State already applied
	// by earlier ops is not rolled back.
	Err error
}

// Op is a single micro-operation of a compiled plan.
type Op interface {
	Exec(f *Frame)
}

// OpFunc adapts a closure to Op.
type OpFunc func(*Frame)

// Exec implements Op.
func (fn OpFunc) Exec(f *Frame) { fn(f) }

// Ref is a stable reference to an externally supplied object, created by
// Env.Link. Ops capture the Ref rather than the object so that linking is
// observable and memoized.
type Ref struct {
	Value any
}

// Block is an appendable op sequence.
type Block struct {
	ops []Op
}

// Emit appends an op to the block.
func (b *Block) Emit(op Op) { b.ops = append(b.ops, op) }

// EmitFunc appends a closure op to the block.
func (b *Block) EmitFunc(fn func(*Frame)) { b.Emit(OpFunc(fn)) }

// Len reports the number of ops in the block.
func (b *Block) Len() int { return len(b.ops) }

// Run executes the block against a frame.
func (b *Block) Run(f *Frame) {
	for _, op := range b.ops {
		op.Exec(f)
		if f.Err != nil {
			return
		}
	}
}

// Cond is an if/then/else op.
type Cond struct {
	Pred func(*Frame) bool
	Then Block
	Else Block
}

// Exec implements Op.
func (c *Cond) Exec(f *Frame) {
	if c.Pred(f) {
		c.Then.Run(f)
	} else {
		c.Else.Run(f)
	}
}

// Scope is an entry/exit block pair implementing push/pop semantics.
// Save captures a value into a frame-local slot on entry and restores it
// on exit; Set is save plus assignment. Snapshots live in the frame, not
// in shared storage, so nested scopes unwind correctly by construction.
type Scope struct {
	Enter Block
	Leave Block

	env *Env
}

// Save snapshots a field on entry and restores it on exit.
func (s *Scope) Save(get func(*Frame) any, set func(*Frame, any)) {
	slot := s.env.allocLocal()
	s.Enter.EmitFunc(func(f *Frame) { f.Locals[slot] = get(f) })
	s.Leave.EmitFunc(func(f *Frame) { set(f, f.Locals[slot]) })
}

// Set snapshots a field, then assigns it a new value computed per frame.
func (s *Scope) Set(get func(*Frame) any, set func(*Frame, any), value func(*Frame) any) {
	s.Save(get, set)
	s.Enter.EmitFunc(func(f *Frame) { set(f, value(f)) })
}

// Env assembles a command plan.
type Env struct {
	locals int
	linked map[any]*Ref
	others []*Ref
	procs  map[string]*Block
}

// New creates an empty environment.
func New() *Env {
	return &Env{
		linked: make(map[any]*Ref),
		procs:  make(map[string]*Block),
	}
}

// Link returns a stable reference for an external object. Linking the
// same comparable object twice yields the same Ref; values that cannot be
// compared (slices, maps, funcs) always get a fresh slot.
func (e *Env) Link(v any) *Ref {
	if v != nil && reflect.TypeOf(v).Comparable() {
		if r, ok := e.linked[v]; ok {
			return r
		}
		r := &Ref{Value: v}
		e.linked[v] = r
		return r
	}
	r := &Ref{Value: v}
	e.others = append(e.others, r)
	return r
}

// LinkCount reports how many distinct references have been linked.
func (e *Env) LinkCount() int { return len(e.linked) + len(e.others) }

func (e *Env) allocLocal() int {
	slot := e.locals
	e.locals++
	return slot
}

// Block returns a fresh appendable block.
func (e *Env) Block() *Block { return &Block{} }

// ScopePair returns a fresh entry/exit scope.
func (e *Env) ScopePair() *Scope { return &Scope{env: e} }

// Cond returns a fresh conditional builder.
func (e *Env) Cond(pred func(*Frame) bool) *Cond { return &Cond{Pred: pred} }

// BindProc registers an externally built block (a scope's Enter or
// Leave, typically) as the named procedure.
func (e *Env) BindProc(name string, b *Block) { e.procs[name] = b }

// Proc declares (or returns) the named procedure's body block.
func (e *Env) Proc(name string) *Block {
	b, ok := e.procs[name]
	if !ok {
		b = &Block{}
		e.procs[name] = b
	}
	return b
}

// Program is a compiled set of procedures sharing one local layout.
type Program struct {
	locals int
	procs  map[string]*Block
}

// Compile freezes the environment into callable procedures. The
// environment may keep being extended afterwards only for procedures that
// have not run yet; in practice command construction finishes all blocks
// before the first invocation.
func (e *Env) Compile() *Program {
	return &Program{locals: e.locals, procs: e.procs}
}

// Run executes the named procedure against a frame, allocating the
// frame's local slots if needed. Unknown names are a no-op.
func (p *Program) Run(name string, f *Frame) error {
	b, ok := p.procs[name]
	if !ok {
		return nil
	}
	if len(f.Locals) < p.locals {
		f.Locals = make([]any, p.locals)
	}
	b.Run(f)
	return f.Err
}
