package regl

import (
	"errors"
	"fmt"
	"time"

	"github.com/plotly/regl-go/gl"
	"github.com/plotly/regl-go/internal/vm"
)

// body is the compiled plan of one command for one concrete program:
// a hoistable block whose ops do not depend on per-item props, and the
// per-item block that re-evaluates props-dependent state and dispatches
// the draw. Draw runs both once; Batch runs hoist once and item per
// element.
type body struct {
	hoist vm.Block
	item  vm.Block
}

// scopeDrawState is the draw-parameter inheritance record scopes push
// for nested commands.
type scopeDrawState struct {
	elements    *Elements
	hasElements bool

	primitive    gl.Enum
	hasPrimitive bool

	count, offset, instances          int
	hasCount, hasOffset, hasInstances bool
}

// Command is a compiled rendering command. The specification is parsed
// and planned once; Draw, Batch and Scope replay the plan.
//
// Commands belong to the instance's goroutine, like everything else
// reached from a Regl.
type Command struct {
	r      *Regl
	name   string
	parsed *parsedCommand

	vmenv *vm.Env
	plan  *vm.Program

	prog   *program
	bodies map[*program]*body

	autoVAO *VAO

	thisRecord any

	// per-invocation scratch, reset by cleanup
	streams []*Buffer
	bound   []*Texture

	stats     Stats
	destroyed bool
}

// Command compiles a specification. All structural errors surface here
// as *CommandError; a returned command never fails for structural
// reasons at invocation time.
func (r *Regl) Command(spec CommandSpec) (*Command, error) {
	if r.destroyed {
		return nil, ErrDestroyed
	}
	if r.lost {
		return nil, ErrContextLost
	}
	pc, err := r.parseCommand(&spec)
	if err != nil {
		return nil, err
	}
	c := &Command{
		r:          r,
		name:       pc.name,
		parsed:     pc,
		vmenv:      vm.New(),
		prog:       pc.prog,
		bodies:     make(map[*program]*body),
		thisRecord: pc.thisRec,
	}
	c.buildScope()
	c.plan = c.vmenv.Compile()
	if c.prog != nil {
		bd, err := c.buildBody(c.prog)
		if err != nil {
			r.shaders.release(c.prog)
			return nil, err
		}
		c.bodies[c.prog] = bd
	}
	r.commands[c] = struct{}{}
	Logger().Debug("regl: command compiled",
		"command", c.name,
		"ownedFields", fmt.Sprintf("%027b", pc.owned),
		"links", c.vmenv.LinkCount(),
		"dynamicShader", pc.dynamicShader)
	return c, nil
}

// MustCommand is Command panicking on error, for static specifications
// known to be well-formed.
func (r *Regl) MustCommand(spec CommandSpec) *Command {
	c, err := r.Command(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the command's label.
func (c *Command) Name() string { return c.name }

// Stats returns accumulated profiling counters. GPU time requires timer
// query support and trails by however long results take to arrive.
func (c *Command) Stats() Stats { return c.stats }

// Destroy releases the command's program references and baked bindings.
func (c *Command) Destroy() {
	if c.destroyed {
		Logger().Warn("regl: command destroyed twice", "command", c.name)
		return
	}
	c.destroyed = true
	for prog := range c.bodies {
		c.r.shaders.release(prog)
	}
	if c.prog != nil && c.bodies[c.prog] == nil {
		c.r.shaders.release(c.prog)
	}
	if c.autoVAO != nil {
		c.autoVAO.Destroy()
	}
	delete(c.r.commands, c)
}

func (c *Command) precheck() error {
	if c.destroyed || c.r.destroyed {
		return ErrDestroyed
	}
	if c.r.lost {
		return ErrContextLost
	}
	return nil
}

func (c *Command) profiled(f *vm.Frame) bool {
	on := c.r.opts.profile
	if c.parsed.hasProfile {
		if b, ok := toBool(c.parsed.profile.value(f)); ok {
			on = b
		}
	}
	return on
}

// cleanup returns stream buffers to the pool and releases texture unit
// leases taken during one invocation.
func (c *Command) cleanup() {
	for _, t := range c.bound {
		t.unbind()
	}
	c.bound = c.bound[:0]
	for _, b := range c.streams {
		c.r.buffers.destroyStream(b)
	}
	c.streams = c.streams[:0]
}

// Draw runs the command once. props is the per-invocation property
// record (map[string]any or a struct) for Prop references; nil for
// commands without props.
func (c *Command) Draw(props any) error {
	if err := c.precheck(); err != nil {
		return err
	}
	if !c.parsed.hasShaders {
		return cmdErr(c.name, "vert", "command has no shaders; use Scope")
	}
	f := &vm.Frame{This: c, Context: c.r.env, Props: props}
	prof := c.profiled(f)
	var t0 time.Time
	var timed bool
	if prof {
		timed = c.r.timer.begin(&c.stats)
		t0 = time.Now()
	}
	_, bd, err := c.programBody(f)
	if err == nil {
		bd.hoist.Run(f)
		bd.item.Run(f)
		err = f.Err
	}
	if prof {
		c.stats.CPUTime += time.Since(t0)
		if timed {
			c.r.timer.end()
		}
	}
	c.cleanup()
	return err
}

// Batch runs the command once per props element, hoisting every
// non-props-dependent op out of the loop. Within the loop BatchID is the
// element index.
func (c *Command) Batch(propsList ...any) error {
	if err := c.precheck(); err != nil {
		return err
	}
	if !c.parsed.hasShaders {
		return cmdErr(c.name, "vert", "command has no shaders; use Scope")
	}
	if len(propsList) == 0 {
		return nil
	}
	f := &vm.Frame{This: c, Context: c.r.env}
	prof := c.profiled(f)
	var t0 time.Time
	var timed bool
	if prof {
		timed = c.r.timer.begin(&c.stats)
		t0 = time.Now()
	}
	pc := c.parsed
	shaderPerItem := pc.dynamicShader && (pc.vertDecl.propDep || pc.fragDecl.propDep)
	var err error
	if shaderPerItem {
		for i, props := range propsList {
			f.Props, f.BatchID = props, i
			var bd *body
			if _, bd, err = c.programBody(f); err != nil {
				break
			}
			bd.hoist.Run(f)
			bd.item.Run(f)
			if err = f.Err; err != nil {
				break
			}
		}
	} else {
		var bd *body
		if _, bd, err = c.programBody(f); err == nil {
			bd.hoist.Run(f)
			for i, props := range propsList {
				if f.Err != nil {
					break
				}
				f.Props, f.BatchID = props, i
				bd.item.Run(f)
			}
			err = f.Err
		}
	}
	if prof {
		c.stats.CPUTime += time.Since(t0)
		if timed {
			c.r.timer.end()
		}
	}
	c.cleanup()
	return err
}

// Scope pushes the command's state overrides, context entries and data
// bindings, runs fn, and restores everything it touched. No draw is
// issued; nested commands invoked inside fn inherit the pushed values.
func (c *Command) Scope(props any, fn func(env *Env)) error {
	if err := c.precheck(); err != nil {
		return err
	}
	f := &vm.Frame{This: c, Context: c.r.env, Props: props}
	t0 := time.Now()
	_ = c.plan.Run("scope.enter", f)
	if f.Err == nil && fn != nil {
		fn(c.r.env)
	}
	// Leave must run in full even after an error; every snapshot was
	// taken before the first override ran.
	enterErr := f.Err
	f.Err = nil
	_ = c.plan.Run("scope.leave", f)
	err := enterErr
	if f.Err != nil {
		err = errors.Join(enterErr, f.Err)
	}
	if c.profiled(f) {
		c.stats.CPUTime += time.Since(t0)
	}
	c.stats.Count++
	c.cleanup()
	return err
}

// programBody resolves the concrete program for this invocation and the
// compiled body specialized to it. Dynamic shader pairs memoize bodies
// by program identity, so repeated sources re-run the same plan.
func (c *Command) programBody(f *vm.Frame) (*program, *body, error) {
	prog := c.prog
	if c.parsed.dynamicShader {
		vsrc, err := sourceString(c.parsed.vertDecl.value(f))
		if err != nil {
			return nil, nil, cmdWrap(c.name, "vert", err)
		}
		fsrc, err := sourceString(c.parsed.fragDecl.value(f))
		if err != nil {
			return nil, nil, cmdWrap(c.name, "frag", err)
		}
		p, err := c.r.shaders.get(vsrc, fsrc)
		if err != nil {
			return nil, nil, cmdWrap(c.name, "vert", err)
		}
		if _, seen := c.bodies[p]; seen {
			// get took a fresh reference; one per distinct program is
			// enough.
			c.r.shaders.release(p)
		}
		prog = p
	}
	bd, ok := c.bodies[prog]
	if !ok {
		var err error
		bd, err = c.buildBody(prog)
		if err != nil {
			return nil, nil, err
		}
		c.bodies[prog] = bd
	}
	return prog, bd, nil
}

// buildBody compiles the draw plan for one concrete program.
func (c *Command) buildBody(prog *program) (*body, error) {
	pc := c.parsed
	r := c.r
	b := &body{}

	// A props-dependent render target drags the whole state section into
	// the per-item block: viewport defaults and poll order follow the
	// target.
	fbProp := pc.hasFramebuffer && pc.framebuffer.propDep
	stateBlock := &b.hoist
	if fbProp {
		stateBlock = &b.item
	}
	blockFor := func(propDep bool) *vm.Block {
		if fbProp || propDep {
			return &b.item
		}
		return &b.hoist
	}

	// Render target.
	stateBlock.EmitFunc(func(f *vm.Frame) {
		fbo := r.scopeFBO
		if pc.hasFramebuffer {
			v := pc.framebuffer.value(f)
			if v == nil {
				fbo = nil
			} else {
				t, ok := v.(*Framebuffer)
				if !ok {
					f.Err = cmdErr(c.name, "framebuffer", "want *Framebuffer or nil, got %T", v)
					return
				}
				fbo = t
			}
		}
		var h gl.Framebuffer
		w, ht := r.env.DrawingBufferWidth, r.env.DrawingBufferHeight
		if fbo != nil {
			h = fbo.handle
			w, ht = fbo.width, fbo.height
		}
		r.state.bindFramebuffer(h)
		r.env.FramebufferWidth, r.env.FramebufferHeight = w, ht
	})

	// Diff every register the command does not own.
	stateBlock.EmitFunc(func(f *vm.Frame) {
		r.state.poll(pc.owned)
	})

	// An explicit render target without an explicit viewport covers the
	// whole target.
	if pc.hasFramebuffer && !pc.owned.has(sfViewport) {
		stateBlock.EmitFunc(func(f *vm.Frame) {
			w, h := float64(r.env.FramebufferWidth), float64(r.env.FramebufferHeight)
			box := sv4(0, 0, w, h)
			r.state.applyOwned(sfViewport, box)
			if !pc.owned.has(sfScissorBox) {
				r.state.applyOwned(sfScissorBox, box)
			}
			r.env.ViewportWidth, r.env.ViewportHeight = int(w), int(h)
		})
	}

	// Owned registers.
	for i := stateField(0); i < numStateFields; i++ {
		sd := pc.state[i]
		if sd == nil {
			continue
		}
		field := i
		blockFor(sd.decl.propDep).EmitFunc(func(f *vm.Frame) {
			sv, err := sd.resolve(f)
			if err != nil {
				f.Err = cmdWrap(c.name, fieldDefs[field].name, err)
				return
			}
			r.state.applyOwned(field, sv)
			if field == sfViewport {
				r.env.ViewportWidth = int(sv.v[2])
				r.env.ViewportHeight = int(sv.v[3])
			}
		})
	}

	// Program.
	progRef := c.vmenv.Link(prog)
	b.hoist.EmitFunc(func(f *vm.Frame) {
		r.state.useProgram(progRef.Value.(*program).handle)
	})

	vaoElems, err := c.emitAttributes(b, prog, blockFor)
	if err != nil {
		return nil, err
	}
	c.emitUniforms(b, prog, blockFor)
	c.emitDispatch(b, vaoElems)
	return b, nil
}

// emitAttributes plans attribute binding: a pre-baked binding set when
// one applies, per-slot diffed binds otherwise. Returns the element
// buffer owned by the binding set, if any.
func (c *Command) emitAttributes(b *body, prog *program, blockFor func(bool) *vm.Block) (*Elements, error) {
	pc := c.parsed
	r := c.r

	if pc.vao != nil {
		ref := c.vmenv.Link(pc.vao)
		b.hoist.EmitFunc(func(f *vm.Frame) {
			ref.Value.(*VAO).bind()
		})
		return pc.vao.elements, nil
	}

	byID := make(map[int]*attrDecl, len(pc.attrs))
	for i := range pc.attrs {
		byID[pc.attrs[i].id] = &pc.attrs[i]
	}

	// Binding-set fast path: native arrays available, every active
	// attribute statically bound, elements static or absent.
	if r.gl.Caps().VertexArrays && !pc.dynamicShader &&
		(!pc.hasElements || pc.staticElems != nil) {
		allStatic := true
		maxLoc := -1
		for i := range prog.attributes {
			info := &prog.attributes[i]
			if info.loc < 0 {
				continue
			}
			a := byID[info.id]
			if a == nil || a.static == nil {
				allStatic = false
				break
			}
			if info.loc > maxLoc {
				maxLoc = info.loc
			}
		}
		if allStatic && maxLoc >= 0 {
			recs := make([]attrRecord, maxLoc+1)
			for i := range prog.attributes {
				info := &prog.attributes[i]
				if info.loc < 0 {
					continue
				}
				recs[info.loc] = attrRecordFor(info, byID[info.id].static)
			}
			c.autoVAO = newBakedVAO(r, recs, pc.staticElems)
			ref := c.vmenv.Link(c.autoVAO)
			b.hoist.EmitFunc(func(f *vm.Frame) {
				ref.Value.(*VAO).bind()
			})
			return c.autoVAO.elements, nil
		}
	}

	// Per-slot path works on the default vertex array.
	if r.gl.Caps().VertexArrays {
		b.hoist.EmitFunc(func(f *vm.Frame) {
			r.state.bindVAO(gl.VertexArray{})
		})
	}
	for i := range prog.attributes {
		info := &prog.attributes[i]
		if info.loc < 0 {
			continue
		}
		a := byID[info.id]
		if a == nil {
			id := info.id
			name := info.name
			b.hoist.EmitFunc(func(f *vm.Frame) {
				res, ok := r.scopeAttrs[id]
				if !ok {
					f.Err = cmdErr(c.name, "attributes."+name, "no binding in command or enclosing scope")
					return
				}
				c.applyAttr(f, info, res)
			})
			continue
		}
		if a.static != nil {
			res := a.static
			b.hoist.EmitFunc(func(f *vm.Frame) {
				c.applyAttr(f, info, res)
			})
			continue
		}
		decl := a.decl
		name := a.name
		blockFor(decl.propDep).EmitFunc(func(f *vm.Frame) {
			res, err := r.resolveAttribute(decl.value(f), false)
			if err != nil {
				f.Err = cmdWrap(c.name, "attributes."+name, err)
				return
			}
			if res.stream {
				c.streams = append(c.streams, res.buffer)
			}
			c.applyAttr(f, info, res)
		})
	}
	return nil, nil
}

func attrRecordFor(info *attributeInfo, res *resolvedAttr) attrRecord {
	if res.constant {
		return attrRecord{mode: attrConstant, x: res.x, y: res.y, z: res.z, w: res.w}
	}
	size := res.size
	if size == 0 {
		size = typeComponents(info.ty)
	}
	return attrRecord{
		mode:       attrPointer,
		buffer:     res.buffer.handle,
		srcBuffer:  res.buffer,
		size:       size,
		ty:         res.ty,
		normalized: res.normalized,
		stride:     res.stride,
		offset:     res.offset,
		divisor:    res.divisor,
	}
}

func (c *Command) applyAttr(f *vm.Frame, info *attributeInfo, res *resolvedAttr) {
	if res.constant {
		c.r.state.constantAttribute(info.loc, res.x, res.y, res.z, res.w)
		return
	}
	if res.buffer.destroyed {
		f.Err = cmdWrap(c.name, "attributes."+info.name, ErrDestroyed)
		return
	}
	c.r.state.bindAttribute(info.loc, attrRecordFor(info, res))
}

// emitUniforms plans one upload op per active uniform: from the
// command's declaration when present, from the enclosing scope
// otherwise.
func (c *Command) emitUniforms(b *body, prog *program, blockFor func(bool) *vm.Block) {
	pc := c.parsed
	r := c.r
	byID := make(map[int]*uniformDecl, len(pc.uniforms))
	for i := range pc.uniforms {
		byID[pc.uniforms[i].id] = &pc.uniforms[i]
	}
	for i := range prog.uniforms {
		info := &prog.uniforms[i]
		u := byID[info.id]
		if u == nil {
			id := info.id
			b.hoist.EmitFunc(func(f *vm.Frame) {
				v, ok := r.scopeUniforms[id]
				if !ok {
					f.Err = cmdErr(c.name, "uniforms."+info.name, "no value in command or enclosing scope")
					return
				}
				c.setUniform(f, info, v)
			})
			continue
		}
		decl := u.decl
		blockFor(decl.propDep).EmitFunc(func(f *vm.Frame) {
			c.setUniform(f, info, decl.value(f))
		})
	}
}

func (c *Command) setUniform(f *vm.Frame, info *uniformInfo, v any) {
	if tex, ok := v.(*Texture); ok {
		if info.ty != gl.Sampler2D && info.ty != gl.SamplerCube {
			f.Err = cmdErr(c.name, "uniforms."+info.name, "texture bound to non-sampler uniform")
			return
		}
		if tex.destroyed {
			f.Err = cmdWrap(c.name, "uniforms."+info.name, ErrDestroyed)
			return
		}
		unit := tex.bind()
		c.bound = append(c.bound, tex)
		c.r.gl.Uniform1i(info.loc, int32(unit))
		return
	}
	if err := uploadUniform(c.r.gl, info, v); err != nil {
		f.Err = cmdWrap(c.name, "uniforms."+info.name, err)
	}
}

// emitDispatch plans element binding, draw-parameter resolution and the
// final four-way dispatch.
func (c *Command) emitDispatch(b *body, vaoElems *Elements) {
	pc := c.parsed
	r := c.r
	vaoNative := (pc.vao != nil && pc.vao.handle != (gl.VertexArray{})) ||
		(c.autoVAO != nil && c.autoVAO.handle != (gl.VertexArray{}))
	b.item.EmitFunc(func(f *vm.Frame) {
		var elems *Elements
		switch {
		case pc.hasElements:
			v := pc.elements.value(f)
			if v != nil {
				t, ok := v.(*Elements)
				if !ok {
					f.Err = cmdErr(c.name, "elements", "want *Elements, got %T", v)
					return
				}
				elems = t
			}
		case vaoElems != nil:
			elems = vaoElems
		case r.scopeDraw.hasElements:
			elems = r.scopeDraw.elements
		}
		if elems != nil {
			if elems.destroyed {
				f.Err = cmdWrap(c.name, "elements", ErrDestroyed)
				return
			}
			// A native binding set already carries the element binding.
			if !(vaoNative && elems == vaoElems) {
				r.state.bindElements(elems.handle)
			}
		}

		primitive := gl.Triangles
		switch {
		case pc.hasPrimitive:
			p, err := pc.primitive.resolve(f)
			if err != nil {
				f.Err = cmdWrap(c.name, "primitive", err)
				return
			}
			primitive = p
		case r.scopeDraw.hasPrimitive:
			primitive = r.scopeDraw.primitive
		case elems != nil:
			primitive = elems.primitive
		}

		offset := 0
		switch {
		case pc.hasOffset:
			n, err := pc.offset.resolve(f)
			if err != nil {
				f.Err = cmdWrap(c.name, "offset", err)
				return
			}
			offset = n
		case r.scopeDraw.hasOffset:
			offset = r.scopeDraw.offset
		}

		var count int
		switch {
		case pc.hasCount:
			n, err := pc.count.resolve(f)
			if err != nil {
				f.Err = cmdWrap(c.name, "count", err)
				return
			}
			count = n
		case r.scopeDraw.hasCount:
			count = r.scopeDraw.count
		case elems != nil:
			// Defaulted counts cover the indices past the offset.
			count = elems.count - offset
		default:
			f.Err = cmdErr(c.name, "count", "no count, elements or enclosing scope value")
			return
		}

		instances := 0
		switch {
		case pc.hasInstances:
			n, err := pc.instances.resolve(f)
			if err != nil {
				f.Err = cmdWrap(c.name, "instances", err)
				return
			}
			instances = n
		case r.scopeDraw.hasInstances:
			instances = r.scopeDraw.instances
		}

		if count <= 0 {
			if count < 0 {
				f.Err = cmdErr(c.name, "count", "negative count %d", count)
			}
			return
		}

		g := r.gl
		if elems != nil {
			byteOffset := offset << ((int(elems.indexType) - int(gl.UnsignedByte)) >> 1)
			if instances > 0 {
				g.DrawElementsInstanced(primitive, count, elems.indexType, byteOffset, instances)
			} else {
				g.DrawElements(primitive, count, elems.indexType, byteOffset)
			}
		} else {
			if instances > 0 {
				g.DrawArraysInstanced(primitive, offset, count, instances)
			} else {
				g.DrawArrays(primitive, offset, count)
			}
		}
		c.stats.Count++
	})
}

// buildScope compiles the enter/leave pair: every snapshot is taken
// before the first override runs, so leave is safe to run even after a
// failed enter.
func (c *Command) buildScope() {
	pc := c.parsed
	r := c.r
	sc := c.vmenv.ScopePair()

	// Snapshots.
	for i := stateField(0); i < numStateFields; i++ {
		if pc.state[i] == nil {
			continue
		}
		field := i
		sc.Save(
			func(*vm.Frame) any { return r.state.next[field] },
			func(_ *vm.Frame, v any) { r.state.next[field] = v.(stateVal) },
		)
	}
	if pc.hasFramebuffer {
		sc.Save(
			func(*vm.Frame) any { return r.scopeFBO },
			func(_ *vm.Frame, v any) { r.scopeFBO = v.(*Framebuffer) },
		)
		sc.Save(
			func(*vm.Frame) any { return [2]int{r.env.FramebufferWidth, r.env.FramebufferHeight} },
			func(_ *vm.Frame, v any) {
				d := v.([2]int)
				r.env.FramebufferWidth, r.env.FramebufferHeight = d[0], d[1]
			},
		)
		// The render target implies viewport and scissor overrides when
		// the command does not set them itself; those writes must unwind
		// with the scope too.
		if !pc.owned.has(sfViewport) {
			sc.Save(
				func(*vm.Frame) any { return r.state.next[sfViewport] },
				func(_ *vm.Frame, v any) { r.state.next[sfViewport] = v.(stateVal) },
			)
			if !pc.owned.has(sfScissorBox) {
				sc.Save(
					func(*vm.Frame) any { return r.state.next[sfScissorBox] },
					func(_ *vm.Frame, v any) { r.state.next[sfScissorBox] = v.(stateVal) },
				)
			}
		}
	}
	if pc.owned.has(sfViewport) || pc.hasFramebuffer {
		sc.Save(
			func(*vm.Frame) any { return [2]int{r.env.ViewportWidth, r.env.ViewportHeight} },
			func(_ *vm.Frame, v any) {
				d := v.([2]int)
				r.env.ViewportWidth, r.env.ViewportHeight = d[0], d[1]
			},
		)
	}
	for i := range pc.attrs {
		id := pc.attrs[i].id
		sc.Save(
			func(*vm.Frame) any {
				if res, ok := r.scopeAttrs[id]; ok {
					return res
				}
				return nil
			},
			func(_ *vm.Frame, v any) {
				if v == nil {
					delete(r.scopeAttrs, id)
				} else {
					r.scopeAttrs[id] = v.(*resolvedAttr)
				}
			},
		)
	}
	for i := range pc.uniforms {
		id := pc.uniforms[i].id
		sc.Save(
			func(*vm.Frame) any {
				if v, ok := r.scopeUniforms[id]; ok {
					return v
				}
				return nil
			},
			func(_ *vm.Frame, v any) {
				if v == nil {
					delete(r.scopeUniforms, id)
				} else {
					r.scopeUniforms[id] = v
				}
			},
		)
	}
	if pc.hasElements || pc.hasPrimitive || pc.hasCount || pc.hasOffset || pc.hasInstances {
		sc.Save(
			func(*vm.Frame) any { return r.scopeDraw },
			func(_ *vm.Frame, v any) { r.scopeDraw = v.(scopeDrawState) },
		)
	}
	for i := range pc.contexts {
		name := pc.contexts[i].name
		sc.Save(
			func(*vm.Frame) any {
				if v, ok := r.env.getUser(name); ok {
					return [2]any{v, true}
				}
				return [2]any{nil, false}
			},
			func(_ *vm.Frame, v any) {
				pair := v.([2]any)
				if pair[1].(bool) {
					r.env.setUser(name, pair[0])
				} else {
					r.env.delUser(name)
				}
			},
		)
	}

	// Overrides, all after the snapshots.
	sc.Enter.EmitFunc(func(f *vm.Frame) { c.scopeEnter(f) })
	sc.Leave.EmitFunc(func(*vm.Frame) { r.state.dirty = true })

	c.vmenv.BindProc("scope.enter", &sc.Enter)
	c.vmenv.BindProc("scope.leave", &sc.Leave)
}

// scopeEnter applies every override of the command to the inheritable
// mirrors: next-state registers, the scope render target, data bindings,
// draw parameters and context entries.
func (c *Command) scopeEnter(f *vm.Frame) {
	pc := c.parsed
	r := c.r

	if pc.hasFramebuffer {
		v := pc.framebuffer.value(f)
		var fbo *Framebuffer
		if v != nil {
			t, ok := v.(*Framebuffer)
			if !ok {
				f.Err = cmdErr(c.name, "framebuffer", "want *Framebuffer or nil, got %T", v)
				return
			}
			fbo = t
		}
		r.scopeFBO = fbo
		if fbo != nil {
			r.env.FramebufferWidth, r.env.FramebufferHeight = fbo.width, fbo.height
		} else {
			r.env.FramebufferWidth = r.env.DrawingBufferWidth
			r.env.FramebufferHeight = r.env.DrawingBufferHeight
		}
		if !pc.owned.has(sfViewport) {
			box := sv4(0, 0, float64(r.env.FramebufferWidth), float64(r.env.FramebufferHeight))
			r.state.next[sfViewport] = box
			if !pc.owned.has(sfScissorBox) {
				r.state.next[sfScissorBox] = box
			}
			r.env.ViewportWidth, r.env.ViewportHeight = r.env.FramebufferWidth, r.env.FramebufferHeight
		}
	}

	// Context entries go in before state resolution so the command's own
	// dynamic values see them.
	for i := range pc.contexts {
		cd := &pc.contexts[i]
		r.env.setUser(cd.name, cd.decl.value(f))
	}

	for i := stateField(0); i < numStateFields; i++ {
		sd := pc.state[i]
		if sd == nil {
			continue
		}
		sv, err := sd.resolve(f)
		if err != nil {
			f.Err = cmdWrap(c.name, fieldDefs[i].name, err)
			return
		}
		r.state.next[i] = sv
		if i == sfViewport {
			r.env.ViewportWidth = int(sv.v[2])
			r.env.ViewportHeight = int(sv.v[3])
		}
	}

	for i := range pc.attrs {
		a := &pc.attrs[i]
		res := a.static
		if res == nil {
			var err error
			res, err = r.resolveAttribute(a.decl.value(f), false)
			if err != nil {
				f.Err = cmdWrap(c.name, "attributes."+a.name, err)
				return
			}
			if res.stream {
				c.streams = append(c.streams, res.buffer)
			}
		}
		r.scopeAttrs[a.id] = res
	}
	for i := range pc.uniforms {
		u := &pc.uniforms[i]
		v := u.decl.value(f)
		if v == nil {
			f.Err = cmdErr(c.name, "uniforms."+u.name, "nil value")
			return
		}
		r.scopeUniforms[u.id] = v
	}

	if pc.hasElements {
		v := pc.elements.value(f)
		r.scopeDraw.hasElements = true
		r.scopeDraw.elements = nil
		if v != nil {
			t, ok := v.(*Elements)
			if !ok {
				f.Err = cmdErr(c.name, "elements", "want *Elements, got %T", v)
				return
			}
			r.scopeDraw.elements = t
		}
	}
	if pc.hasPrimitive {
		p, err := pc.primitive.resolve(f)
		if err != nil {
			f.Err = cmdWrap(c.name, "primitive", err)
			return
		}
		r.scopeDraw.primitive, r.scopeDraw.hasPrimitive = p, true
	}
	if pc.hasCount {
		n, err := pc.count.resolve(f)
		if err != nil {
			f.Err = cmdWrap(c.name, "count", err)
			return
		}
		r.scopeDraw.count, r.scopeDraw.hasCount = n, true
	}
	if pc.hasOffset {
		n, err := pc.offset.resolve(f)
		if err != nil {
			f.Err = cmdWrap(c.name, "offset", err)
			return
		}
		r.scopeDraw.offset, r.scopeDraw.hasOffset = n, true
	}
	if pc.hasInstances {
		n, err := pc.instances.resolve(f)
		if err != nil {
			f.Err = cmdWrap(c.name, "instances", err)
			return
		}
		r.scopeDraw.instances, r.scopeDraw.hasInstances = n, true
	}

	r.state.dirty = true
}

// typeComponents is the vector width of a shader attribute type.
func typeComponents(ty gl.Enum) int {
	switch ty {
	case gl.FloatVec2, gl.IntVec2, gl.BoolVec2:
		return 2
	case gl.FloatVec3, gl.IntVec3, gl.BoolVec3:
		return 3
	case gl.FloatVec4, gl.IntVec4, gl.BoolVec4:
		return 4
	default:
		return 1
	}
}

func toIntVec(v any, n int) ([4]int32, bool) {
	var out [4]int32
	fill := func(src []int32) bool {
		if len(src) != n {
			return false
		}
		copy(out[:], src)
		return true
	}
	switch t := v.(type) {
	case [2]int32:
		return out, n == 2 && fill(t[:])
	case [3]int32:
		return out, n == 3 && fill(t[:])
	case [4]int32:
		return out, n == 4 && fill(t[:])
	case []int32:
		return out, fill(t)
	case []int:
		if len(t) != n {
			return out, false
		}
		for i, x := range t {
			out[i] = int32(x)
		}
		return out, true
	default:
		return out, false
	}
}

func matValues(v any, n int) ([]float32, bool) {
	switch t := v.(type) {
	case []float32:
		if len(t) == n {
			return t, true
		}
	case [4]float32:
		if n == 4 {
			return t[:], true
		}
	case [9]float32:
		if n == 9 {
			return t[:], true
		}
	case [16]float32:
		if n == 16 {
			return t[:], true
		}
	}
	return nil, false
}

// checkUniform verifies that a value converts for the uniform's declared
// type without touching the GL, so construction can reject mistyped
// static values before the first draw.
func checkUniform(info *uniformInfo, v any) error {
	var ok bool
	var want string
	switch info.ty {
	case gl.Sampler2D, gl.SamplerCube:
		_, ok = v.(*Texture)
		want = "*Texture"
	case gl.Float:
		_, ok = toFloat(v)
		want = "number"
	case gl.FloatVec2:
		_, ok = toVec(v, 2)
		want = "2-vector"
	case gl.FloatVec3:
		_, ok = toVec(v, 3)
		want = "3-vector"
	case gl.FloatVec4:
		_, ok = toVec(v, 4)
		want = "4-vector"
	case gl.Int:
		_, ok = toInt(v)
		want = "integer"
	case gl.Bool:
		_, ok = toBool(v)
		want = "bool"
	case gl.IntVec2, gl.BoolVec2:
		_, ok = toIntVec(v, 2)
		want = "2 integers"
	case gl.IntVec3, gl.BoolVec3:
		_, ok = toIntVec(v, 3)
		want = "3 integers"
	case gl.IntVec4, gl.BoolVec4:
		_, ok = toIntVec(v, 4)
		want = "4 integers"
	case gl.FloatMat2:
		_, ok = matValues(v, 4)
		want = "4 matrix values"
	case gl.FloatMat3:
		_, ok = matValues(v, 9)
		want = "9 matrix values"
	case gl.FloatMat4:
		_, ok = matValues(v, 16)
		want = "16 matrix values"
	default:
		return fmt.Errorf("unsupported uniform type 0x%04x", uint32(info.ty))
	}
	if !ok {
		return fmt.Errorf("want %s, got %T", want, v)
	}
	return nil
}

// uploadUniform converts a resolved value for the uniform's declared
// type and issues the GL upload. Sampler uniforms are handled by the
// caller, which owns texture-unit leasing.
func uploadUniform(g gl.Context, info *uniformInfo, v any) error {
	switch info.ty {
	case gl.Float:
		x, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("want number, got %T", v)
		}
		g.Uniform1f(info.loc, float32(x))
	case gl.FloatVec2:
		vec, ok := toVec(v, 2)
		if !ok {
			return fmt.Errorf("want 2-vector, got %T", v)
		}
		g.Uniform2f(info.loc, float32(vec[0]), float32(vec[1]))
	case gl.FloatVec3:
		vec, ok := toVec(v, 3)
		if !ok {
			return fmt.Errorf("want 3-vector, got %T", v)
		}
		g.Uniform3f(info.loc, float32(vec[0]), float32(vec[1]), float32(vec[2]))
	case gl.FloatVec4:
		vec, ok := toVec(v, 4)
		if !ok {
			return fmt.Errorf("want 4-vector, got %T", v)
		}
		g.Uniform4f(info.loc, float32(vec[0]), float32(vec[1]), float32(vec[2]), float32(vec[3]))
	case gl.Int:
		x, ok := toInt(v)
		if !ok {
			return fmt.Errorf("want integer, got %T", v)
		}
		g.Uniform1i(info.loc, int32(x))
	case gl.Bool:
		b, ok := toBool(v)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		var x int32
		if b {
			x = 1
		}
		g.Uniform1i(info.loc, x)
	case gl.IntVec2, gl.BoolVec2:
		vec, ok := toIntVec(v, 2)
		if !ok {
			return fmt.Errorf("want 2 integers, got %T", v)
		}
		g.Uniform2i(info.loc, vec[0], vec[1])
	case gl.IntVec3, gl.BoolVec3:
		vec, ok := toIntVec(v, 3)
		if !ok {
			return fmt.Errorf("want 3 integers, got %T", v)
		}
		g.Uniform3i(info.loc, vec[0], vec[1], vec[2])
	case gl.IntVec4, gl.BoolVec4:
		vec, ok := toIntVec(v, 4)
		if !ok {
			return fmt.Errorf("want 4 integers, got %T", v)
		}
		g.Uniform4i(info.loc, vec[0], vec[1], vec[2], vec[3])
	case gl.FloatMat2:
		m, ok := matValues(v, 4)
		if !ok {
			return fmt.Errorf("want 4 matrix values, got %T", v)
		}
		g.UniformMatrix2fv(info.loc, m)
	case gl.FloatMat3:
		m, ok := matValues(v, 9)
		if !ok {
			return fmt.Errorf("want 9 matrix values, got %T", v)
		}
		g.UniformMatrix3fv(info.loc, m)
	case gl.FloatMat4:
		m, ok := matValues(v, 16)
		if !ok {
			return fmt.Errorf("want 16 matrix values, got %T", v)
		}
		g.UniformMatrix4fv(info.loc, m)
	default:
		return fmt.Errorf("unsupported uniform type 0x%04x", uint32(info.ty))
	}
	return nil
}
