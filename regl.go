package regl

import (
	"errors"
	"fmt"
	"time"

	"github.com/plotly/regl-go/gl"
)

// Regl is a command compiler over one GL context. It owns the state
// mirrors, the resource managers and every command compiled through it.
//
// An instance and everything reached from it belong to a single
// goroutine.
type Regl struct {
	gl   gl.Context
	opts instanceOptions

	strings *stringStore
	state   *stateMachine
	env     *Env

	buffers      *bufferManager
	elements     *elementsManager
	shaders      *shaderManager
	textures     *textureManager
	framebuffers *framebufferManager
	vaos         *vaoManager
	timer        *timerManager

	commands map[*Command]struct{}

	// scope inheritance mirrors, pushed and popped by Command.Scope
	scopeUniforms map[int]any
	scopeAttrs    map[int]*resolvedAttr
	scopeDraw     scopeDrawState
	scopeFBO      *Framebuffer

	frames []*frameHandle
	start  time.Time

	lost      bool
	destroyed bool
}

// New creates an instance over a context with the given drawing buffer
// size. The context's registers are driven to the mirror defaults before
// New returns, so the mirrors are authoritative from the first command.
func New(glctx gl.Context, width, height int, opts ...Option) (*Regl, error) {
	if glctx == nil {
		return nil, errors.New("regl: nil context")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("regl: invalid drawing buffer size %dx%d", width, height)
	}
	o := defaultInstanceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Regl{
		gl:            glctx,
		opts:          o,
		strings:       newStringStore(),
		state:         newStateMachine(glctx, width, height),
		commands:      make(map[*Command]struct{}),
		scopeUniforms: make(map[int]any),
		scopeAttrs:    make(map[int]*resolvedAttr),
		start:         time.Now(),
	}
	r.env = &Env{
		ViewportWidth:       width,
		ViewportHeight:      height,
		FramebufferWidth:    width,
		FramebufferHeight:   height,
		DrawingBufferWidth:  width,
		DrawingBufferHeight: height,
		PixelRatio:          o.pixelRatio,
	}
	for k, v := range o.context {
		r.env.setUser(k, v)
	}
	r.buffers = newBufferManager(r)
	r.elements = newElementsManager(r)
	r.shaders = newShaderManager(r)
	r.textures = newTextureManager(r)
	r.framebuffers = newFramebufferManager(r)
	r.vaos = newVAOManager(r)
	r.timer = newTimerManager(r)
	r.state.refresh()
	caps := glctx.Caps()
	Logger().Info("regl: instance created",
		"width", width, "height", height,
		"vao", caps.VertexArrays, "instancing", caps.Instancing,
		"timerQuery", caps.TimerQuery)
	return r, nil
}

// Env returns the ambient context. Callers may read the built-in fields
// at any time; values injected by active scopes are visible through
// Context references only.
func (r *Regl) Env() *Env { return r.env }

// ProgramCacheStats reports program cache hits and misses since
// creation.
func (r *Regl) ProgramCacheStats() (hits, misses uint64) {
	return r.shaders.hits, r.shaders.misses
}

// Poll advances the frame clock, folds in finished timer queries and
// flushes pending state from scope overrides to the context. Call once
// per displayed frame (Step does this for frame callbacks).
func (r *Regl) Poll() {
	if r.destroyed || r.lost {
		return
	}
	r.env.Tick++
	r.env.Time = time.Since(r.start).Seconds()
	r.timer.update()
	r.state.poll(0)
}

// Refresh reapplies every mirrored register unconditionally. Use when
// foreign code touched the context behind the mirrors.
func (r *Regl) Refresh() {
	if r.destroyed || r.lost {
		return
	}
	r.state.refresh()
}

// LoseContext marks the context lost. Every invocation fails with
// ErrContextLost until RestoreContext. Resource handles are dropped;
// retained CPU data survives.
func (r *Regl) LoseContext() {
	if r.lost || r.destroyed {
		return
	}
	r.lost = true
	r.state.onContextLost()
	r.timer.onContextLost()
	Logger().Warn("regl: context lost")
}

// RestoreContext recreates every live resource from retained data and
// drives the fresh context back to the mirrored state. Commands keep
// working unchanged afterwards.
func (r *Regl) RestoreContext() {
	if !r.lost || r.destroyed {
		return
	}
	r.lost = false
	r.buffers.restore()
	r.elements.restore()
	r.shaders.restore()
	r.textures.restore()
	r.framebuffers.restore()
	r.vaos.restore()
	r.state.refresh()
	Logger().Info("regl: context restored",
		"buffers", len(r.buffers.buffers),
		"programs", len(r.shaders.programs),
		"textures", len(r.textures.set))
}

// Destroy tears down every command and resource owned by the instance.
// The instance is unusable afterwards.
func (r *Regl) Destroy() {
	if r.destroyed {
		Logger().Warn("regl: instance destroyed twice")
		return
	}
	for c := range r.commands {
		c.Destroy()
	}
	r.frames = nil
	r.vaos.destroyAll()
	r.framebuffers.destroyAll()
	r.textures.destroyAll()
	r.shaders.destroyAll()
	r.elements.destroyAll()
	r.buffers.destroyAll()
	r.timer.destroyAll()
	r.destroyed = true
	Logger().Info("regl: instance destroyed")
}
