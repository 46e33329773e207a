package regl

// frameHandle is one registered frame callback.
type frameHandle struct {
	fn        func(env *Env)
	cancelled bool
}

// Frame registers a per-tick callback and returns its cancel function.
// The host drives ticks by calling Step once per displayed frame;
// callbacks see the ambient context with Tick and Time already advanced.
func (r *Regl) Frame(fn func(env *Env)) (cancel func()) {
	h := &frameHandle{fn: fn}
	r.frames = append(r.frames, h)
	return func() { h.cancelled = true }
}

// Step runs one frame tick: Poll, then every live frame callback in
// registration order. Ticking pauses by itself while the context is lost
// or no callbacks remain; Step is then a no-op.
func (r *Regl) Step() {
	if r.destroyed || r.lost || len(r.frames) == 0 {
		return
	}
	r.Poll()
	// Run over a snapshot: callbacks may register new ones through Frame,
	// and those start on the next tick.
	ticking := r.frames
	for _, h := range ticking {
		if !h.cancelled {
			h.fn(r.env)
		}
	}
	live := make([]*frameHandle, 0, len(r.frames))
	for _, h := range r.frames {
		if !h.cancelled {
			live = append(live, h)
		}
	}
	r.frames = live
}
