// Package regl is a declarative command compiler for an immediate-mode
// GPU state machine.
//
// A rendering command is declared once as a CommandSpec: shaders,
// attribute and uniform bindings, GPU state overrides and draw
// parameters, where any value may be a Dynamic descriptor resolved per
// invocation. Compiling the spec classifies every field by what it
// depends on (nothing, the command, the ambient context, or the
// per-call props), plans an instruction list, and returns a Command
// with three call forms:
//
//   - Draw(props) runs the plan once.
//   - Batch(props...) hoists everything that does not depend on props
//     out of the loop and replays only the per-item tail.
//   - Scope(props, fn) pushes the command's overrides for nested
//     commands, runs fn, and restores everything on the way out.
//
// The instance mirrors every tracked GL register in a current/next pair
// and issues only the calls whose values actually change, so redundant
// state churn never reaches the driver. Context loss is a state
// transition: invocations fail with ErrContextLost until
// RestoreContext rebuilds every live resource from retained data.
//
//	r, err := regl.New(glctx, 800, 600)
//	draw := r.MustCommand(regl.CommandSpec{
//		Vert: vertSrc,
//		Frag: fragSrc,
//		Attributes: map[string]any{"position": positions},
//		Uniforms:   map[string]any{"color": regl.Prop("color")},
//		Count:      3,
//	})
//	err = draw.Draw(map[string]any{"color": [4]float32{1, 0, 0, 1}})
//
// Shader sources are GLSL strings or WGSL wrapped with WGSL(), which is
// cross-compiled to GLSL ES 3.00 at construction time.
package regl
