// Package filterchain implements the non-destructive smart-filter pipeline
// of a layered image editor.
//
// # Overview
//
// A [Chain] owns an ordered sequence of [Stage] values. Each stage applies
// one opaque [Transform] to the image produced by the stage (or root source)
// before it, caches the result, and composites it according to its own
// opacity, blend mode, and optional alpha [Mask]. Editing a setting at stage
// N only forces recomputation of stages N..end; stages before N keep their
// cached output.
//
// # Quick Start
//
//	import "github.com/gopix/filterchain"
//
//	chain := filterchain.NewChain(filterchain.NewStaticSource(src))
//	blur, _ := chain.Append(transforms.NewBlur(4))
//	chain.Append(transforms.NewBrighten(0.2))
//
//	out, err := chain.EffectiveImage() // runs blur, then brighten
//	...
//	blur.SetOpacity(0.5)              // blur's pixel cache survives
//	out, err = chain.EffectiveImage() // recomposites from the caches
//
// # Invalidation
//
// The propagation law is strictly forward: a change at a stage can affect
// that stage and the stages after it, never the stages before it. Replacing
// a stage's transform clears its own cache and everything downstream; a
// layer-level change (opacity, blend mode, visibility, mask) clears only the
// downstream caches and the chain composite, because the stage's own
// transform output is still valid.
//
// # Concurrency
//
// A single owning goroutine drives all chain mutations and cache reads.
// Expensive transform work can be offloaded through an [Evaluator], which
// guarantees at most one computation per stage at a time (workers that need
// the same uncached upstream wait for one result instead of duplicating it)
// and discards results that were invalidated while computing (generation
// counters). Workers evaluate against a snapshot of the stage settings, so
// the owning goroutine may keep editing while a preview is in flight.
//
// Images returned by [Stage.Image] and [Chain.EffectiveImage] are shared
// cache values: callers must treat them as read-only.
package filterchain
