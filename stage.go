package filterchain

import (
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/gopix/filterchain/internal/blend"
)

// Stage is one node in a non-destructive filter chain. It applies a
// [Transform] to the image produced by its source (the previous stage, or
// the chain's root), caches the transformed output, and composites it with
// its own opacity, blend mode, and optional mask.
//
// Unlike an ordinary adjustment pass, a stage does not recompute when an
// unrelated part of the document changes: its output cache survives until
// the stage itself, or something upstream of it, is edited.
//
// Stages are created and owned by a [Chain]; the source and next links are
// non-owning and are rewired centrally by the chain on structural edits.
// All methods except the cache-slot internals must be called from the
// chain's owning goroutine.
type Stage struct {
	id    uuid.UUID
	chain *Chain

	transform Transform
	source    ImageSource
	next      *Stage

	enabled   bool
	opacity   float32
	blendMode BlendMode
	mask      *Mask

	// mu guards the cache slot, the counters below, and the settings
	// fields above while an evaluation is in flight: preview workers read
	// the settings and publish into the cache from other goroutines.
	mu         sync.Mutex
	cond       *sync.Cond
	cache      *image.RGBA
	generation uint64
	computing  bool
	visual     uint64
}

// evalCond returns the condition variable used to wait out an in-flight
// computation. Lazily created; callers hold mu.
func (s *Stage) evalCond() *sync.Cond {
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
	return s.cond
}

// ID returns the stage's stable identifier.
func (s *Stage) ID() uuid.UUID { return s.id }

// Name returns the name of the stage's transform.
func (s *Stage) Name() string { return s.transform.Name() }

// Transform returns the stage's current transform.
func (s *Stage) Transform() Transform { return s.transform }

// Source returns the stage's image source (previous stage or chain root).
func (s *Stage) Source() ImageSource { return s.source }

// Next returns the following stage, or nil if this is the last one.
func (s *Stage) Next() *Stage { return s.next }

// Enabled reports whether the stage is applied (a disabled stage passes its
// source image through unchanged).
func (s *Stage) Enabled() bool { return s.enabled }

// Opacity returns the stage opacity in [0, 1].
func (s *Stage) Opacity() float32 { return s.opacity }

// Mode returns the stage's blend mode.
func (s *Stage) Mode() BlendMode { return s.blendMode }

// Mask returns the stage's alpha mask, or nil.
func (s *Stage) Mask() *Mask { return s.mask }

// Version returns a counter that changes whenever the stage's visible
// output may have changed. Thumbnail and icon caches key on it.
func (s *Stage) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visual
}

// Image returns the stage's output: the source image transformed, masked,
// and composited according to the stage settings. The result may be a
// shared cache value; callers must not mutate it.
func (s *Stage) Image() (*image.RGBA, error) {
	// Snapshot the settings: upstream stages are reached through Image
	// from preview workers, so the fields cannot be read bare while the
	// owning goroutine edits them.
	s.mu.Lock()
	source := s.source
	enabled := s.enabled
	mask := s.mask
	mode := s.blendMode
	opacity := s.opacity
	s.mu.Unlock()

	if source == nil {
		return nil, ErrNilSource
	}
	prev, err := source.Image()
	if err != nil {
		return nil, err
	}
	if !enabled {
		// Pass-through: no transform run, nothing to cache.
		return prev, nil
	}

	transformed, err := s.transformImage(prev)
	if err != nil {
		return nil, err
	}

	masked := transformed
	if mask != nil {
		// Copy, because otherwise different masks would be applied to
		// the same cached image seen by other consumers.
		masked = CloneImage(transformed)
		mask.ApplyTo(masked)
	}
	if mask == nil && mode == BlendNormal && opacity >= 1 {
		return masked, nil
	}

	// Composite onto a private copy so that prev, which may be a cache
	// value owned by the source, is never modified.
	out := CloneImage(prev)
	blend.Composite(out, masked, mode.mode(), opacityByte(opacity))
	return out, nil
}

// transformImage returns the transform's output for src, computing and
// caching it on the first call after an invalidation. It participates in
// the per-stage in-flight guard: while any computation for this stage is
// running, other callers wait for its result instead of duplicating the
// work. Two preview workers whose stages share an uncached upstream thus
// run that upstream's transform once, not twice.
func (s *Stage) transformImage(src *image.RGBA) (*image.RGBA, error) {
	s.mu.Lock()
	for s.cache == nil && s.computing {
		s.evalCond().Wait()
	}
	if s.cache != nil {
		cached := s.cache
		s.mu.Unlock()
		return cached, nil
	}
	s.computing = true
	t := s.transform
	gen := s.generation
	s.mu.Unlock()

	out, err := s.runTransform(t, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.computing = false
	s.evalCond().Broadcast()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		// A concurrent evaluation got here first; its value wins.
		return s.cache, nil
	}
	if s.generation == gen {
		s.cache = out
		logger().Debug("stage cache populated", "stage", s.id, "name", t.Name())
	}
	return out, nil
}

// runTransform invokes t and defends the cache against output that aliases
// the input buffer. The transform is passed in by the caller, which pinned
// it under the stage lock.
func (s *Stage) runTransform(t Transform, src *image.RGBA) (*image.RGBA, error) {
	out, err := t.Apply(src)
	if err != nil {
		return nil, fmt.Errorf("filterchain: transform %q failed: %w", t.Name(), err)
	}
	if out == nil {
		return nil, fmt.Errorf("filterchain: transform %q returned no image", t.Name())
	}
	if SharesBuffer(out, src) {
		// A no-op or in-place transform handed the input back. Cache a
		// private copy so the cache is never aliased with upstream data.
		out = CloneImage(out)
	}
	return out, nil
}

// evalSnapshot pins the inputs of one evaluation. A worker only ever uses
// its snapshot: the owning goroutine may replace the stage's transform or
// source while the evaluation runs.
type evalSnapshot struct {
	transform Transform
	source    ImageSource
	gen       uint64
}

// computeOutput runs the full source-fetch plus transform for a snapshot,
// without touching the cache slot. Used by synchronous and asynchronous
// evaluation.
func (s *Stage) computeOutput(snap evalSnapshot) (*image.RGBA, error) {
	if snap.source == nil {
		return nil, ErrNilSource
	}
	prev, err := snap.source.Image()
	if err != nil {
		return nil, err
	}
	return s.runTransform(snap.transform, prev)
}

// EvaluateNow populates the stage's cache eagerly, outside the paint path,
// so that icon and thumbnail updates never trigger duplicate evaluations.
// It is a no-op when the stage is disabled, the cache is already populated,
// or an evaluation is in flight.
func (s *Stage) EvaluateNow() error {
	snap, ok := s.tryBeginEvaluation()
	if !ok {
		return nil
	}
	out, err := s.computeOutput(snap)
	s.finishEvaluation(out, snap.gen, err)
	return err
}

// tryBeginEvaluation marks the stage as computing if it is enabled, no
// cached value exists, and no other computation is running. The returned
// snapshot pins the transform, source, and the generation the result will
// be validated against.
func (s *Stage) tryBeginEvaluation() (evalSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.cache != nil || s.computing {
		// A disabled stage passes its source through; evaluating it would
		// fill a cache the pass-through path never reads.
		return evalSnapshot{}, false
	}
	s.computing = true
	return evalSnapshot{
		transform: s.transform,
		source:    s.source,
		gen:       s.generation,
	}, true
}

// finishEvaluation completes an evaluation started by tryBeginEvaluation.
// The result is published only if the stage has not been invalidated since
// the evaluation began; a stale result is discarded. Reports whether the
// result was published.
func (s *Stage) finishEvaluation(out *image.RGBA, gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.computing = false
	s.evalCond().Broadcast()
	if err != nil {
		// Failed attempts leave the cache empty and downstream alone.
		return false
	}
	if s.generation != gen || s.cache != nil {
		logger().Warn("discarding stale evaluation result", "stage", s.id, "name", s.Name())
		return false
	}
	s.cache = out
	return true
}

// HasCachedImage reports whether the stage currently holds a cached output.
func (s *Stage) HasCachedImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache != nil
}

// CachedImage returns the cached transform output, or nil. The value is
// shared; callers must not mutate it.
func (s *Stage) CachedImage() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// InvalidateCache releases this stage's cached output, forcing
// recomputation on the next access. Idempotent. Any in-flight evaluation
// will discard its result.
func (s *Stage) InvalidateCache() {
	s.mu.Lock()
	had := s.cache != nil
	s.cache = nil
	s.generation++
	s.visual++
	s.mu.Unlock()
	if had {
		logger().Debug("stage cache invalidated", "stage", s.id, "name", s.Name())
	}
}

// InvalidateChain invalidates this stage's cache and every stage
// downstream of it, in forward order. A change at a stage can only affect
// that stage and the stages after it; stages before it are never touched.
func (s *Stage) InvalidateChain() {
	for st := s; st != nil; st = st.next {
		st.InvalidateCache()
	}
}

// InvalidateAll invalidates this stage's downstream chain and the owning
// chain's composite cache.
func (s *Stage) InvalidateAll() {
	s.InvalidateChain()
	if s.chain != nil {
		s.chain.InvalidateComposite()
	}
}

// invalidateDownstream invalidates from the next stage on, plus the chain
// composite, leaving this stage's own transform cache intact. Used for
// layer-level changes: the transform's pixel output is unaffected by how it
// is later composited.
func (s *Stage) invalidateDownstream() {
	if s.next != nil {
		s.next.InvalidateChain()
	}
	if s.chain != nil {
		s.chain.InvalidateComposite()
	}
}

// layerSettingsChanged handles a change to opacity, blend mode, visibility,
// or mask: downstream and composite invalidation plus a change
// notification, with this stage's transform cache preserved.
func (s *Stage) layerSettingsChanged() {
	s.mu.Lock()
	s.visual++
	s.mu.Unlock()
	s.invalidateDownstream()
	if s.chain != nil {
		s.chain.notifyChanged()
	}
}

// SetTransform replaces the stage's transform. Unlike layer-level changes
// this invalidates the stage's own output too, so the full downstream chain
// and the composite are cleared.
func (s *Stage) SetTransform(t Transform) error {
	if t == nil {
		return ErrNilTransform
	}
	s.mu.Lock()
	s.transform = t
	s.mu.Unlock()
	s.InvalidateAll()
	if s.chain != nil {
		s.chain.notifyChanged()
	}
	return nil
}

// ParamsChanged must be called after mutating the current transform's
// parameters in place. It has the same invalidation effect as replacing
// the transform.
func (s *Stage) ParamsChanged() {
	s.InvalidateAll()
	if s.chain != nil {
		s.chain.notifyChanged()
	}
}

// SetEnabled shows or hides the stage. Setting the current value is a
// no-op.
func (s *Stage) SetEnabled(enabled bool) {
	s.mu.Lock()
	if s.enabled == enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = enabled
	s.mu.Unlock()
	s.layerSettingsChanged()
}

// SetOpacity sets the stage opacity, clamped to [0, 1]. Setting the
// current value is a no-op.
func (s *Stage) SetOpacity(opacity float32) {
	opacity = clampOpacity(opacity)
	s.mu.Lock()
	if s.opacity == opacity {
		s.mu.Unlock()
		return
	}
	s.opacity = opacity
	s.mu.Unlock()
	s.layerSettingsChanged()
}

// SetMode sets the stage blend mode. Setting the current value is a no-op.
func (s *Stage) SetMode(mode BlendMode) {
	s.mu.Lock()
	if s.blendMode == mode {
		s.mu.Unlock()
		return
	}
	s.blendMode = mode
	s.mu.Unlock()
	s.layerSettingsChanged()
}

// SetMask attaches, replaces, or removes (nil) the stage's alpha mask.
func (s *Stage) SetMask(mask *Mask) {
	s.mu.Lock()
	if s.mask == mask {
		s.mu.Unlock()
		return
	}
	s.mask = mask
	s.mu.Unlock()
	s.layerSettingsChanged()
}

// MaskEdited must be called after mutating the current mask's contents in
// place (painting on the mask). Same effect as replacing the mask.
func (s *Stage) MaskEdited() {
	if s.mask == nil {
		return
	}
	s.layerSettingsChanged()
}

// SetSource rewires the stage to pull its input from src. Rewiring to the
// stage itself or to any stage downstream of it is rejected with
// [ErrStageCycle] and leaves the stage unchanged. Collaborators use this
// when re-establishing links after loading a document; within a chain the
// container rewires sources itself.
func (s *Stage) SetSource(src ImageSource) error {
	if src == nil {
		return ErrNilSource
	}
	if other, ok := src.(*Stage); ok {
		for st := s; st != nil; st = st.next {
			if st == other {
				return ErrStageCycle
			}
		}
	}
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
	return nil
}

// StartPreview begins (or continues) a filter-dialog preview session. The
// first preview reuses a cache the paint path may already have computed;
// subsequent previews mean a parameter changed, so the stage and everything
// downstream are invalidated first.
func (s *Stage) StartPreview(firstPreview bool) error {
	if !firstPreview {
		s.InvalidateAll()
	}
	if s.HasCachedImage() {
		return nil
	}
	if err := s.EvaluateNow(); err != nil {
		return err
	}
	if s.chain != nil {
		s.chain.notifyChanged()
	}
	return nil
}

// AcceptPreview commits a preview session: the current cache already
// reflects the final settings, only the host needs a refresh.
func (s *Stage) AcceptPreview() {
	if s.chain != nil {
		s.chain.notifyChanged()
	}
}

// CancelPreview abandons a preview session. If the session changed the
// transform's parameters, the previewed output is stale and the stage is
// invalidated.
func (s *Stage) CancelPreview(settingsChanged bool) {
	if !settingsChanged {
		return
	}
	s.InvalidateAll()
	if s.chain != nil {
		s.chain.notifyChanged()
	}
}

// checkInvariants verifies the stage's structural consistency.
func (s *Stage) checkInvariants() error {
	if s.transform == nil {
		return ErrNilTransform
	}
	if s.source == nil {
		return ErrNilSource
	}
	if s.chain == nil || !s.chain.Contains(s) {
		return ErrStageNotFound
	}
	if s.next != nil {
		if s.next == s {
			return ErrStageCycle
		}
		if s.next.source != ImageSource(s) {
			return fmt.Errorf("%w: source of %q is not %q", ErrBrokenLink, s.next.Name(), s.Name())
		}
	}
	return nil
}

// clampOpacity clamps opacity to [0, 1].
func clampOpacity(opacity float32) float32 {
	if opacity < 0 {
		return 0
	}
	if opacity > 1 {
		return 1
	}
	return opacity
}

// opacityByte converts a [0, 1] opacity to 0-255.
func opacityByte(opacity float32) uint8 {
	return uint8(clampOpacity(opacity)*255 + 0.5)
}
