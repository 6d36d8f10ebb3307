package filterchain

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
)

// countingTransform is a test transform that counts Apply calls and adds a
// fixed delta to every color channel.
type countingTransform struct {
	name       string
	delta      uint8
	applyCalls atomic.Int32
	failWith   error
	aliasInput bool
	block      chan struct{} // if non-nil, Apply waits on it
}

func (t *countingTransform) Name() string { return t.name }

func (t *countingTransform) Params() Params {
	return Params{"delta": t.delta}
}

func (t *countingTransform) Apply(src *image.RGBA) (*image.RGBA, error) {
	t.applyCalls.Add(1)
	if t.block != nil {
		<-t.block
	}
	if t.failWith != nil {
		return nil, t.failWith
	}
	if t.aliasInput {
		return src, nil
	}
	out := CloneImage(src)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+0] += t.delta
		out.Pix[i+1] += t.delta
		out.Pix[i+2] += t.delta
	}
	return out, nil
}

func (t *countingTransform) Clone() Transform {
	return &countingTransform{name: t.name, delta: t.delta, aliasInput: t.aliasInput}
}

func (t *countingTransform) calls() int {
	return int(t.applyCalls.Load())
}

// testImage returns a small opaque gradient image.
func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(10 * x)
			img.Pix[i+1] = uint8(10 * y)
			img.Pix[i+2] = 100
			img.Pix[i+3] = 255
		}
	}
	return img
}

// buildChain creates a chain over a test image with one counting stage per
// name, each adding a different channel delta.
func buildChain(t *testing.T, names ...string) (*Chain, []*countingTransform) {
	t.Helper()
	chain := NewChain(NewStaticSource(testImage(8, 8)))
	transforms := make([]*countingTransform, 0, len(names))
	for i, name := range names {
		tr := &countingTransform{name: name, delta: uint8(i + 1)}
		if _, err := chain.Append(tr); err != nil {
			t.Fatalf("Append(%q) failed: %v", name, err)
		}
		transforms = append(transforms, tr)
	}
	return chain, transforms
}

func TestStageImageIsCached(t *testing.T) {
	chain, trs := buildChain(t, "Blur", "Brighten")

	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}

	for _, tr := range trs {
		if got := tr.calls(); got != 1 {
			t.Errorf("%s Apply called %d times, want 1", tr.name, got)
		}
	}
}

func TestStageImageIdempotent(t *testing.T) {
	chain, _ := buildChain(t, "Blur", "Brighten")
	tail := chain.StageAt(1)

	first, err := tail.Image()
	if err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	second, err := tail.Image()
	if err != nil {
		t.Fatalf("Image() failed: %v", err)
	}

	if !PixelsEqual(first, second) {
		t.Error("two Image() calls without mutation produced different pixels")
	}
	// At the transform-cache level the exact same object must be reused.
	if tail.CachedImage() == nil {
		t.Fatal("tail stage has no cache after Image()")
	}
	if c1, c2 := tail.CachedImage(), tail.CachedImage(); c1 != c2 {
		t.Error("transform cache reference changed between reads")
	}
}

func TestTransformEditInvalidatesSelfAndDownstreamOnly(t *testing.T) {
	chain, trs := buildChain(t, "A", "B", "C")
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}

	a, b, c := chain.StageAt(0), chain.StageAt(1), chain.StageAt(2)
	aCache := a.CachedImage()

	b.ParamsChanged()

	if got := a.CachedImage(); got != aCache {
		t.Error("upstream cache was invalidated by a downstream edit")
	}
	if b.HasCachedImage() {
		t.Error("edited stage still has a cache")
	}
	if c.HasCachedImage() {
		t.Error("downstream stage still has a cache")
	}
	if chain.composite.Valid() {
		t.Error("composite cache still valid after edit")
	}

	// Recompute: A must not re-run.
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}
	if got := trs[0].calls(); got != 1 {
		t.Errorf("A Apply called %d times, want 1", got)
	}
	if got := trs[1].calls(); got != 2 {
		t.Errorf("B Apply called %d times, want 2", got)
	}
}

func TestLayerLevelEditKeepsOwnTransformCache(t *testing.T) {
	tests := []struct {
		name string
		edit func(s *Stage)
	}{
		{"opacity", func(s *Stage) { s.SetOpacity(0.5) }},
		{"blendMode", func(s *Stage) { s.SetMode(BlendMultiply) }},
		{"visibility", func(s *Stage) { s.SetEnabled(false) }},
		{"mask", func(s *Stage) { s.SetMask(NewMask(8, 8)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, _ := buildChain(t, "A", "B", "C")
			if _, err := chain.EffectiveImage(); err != nil {
				t.Fatalf("EffectiveImage() failed: %v", err)
			}

			a, b, c := chain.StageAt(0), chain.StageAt(1), chain.StageAt(2)
			aCache, bCache := a.CachedImage(), b.CachedImage()

			tt.edit(b)

			if got := a.CachedImage(); got != aCache {
				t.Error("upstream transform cache invalidated")
			}
			if got := b.CachedImage(); got != bCache {
				t.Error("edited stage's own transform cache invalidated")
			}
			if c.HasCachedImage() {
				t.Error("downstream cache survived a layer-level edit")
			}
			if chain.composite.Valid() {
				t.Error("composite cache survived a layer-level edit")
			}
		})
	}
}

func TestLayerLevelEditNoOpOnSameValue(t *testing.T) {
	chain, _ := buildChain(t, "A", "B")
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}
	a := chain.StageAt(0)

	a.SetOpacity(1)
	a.SetMode(BlendNormal)
	a.SetEnabled(true)

	if !chain.composite.Valid() {
		t.Error("setting an unchanged value invalidated the composite")
	}
}

func TestDisabledStagePassesThrough(t *testing.T) {
	chain, trs := buildChain(t, "A")
	a := chain.StageAt(0)
	a.SetEnabled(false)

	src, _ := chain.Root().Image()
	out, err := a.Image()
	if err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	if out != src {
		t.Error("disabled stage did not pass its source image through")
	}
	if got := trs[0].calls(); got != 0 {
		t.Errorf("disabled stage ran its transform %d times", got)
	}
	if a.HasCachedImage() {
		t.Error("disabled stage cached a pass-through image")
	}
}

func TestMaskAppliedToPrivateCopy(t *testing.T) {
	chain, _ := buildChain(t, "A")
	a := chain.StageAt(0)

	if _, err := a.Image(); err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	unmasked := CloneImage(a.CachedImage())

	mask := NewMask(8, 8)
	mask.Fill(0) // hide everything
	a.SetMask(mask)

	if _, err := a.Image(); err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	if !PixelsEqual(a.CachedImage(), unmasked) {
		t.Error("masking mutated the shared transform cache")
	}
}

func TestMaskedStageCompositesOverSource(t *testing.T) {
	chain, _ := buildChain(t, "A")
	a := chain.StageAt(0)

	mask := NewMask(8, 8)
	mask.Fill(0) // stage output fully hidden
	a.SetMask(mask)

	src, _ := chain.Root().Image()
	out, err := a.Image()
	if err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	if out == src {
		t.Fatal("composite path returned the shared source image")
	}
	if !PixelsEqual(out, src) {
		t.Error("fully-masked stage should show the source image unchanged")
	}
}

func TestAliasingTransformGetsDefensiveCopy(t *testing.T) {
	chain := NewChain(NewStaticSource(testImage(8, 8)))
	tr := &countingTransform{name: "Noop", aliasInput: true}
	if _, err := chain.Append(tr); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	s := chain.StageAt(0)
	if _, err := s.Image(); err != nil {
		t.Fatalf("Image() failed: %v", err)
	}

	src, _ := chain.Root().Image()
	if SharesBuffer(s.CachedImage(), src) {
		t.Error("cache is aliased with the upstream image")
	}
	if !PixelsEqual(s.CachedImage(), src) {
		t.Error("defensive copy changed pixel content")
	}
}

func TestCroppingTransformGetsDefensiveCopy(t *testing.T) {
	chain := NewChain(NewStaticSource(testImage(8, 8)))
	crop := NewTransformFunc("Crop", func(src *image.RGBA) (*image.RGBA, error) {
		// An interior sub-image aliases the input buffer at an offset.
		return src.SubImage(image.Rect(2, 2, 6, 6)).(*image.RGBA), nil
	})
	if _, err := chain.Append(crop); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	s := chain.StageAt(0)
	if _, err := s.Image(); err != nil {
		t.Fatalf("Image() failed: %v", err)
	}

	src, _ := chain.Root().Image()
	if SharesBuffer(s.CachedImage(), src) {
		t.Error("cached crop is aliased with the upstream image")
	}
}

func TestTransformFailure(t *testing.T) {
	chain, trs := buildChain(t, "A", "B", "C")
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}

	a, b, c := chain.StageAt(0), chain.StageAt(1), chain.StageAt(2)
	aCache := a.CachedImage()

	failure := errors.New("boom")
	trs[1].failWith = failure
	b.InvalidateCache()

	if _, err := b.Image(); !errors.Is(err, failure) {
		t.Fatalf("Image() error = %v, want wrapped %v", err, failure)
	}
	if b.HasCachedImage() {
		t.Error("failed stage holds a cache")
	}
	if got := a.CachedImage(); got != aCache {
		t.Error("upstream cache invalidated by a failed attempt")
	}
	// A failed attempt must not invalidate downstream as a side effect.
	if !c.HasCachedImage() {
		t.Error("downstream cache invalidated by a failed attempt")
	}

	// Recovery: clearing the failure makes the chain compute again.
	trs[1].failWith = nil
	if _, err := b.Image(); err != nil {
		t.Fatalf("Image() after recovery failed: %v", err)
	}
	if !b.HasCachedImage() {
		t.Error("stage did not cache after recovery")
	}
}

func TestSetTransformInvalidatesAll(t *testing.T) {
	chain, _ := buildChain(t, "A", "B")
	if _, err := chain.EffectiveImage(); err != nil {
		t.Fatalf("EffectiveImage() failed: %v", err)
	}

	a, b := chain.StageAt(0), chain.StageAt(1)

	if err := a.SetTransform(&countingTransform{name: "A2", delta: 9}); err != nil {
		t.Fatalf("SetTransform failed: %v", err)
	}

	if a.HasCachedImage() || b.HasCachedImage() {
		t.Error("caches survived a transform replacement")
	}
	if chain.composite.Valid() {
		t.Error("composite survived a transform replacement")
	}

	if err := a.SetTransform(nil); !errors.Is(err, ErrNilTransform) {
		t.Errorf("SetTransform(nil) error = %v, want ErrNilTransform", err)
	}
}

func TestEvaluateNowPopulatesOnce(t *testing.T) {
	chain, trs := buildChain(t, "A")
	a := chain.StageAt(0)

	if err := a.EvaluateNow(); err != nil {
		t.Fatalf("EvaluateNow() failed: %v", err)
	}
	if !a.HasCachedImage() {
		t.Fatal("EvaluateNow did not populate the cache")
	}
	if err := a.EvaluateNow(); err != nil {
		t.Fatalf("EvaluateNow() failed: %v", err)
	}
	if got := trs[0].calls(); got != 1 {
		t.Errorf("Apply called %d times, want 1", got)
	}
}

func TestInvalidateCacheIdempotent(t *testing.T) {
	chain, _ := buildChain(t, "A")
	a := chain.StageAt(0)

	if _, err := a.Image(); err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	a.InvalidateCache()
	gen1 := func() uint64 {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.generation
	}
	g := gen1()
	a.InvalidateCache()
	if a.HasCachedImage() {
		t.Error("cache present after invalidation")
	}
	if gen1() == g {
		t.Error("second invalidation did not advance the generation")
	}
}

func TestSetSourceRejectsCycles(t *testing.T) {
	chain, _ := buildChain(t, "A", "B", "C")
	a, c := chain.StageAt(0), chain.StageAt(2)

	origSource := a.Source()

	if err := a.SetSource(a); !errors.Is(err, ErrStageCycle) {
		t.Errorf("SetSource(self) error = %v, want ErrStageCycle", err)
	}
	if err := a.SetSource(c); !errors.Is(err, ErrStageCycle) {
		t.Errorf("SetSource(descendant) error = %v, want ErrStageCycle", err)
	}
	if err := a.SetSource(nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("SetSource(nil) error = %v, want ErrNilSource", err)
	}
	if a.Source() != origSource {
		t.Error("rejected SetSource modified the stage")
	}
	if err := chain.checkInvariants(); err != nil {
		t.Errorf("chain invariants broken after rejected edits: %v", err)
	}

	// Rewiring to an upstream stage is legal.
	if err := c.SetSource(a); err != nil {
		t.Errorf("SetSource(upstream) failed: %v", err)
	}
}

func TestPreviewSession(t *testing.T) {
	chain, trs := buildChain(t, "A")
	a := chain.StageAt(0)

	if err := a.StartPreview(true); err != nil {
		t.Fatalf("StartPreview(first) failed: %v", err)
	}
	if !a.HasCachedImage() {
		t.Fatal("first preview did not populate the cache")
	}
	if got := trs[0].calls(); got != 1 {
		t.Fatalf("Apply called %d times after first preview, want 1", got)
	}

	// A later preview means a parameter changed: recompute.
	if err := a.StartPreview(false); err != nil {
		t.Fatalf("StartPreview(subsequent) failed: %v", err)
	}
	if got := trs[0].calls(); got != 2 {
		t.Errorf("Apply called %d times after second preview, want 2", got)
	}

	a.CancelPreview(true)
	if a.HasCachedImage() {
		t.Error("cache survived a canceled preview with changed settings")
	}

	if err := a.StartPreview(true); err != nil {
		t.Fatalf("StartPreview failed: %v", err)
	}
	a.CancelPreview(false)
	if !a.HasCachedImage() {
		t.Error("cache dropped by a canceled preview without changes")
	}
}

func TestOpacityCompositing(t *testing.T) {
	chain, _ := buildChain(t, "A")
	a := chain.StageAt(0)
	a.SetOpacity(0) // fully transparent stage output

	src, _ := chain.Root().Image()
	out, err := a.Image()
	if err != nil {
		t.Fatalf("Image() failed: %v", err)
	}
	if out == src {
		t.Fatal("composite path returned the shared source image")
	}
	if !PixelsEqual(out, src) {
		t.Error("zero-opacity stage should show the source unchanged")
	}
	// The transform cache still exists and is unmodified by compositing.
	if !a.HasCachedImage() {
		t.Error("compositing path skipped the transform cache")
	}
}
