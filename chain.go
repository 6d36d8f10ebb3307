package filterchain

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Chain owns an ordered sequence of filter stages and exposes the effective
// image of the whole chain. It holds the top-level composite cache and
// coordinates structural edits (insert, remove, move) together with the
// cache invalidation they require.
//
// Stage source/next links are rewired centrally by the chain from the
// ordered arena after every structural edit, so the no-cycle and
// single-predecessor invariants are enforced in one place. Edits that would
// violate them are rejected before any shared state changes.
//
// A chain belongs to a single owning goroutine (typically the UI/event
// loop); see [Evaluator] for offloading expensive transform work.
type Chain struct {
	id        uuid.UUID
	stages    []*Stage
	root      ImageSource
	composite *Lazy[*image.RGBA]
	version   uint64
	onChange  func()
}

// NewChain creates an empty chain above the given root source.
func NewChain(root ImageSource) *Chain {
	c := &Chain{
		id:   uuid.New(),
		root: root,
	}
	c.composite = NewLazy(c.computeComposite)
	return c
}

// ID returns the chain's stable identifier.
func (c *Chain) ID() uuid.UUID { return c.id }

// SetOnChange registers the host's change callback. The chain calls it
// after any edit that alters the effective image, so the host can
// recomposite and refresh thumbnails. Pass nil to remove the callback.
func (c *Chain) SetOnChange(fn func()) {
	c.onChange = fn
}

// notifyChanged invokes the host's change callback, if any.
func (c *Chain) notifyChanged() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Len returns the number of stages in the chain.
func (c *Chain) Len() int { return len(c.stages) }

// StageAt returns the stage at index i, or nil if out of range.
func (c *Chain) StageAt(i int) *Stage {
	if i < 0 || i >= len(c.stages) {
		return nil
	}
	return c.stages[i]
}

// IndexOf returns the position of s in the chain, or -1.
func (c *Chain) IndexOf(s *Stage) int {
	return slices.Index(c.stages, s)
}

// Contains reports whether s belongs to the chain.
func (c *Chain) Contains(s *Stage) bool {
	return c.IndexOf(s) >= 0
}

// Stages returns the stages in order. The returned slice is a copy.
func (c *Chain) Stages() []*Stage {
	return slices.Clone(c.stages)
}

// Root returns the chain's root image source.
func (c *Chain) Root() ImageSource { return c.root }

// Version returns a counter that changes whenever the chain's effective
// image may have changed. Thumbnail caches key on it.
func (c *Chain) Version() uint64 { return c.version }

// EffectiveImage returns the fully composed output of the chain: the tail
// stage's image, or the root image when the chain is empty. The result is
// cached at the chain level until the next invalidation and must be treated
// as read-only.
func (c *Chain) EffectiveImage() (*image.RGBA, error) {
	return c.composite.Get()
}

// computeComposite is the Lazy compute function behind EffectiveImage.
func (c *Chain) computeComposite() (*image.RGBA, error) {
	if n := len(c.stages); n > 0 {
		return c.stages[n-1].Image()
	}
	if c.root == nil {
		return nil, ErrNilSource
	}
	return c.root.Image()
}

// InvalidateComposite discards the chain-level composite cache. Called by
// stages whenever their invalidation reaches the tail output.
func (c *Chain) InvalidateComposite() {
	c.composite.Invalidate()
	c.version++
}

// Insert creates a new stage around t and links it into the chain at
// index (0 = directly above the root). The new stage and everything
// downstream of it are invalidated, since the identity of what feeds those
// stages changed.
func (c *Chain) Insert(t Transform, index int) (*Stage, error) {
	if t == nil {
		return nil, ErrNilTransform
	}
	if index < 0 || index > len(c.stages) {
		return nil, fmt.Errorf("%w: insert at %d with %d stages", ErrIndexRange, index, len(c.stages))
	}

	s := &Stage{
		id:        uuid.New(),
		chain:     c,
		transform: t,
		enabled:   true,
		opacity:   1,
		blendMode: BlendNormal,
	}
	c.stages = slices.Insert(c.stages, index, s)
	c.relink()

	s.InvalidateAll()
	logger().Info("stage inserted", "chain", c.id, "stage", s.id, "name", s.Name(), "index", index)
	c.notifyChanged()
	return s, nil
}

// Append inserts a new stage at the end of the chain.
func (c *Chain) Append(t Transform) (*Stage, error) {
	return c.Insert(t, len(c.stages))
}

// Remove unlinks s from the chain. The stage after it is rewired to source
// from the stage before it (or the root) and has its downstream chain
// invalidated. The removed stage is detached and its cache freed.
func (c *Chain) Remove(s *Stage) error {
	i := c.IndexOf(s)
	if i < 0 {
		return ErrStageNotFound
	}

	c.stages = slices.Delete(c.stages, i, i+1)
	c.relink()

	// Detach so a stale reference fails loudly instead of computing
	// against a chain it no longer belongs to.
	s.InvalidateCache()
	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()
	s.next = nil
	s.chain = nil

	if i < len(c.stages) {
		c.stages[i].InvalidateAll()
	} else {
		c.InvalidateComposite()
	}
	logger().Info("stage removed", "chain", c.id, "stage", s.id, "name", s.Name(), "index", i)
	c.notifyChanged()
	return nil
}

// Move relocates s to newIndex, preserving the order of the other stages.
// The edit is validated before commit: on failure the chain is left
// exactly as it was.
func (c *Chain) Move(s *Stage, newIndex int) error {
	i := c.IndexOf(s)
	if i < 0 {
		return ErrStageNotFound
	}
	if newIndex < 0 || newIndex >= len(c.stages) {
		return fmt.Errorf("%w: move to %d with %d stages", ErrIndexRange, newIndex, len(c.stages))
	}
	if i == newIndex {
		return nil
	}

	prev := slices.Clone(c.stages)
	c.stages = slices.Delete(c.stages, i, i+1)
	c.stages = slices.Insert(c.stages, newIndex, s)
	c.relink()

	if err := c.checkInvariants(); err != nil {
		c.stages = prev
		c.relink()
		logger().Warn("move rejected", "chain", c.id, "stage", s.id, "err", err)
		return err
	}

	lo := min(i, newIndex)
	c.stages[lo].InvalidateAll()
	logger().Info("stage moved", "chain", c.id, "stage", s.id, "from", i, "to", newIndex)
	c.notifyChanged()
	return nil
}

// MoveUp moves s one position toward the tail (applied later).
func (c *Chain) MoveUp(s *Stage) error {
	i := c.IndexOf(s)
	if i < 0 {
		return ErrStageNotFound
	}
	return c.Move(s, i+1)
}

// MoveDown moves s one position toward the root (applied earlier).
func (c *Chain) MoveDown(s *Stage) error {
	i := c.IndexOf(s)
	if i < 0 {
		return ErrStageNotFound
	}
	return c.Move(s, i-1)
}

// ReplaceTransform swaps the transform of a stage that belongs to this
// chain. Delegates to [Stage.SetTransform].
func (c *Chain) ReplaceTransform(s *Stage, t Transform) error {
	if !c.Contains(s) {
		return ErrStageNotFound
	}
	return s.SetTransform(t)
}

// SetRootSource replaces the source below the first stage, for example
// when the chain is re-attached to different content. The whole chain is
// invalidated.
func (c *Chain) SetRootSource(root ImageSource) error {
	if root == nil {
		return ErrNilSource
	}
	c.root = root
	c.relink()
	c.RootChanged()
	return nil
}

// RootChanged must be called when the root source's content changes. Every
// stage cache derives from the root, so the full chain and the composite
// are invalidated.
func (c *Chain) RootChanged() {
	if len(c.stages) > 0 {
		c.stages[0].InvalidateAll()
	} else {
		c.InvalidateComposite()
	}
	c.notifyChanged()
}

// relink rewires every stage's source and next pointers from the arena
// order. Centralizing the rewiring here keeps the chain a simple singly
// linked list: no branching, no cycles, one predecessor per stage.
func (c *Chain) relink() {
	for i, s := range c.stages {
		src := c.root
		if i > 0 {
			src = c.stages[i-1]
		}
		var next *Stage
		if i+1 < len(c.stages) {
			next = c.stages[i+1]
		}
		// source is read by preview workers walking upstream; write it
		// under the stage lock.
		s.mu.Lock()
		s.source = src
		s.mu.Unlock()
		s.next = next
	}
}

// checkInvariants verifies the structural consistency of the entire chain.
func (c *Chain) checkInvariants() error {
	for i, s := range c.stages {
		if i == 0 && s.source != c.root {
			return fmt.Errorf("%w: first stage does not source from the root", ErrBrokenLink)
		}
		if err := s.checkInvariants(); err != nil {
			return err
		}
	}
	return nil
}

// DebugString renders the chain's stage names and cache states, e.g.
// "[Blur(cached), Brighten(empty)]".
func (c *Chain) DebugString() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range c.stages {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Name())
		if s.HasCachedImage() {
			b.WriteString("(cached)")
		} else {
			b.WriteString("(empty)")
		}
	}
	b.WriteByte(']')
	return b.String()
}
