package filterchain

// Clipboard holds at most one copied stage for paste into the same or
// another chain. It is an explicit session-scoped object: the host
// application creates one per editing session and passes it where copy and
// paste are offered, instead of sharing process-wide state.
//
// A copy captures the transform (deep-cloned with its parameters) and the
// stage-level settings, but never the cached output: a pasted stage always
// recomputes against its new position.
type Clipboard struct {
	snap *stageSnapshot
}

// stageSnapshot is the deep-copied editable state of a stage.
type stageSnapshot struct {
	transform Transform
	enabled   bool
	opacity   float32
	blendMode BlendMode
	mask      *Mask
}

// NewClipboard creates an empty clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Copy captures s. Any previously held stage is replaced.
func (cb *Clipboard) Copy(s *Stage) {
	cb.snap = &stageSnapshot{
		transform: s.transform.Clone(),
		enabled:   s.enabled,
		opacity:   s.opacity,
		blendMode: s.blendMode,
		mask:      s.mask.Clone(),
	}
}

// HasStage reports whether the clipboard holds a copied stage.
func (cb *Clipboard) HasStage() bool {
	return cb.snap != nil
}

// Clear empties the clipboard.
func (cb *Clipboard) Clear() {
	cb.snap = nil
}

// Paste inserts a new stage built from the held snapshot into c at index.
// The clipboard keeps its content, so the same stage can be pasted more
// than once; each paste gets an independent transform clone.
func (cb *Clipboard) Paste(c *Chain, index int) (*Stage, error) {
	if cb.snap == nil {
		return nil, ErrEmptyClipboard
	}
	s, err := c.Insert(cb.snap.transform.Clone(), index)
	if err != nil {
		return nil, err
	}
	// Settings are applied directly: Insert already invalidated the new
	// stage and everything downstream, so the per-setter invalidations
	// would be redundant.
	s.mu.Lock()
	s.enabled = cb.snap.enabled
	s.opacity = cb.snap.opacity
	s.blendMode = cb.snap.blendMode
	s.mask = cb.snap.mask.Clone()
	s.mu.Unlock()
	return s, nil
}
