package filterchain

import "errors"

// Structural and parameter errors returned by chain and stage operations.
// Operations that return one of these reject before mutating any state:
// the chain is always left in its previous valid configuration.
var (
	// ErrStageCycle is returned when an edit would make a stage depend,
	// directly or transitively, on its own output.
	ErrStageCycle = errors.New("filterchain: edit would create a cycle in the stage chain")

	// ErrStageNotFound is returned when a stage does not belong to the chain.
	ErrStageNotFound = errors.New("filterchain: stage not found in chain")

	// ErrBrokenLink is returned when the source/next links between stages
	// are inconsistent (a stage's next does not point back at it).
	ErrBrokenLink = errors.New("filterchain: stage links are inconsistent")

	// ErrNilTransform is returned when a nil transform is supplied.
	ErrNilTransform = errors.New("filterchain: transform is nil")

	// ErrNilSource is returned when a nil image source is supplied.
	ErrNilSource = errors.New("filterchain: image source is nil")

	// ErrIndexRange is returned for an out-of-range chain index.
	ErrIndexRange = errors.New("filterchain: index out of range")

	// ErrEmptyClipboard is returned when pasting from an empty clipboard.
	ErrEmptyClipboard = errors.New("filterchain: clipboard is empty")
)
