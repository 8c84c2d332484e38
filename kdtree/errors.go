package kdtree

import "errors"

var (
	ErrInvalidOptions = errors.New("kdtree: invalid options")
	ErrTreeTooLarge   = errors.New("kdtree: tree exceeds addressable node or reference count")
	ErrBadMagic       = errors.New("kdtree: incorrect magic number in cache")
	ErrCorruptCache   = errors.New("kdtree: corrupt cache")
	ErrNoCapabilities = errors.New("kdtree: bounds and intersect functions are required")
)
