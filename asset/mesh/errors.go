package mesh

import "errors"

var (
	ErrInvalidMesh  = errors.New("mesh: invalid mesh")
	ErrInvalidCache = errors.New("mesh: invalid mesh cache")
)
