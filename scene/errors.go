package scene

import "errors"

var (
	ErrInvalidTransform = errors.New("scene: invalid transform")
	ErrNoPrimitives     = errors.New("scene: aggregate requires at least one primitive")
)
