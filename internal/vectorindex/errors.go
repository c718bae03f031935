package vectorindex

import "errors"

var (
	ErrInvalidDimension  = errors.New("invalid vector dimension")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrCountMismatch     = errors.New("vector count does not match metadata")
	ErrBadIndexFile      = errors.New("not an index file")
	ErrLockTimeout       = errors.New("index is locked by another process")
)
