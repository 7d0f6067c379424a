package graph

import "errors"

var (
	ErrUnknownPass    = errors.New("graph: unknown pass type")
	ErrDuplicatePass  = errors.New("graph: duplicate pass name")
	ErrNoSuchPass     = errors.New("graph: no pass with that name")
	ErrUnknownField   = errors.New("graph: unknown pass field")
	ErrInvalidEdge    = errors.New("graph: invalid edge")
	ErrCycle          = errors.New("graph: dependency cycle")
	ErrMissingInput   = errors.New("graph: required input not connected")
	ErrMissingOutput  = errors.New("graph: no graph output")
	ErrFormatMismatch = errors.New("graph: resource format mismatch")
	ErrInvalidDim     = errors.New("graph: invalid frame dimensions")
	ErrNotCompiled    = errors.New("graph: not compiled")
	ErrInvalidConfig  = errors.New("graph: invalid pass configuration")
)
