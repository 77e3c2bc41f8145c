package models

import "errors"

var (
	// ErrIndexOutOfRange is returned when a slice index falls outside the
	// extent of the fixed axis. Indices are never clamped.
	ErrIndexOutOfRange = errors.New("slice index out of range")

	// ErrShapeMismatch is returned when two arrays that must align differ in shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidShape is returned for volumes with a non-positive extent or a
	// data length that does not match the extents.
	ErrInvalidShape = errors.New("invalid volume shape")

	// ErrInvalidKernel is returned for density kernels that are not odd and positive.
	ErrInvalidKernel = errors.New("kernel size must be odd and positive")
)
