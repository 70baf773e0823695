package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrArtifactNotFound carries the fixed user-facing reason written when no
	// output file can be correlated with a finished generation.
	ErrArtifactNotFound = errors.New("file not found after generation")

	ErrUploadFailed = errors.New("reference image upload failed")
)
