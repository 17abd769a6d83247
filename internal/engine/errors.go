package engine

import "errors"

// ErrEmptyCandidatePool is returned when a recommendation is requested and
// no structurally valid candidate survives filtering.
var ErrEmptyCandidatePool = errors.New("empty candidate pool")
