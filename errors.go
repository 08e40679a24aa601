package toolgate

import (
	"github.com/armatrix/toolgate/internal/fspath"
	"github.com/armatrix/toolgate/internal/pattern"
)

// Sentinel errors surfaced by engine construction and evaluation.
var (
	// ErrInvalidPattern marks a configured glob that cannot be compiled.
	// It is fatal for configuration: a broken rule would otherwise fail
	// open unnoticed.
	ErrInvalidPattern = pattern.ErrInvalid

	// ErrPathResolution marks a path that cannot be canonicalized. During
	// evaluation it is non-fatal: the affected check is skipped and the
	// remaining checks still run.
	ErrPathResolution = fspath.ErrResolve
)
