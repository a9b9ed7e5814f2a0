package network

import (
	"errors"

	"github.com/born-ml/lazyml/internal/backend"
)

// Common errors.
var (
	// ErrConfiguration reports an invalid topology or an incompatible saved
	// model. It is always returned before any device allocation.
	ErrConfiguration = backend.ErrConfiguration

	// ErrShapeMismatch reports inputs or outputs whose count or width does not
	// fit the network. The network stays usable.
	ErrShapeMismatch = errors.New("shape mismatch")
)
