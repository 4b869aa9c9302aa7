package session

import "errors"

// ErrSessionReused is returned when Run is called on a controller that has
// already run. Controllers are single-use; see the package documentation.
var ErrSessionReused = errors.New("session controller cannot be reused")
