package profile

import "errors"

// ErrUnknownProfile is returned by Parse when the name does not match a
// built-in profile. Callers can use errors.Is() to detect it and print the
// available names from Names().
var ErrUnknownProfile = errors.New("unknown security profile: choose standard, stealth, or paranoid")
