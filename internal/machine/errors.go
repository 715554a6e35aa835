package machine

import "errors"

// ErrUnknownLaw is returned when no version of the requested law is in force
// at the reference date.
var ErrUnknownLaw = errors.New("unknown law")
