package repository

import "errors"

// ErrStatusConflict means a compare-and-swap write lost to a concurrent
// writer: the row was not at the status the caller observed.
var ErrStatusConflict = errors.New("status conflict")
