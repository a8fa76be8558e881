package poelog

import "errors"

// Sentinel errors returned by this package.
var (
	// ErrPathRequired is returned by ParseFile when no path is given.
	ErrPathRequired = errors.New("poelog: path required")

	// ErrInvalidOption is returned by NewMonitor for invalid option values.
	ErrInvalidOption = errors.New("poelog: invalid option")
)
