package backup

import (
	"errors"

	"github.com/dshills/brewvault/pkg/validation"
)

// Process exit statuses. The values are a stable contract for scripts
// and schedulers wrapping the tool.
const (
	// ExitSuccess: the run completed, including "nothing changed".
	ExitSuccess = 0
	// ExitCritical: dependency install or artifact generation failed.
	ExitCritical = 1
	// ExitConfig: invalid configuration value.
	ExitConfig = 2
	// ExitPermission: a required directory is not writable or creatable.
	ExitPermission = 3
)

// ExitCodeFor maps an error to the documented exit status. A nil error
// is success; permission and configuration failures are recognized by
// type; everything else is a critical failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var pathErr *validation.PathError
	if errors.As(err, &pathErr) {
		return ExitPermission
	}

	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		return ExitConfig
	}

	return ExitCritical
}
