package lookup

import (
	"errors"

	"kabimap/internal/query"
)

var (
	ErrBadArgs     = errors.New("bad arguments")
	ErrMissingFile = errors.New("missing file")
)

// Exit statuses of a lookup run.
const (
	ExitSuccess     = 0
	ExitNotFound    = 1
	ExitAmbiguous   = 2
	ExitBadArgs     = 3
	ExitMissingFile = 4
	ExitFailure     = 5 // anything else, such as a cancelled run
)

// ExitCode maps a Run error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrBadArgs):
		return ExitBadArgs
	case errors.Is(err, query.ErrAmbiguous):
		return ExitAmbiguous
	case errors.Is(err, ErrMissingFile):
		return ExitMissingFile
	case errors.Is(err, query.ErrNotFound):
		return ExitNotFound
	}
	return ExitFailure
}
