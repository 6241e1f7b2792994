package native

import "errors"

// Unlike the frontend, which reports source errors directly to the user, the
// native backend returns sentinel errors so callers can fall back to another
// backend or surface a clean message. The first error encountered wins.
var (
	ErrUndefinedSymbol       = errors.New("undefined symbol")
	ErrUnsupportedNode       = errors.New("unsupported construct")
	ErrUnsupportedOperator   = errors.New("unsupported operator")
	ErrUnsupportedCallTarget = errors.New("unsupported call target")
	ErrMissingEntryPoint     = errors.New("no `main` function")
	ErrEncoding              = errors.New("cannot encode instruction")
	ErrIO                    = errors.New("executable write failed")
)
