package repository

import "errors"

// Distinguished ledger errors. Handlers route these to a top-up prompt
// instead of a generic failure message.
var (
	ErrInsufficientMeasurementCredits = errors.New("insufficient_measurement_credits")
	ErrInsufficientGenerationCredits  = errors.New("insufficient_generation_credits")
)

// ErrNotFound is returned by conditional writes that matched no row,
// either because it does not exist or because it is owned by another
// user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not_found")
