package transform

import "errors"

var (
	// ErrUnmappedValue is returned when a raw value has no entry in a lookup table.
	// It is never papered over with a plausible-looking state.
	ErrUnmappedValue = errors.New("unmapped value")

	// ErrSuppress tells the binding engine not to push a notify for this
	// change. It is not a failure: some raw states say nothing about a
	// characteristic (an obstruction code says nothing about the target door state).
	ErrSuppress = errors.New("no update")
)
