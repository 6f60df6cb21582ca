package vault

import "errors"

var (
	// ErrNotFound covers both records that do not exist and records owned by
	// another user. The two cases are deliberately indistinguishable so that
	// probing ids leaks nothing about other users' data.
	ErrNotFound = errors.New("vault: not found")
	// ErrValidation signals malformed input: empty name, negative size,
	// unknown color swatch. Wrapped with field detail at the call site.
	ErrValidation = errors.New("vault: invalid input")
	// ErrCycle is returned when reparenting would make a folder its own
	// ancestor.
	ErrCycle = errors.New("vault: folder cycle")
	// ErrUsernameTaken is returned when registering a duplicate username.
	ErrUsernameTaken = errors.New("vault: username already taken")
	// ErrObjectStore signals that the byte backend failed or disagrees with
	// the metadata, for example a stored file whose object is gone.
	ErrObjectStore = errors.New("vault: object store failure")
)
