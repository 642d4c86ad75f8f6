package domain

import "errors"

var (
	// ErrIdentityConflict signals a lost race creating a fingerprint
	// mapping; the resolver retries it internally.
	ErrIdentityConflict = errors.New("identity conflict")

	// ErrUnresolvableIdentity means no profile id could be produced for a
	// fingerprint. Fatal for the report that carried it.
	ErrUnresolvableIdentity = errors.New("unresolvable identity")

	// ErrProfileNotFound is returned by aggregate reads for unknown ids.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrOutcomeNotFound is returned by ledger reads for unknown hashes.
	ErrOutcomeNotFound = errors.New("outcome not found")

	// ErrDuplicateOutcome signals that the ledger already holds a row for
	// this hash. The coordinator maps it to StatusDuplicateIgnored.
	ErrDuplicateOutcome = errors.New("duplicate outcome")
)
