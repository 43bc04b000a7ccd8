package errors

import "errors"

var (
	ErrInvalidBallotInput     = errors.New("invalid offline ballot input")
	ErrBallotNotFound         = errors.New("offline ballot not found")
	ErrVoterNotFound          = errors.New("voter not found")
	ErrAmbiguousVID           = errors.New("vid matches multiple voters")
	ErrVoterZoneUnassigned    = errors.New("voter has no zone assignment for this election type")
	ErrAlreadyVoted           = errors.New("voter already has a ballot for this election")
	ErrSeatQuotaExceeded      = errors.New("selection count exceeds the zone seat quota")
	ErrElectionNotFound       = errors.New("election not found")
	ErrElectionNotActive      = errors.New("election is not the active election of its type")
	ErrCandidateNotFound      = errors.New("candidate not found")
	ErrCandidateNotInZone     = errors.New("candidate does not belong to the voter's zone")
	ErrZoneNotFound           = errors.New("zone not found")
	ErrCandidateNotVotable    = errors.New("candidate is not an approved ballot target")
	ErrConflict               = errors.New("ballot conflict")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
	ErrTransientStorage       = errors.New("transient storage failure")
)

// IsRetryable reports whether a merge failure should leave the voter's
// ballots queued for the next pass rather than require operator attention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}
