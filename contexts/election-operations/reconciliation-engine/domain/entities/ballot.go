package entities

import "time"

// BallotSource marks which channel produced a canonical ledger row.
type BallotSource string

const (
	BallotSourceOnline  BallotSource = "online"
	BallotSourceOffline BallotSource = "offline"
)

// Vote is one canonical ledger row: a single (voter, candidate) selection in
// an election. Rows are append-only; corrective deletion is external tooling.
type Vote struct {
	VoteID      string
	VoterID     string
	ElectionID  string
	CandidateID string
	CastAt      time.Time
	Source      BallotSource
	RecordedBy  string
	CreatedAt   time.Time
}

// OfflineBallot is a field-admin keyed ballot queued for reconciliation.
// VID is the human-facing identifier as entered, not a foreign key; the
// referenced voter may not exist yet. IsMerged=false is the queue state,
// IsMerged=true is terminal whether or not the merge produced a ledger row.
type OfflineBallot struct {
	BallotID         string
	VID              string
	ElectionID       string
	CandidateID      string
	CastAt           time.Time
	EnteredByAdminID string
	Notes            string
	IsMerged         bool
	MergedAt         *time.Time
	CreatedAt        time.Time
}

// ElectionStatus values mirror the externally-owned elections table.
type ElectionStatus string

const (
	ElectionStatusUpcoming  ElectionStatus = "UPCOMING"
	ElectionStatusActive    ElectionStatus = "ACTIVE"
	ElectionStatusCompleted ElectionStatus = "COMPLETED"
)

// CandidateStatus values mirror the externally-owned candidates table.
type CandidateStatus string

const (
	CandidateStatusPending   CandidateStatus = "PENDING"
	CandidateStatusApproved  CandidateStatus = "APPROVED"
	CandidateStatusRejected  CandidateStatus = "REJECTED"
	CandidateStatusWithdrawn CandidateStatus = "WITHDRAWN"
)

// MergeReport summarizes one reconciliation pass for administrative review.
// A non-empty Skipped list is not a failure of the pass.
type MergeReport struct {
	MergedCount int
	VoterCount  int
	Skipped     []SkippedVoter
}

// SkippedVoter records why a voter's offline ballots produced no ledger rows
// in this pass.
type SkippedVoter struct {
	VID    string
	Reason string
}

// Skip reasons reported in MergeReport. Transactional failures are reported
// with the underlying error text instead.
const (
	SkipReasonVoterNotFound        = "VoterNotFound"
	SkipReasonAmbiguousVID         = "AmbiguousVID"
	SkipReasonAlreadyHasOnlineVote = "AlreadyHasOnlineVote"
)
