package ports

import (
	"context"
	"time"
)

// TallyBallot is one canonical ledger row joined with the caster's VID so
// the read side can exclude reserved test voters.
type TallyBallot struct {
	VoteID      string
	VoterID     string
	VoterVID    string
	CandidateID string
	CastAt      time.Time
}

// ElectionProjection mirrors the externally-owned elections table.
type ElectionProjection struct {
	ID     string
	Type   string
	Status string
	Title  string
}

// CandidateProjection mirrors the externally-owned candidates table.
type CandidateProjection struct {
	ID           string
	ZoneID       string
	ElectionType string
	Name         string
	Status       string
	IsNota       bool
}

// ZoneProjection mirrors the externally-owned zones table.
type ZoneProjection struct {
	ID           string
	Code         string
	Name         string
	ElectionType string
	Seats        int
	IsActive     bool
}

// VoteLedgerReader is the lock-free read side of the canonical ledger.
// Listings tolerate eventual consistency with an in-flight merge.
type VoteLedgerReader interface {
	ListBallots(ctx context.Context, electionID string) ([]TallyBallot, error)
}

// ElectionProvider exposes election state owned by election administration.
type ElectionProvider interface {
	GetElection(ctx context.Context, electionID string) (ElectionProjection, error)
}

// CandidateCatalog lists the tally targets for an election type.
type CandidateCatalog interface {
	ListCandidatesByElectionType(ctx context.Context, electionType string) ([]CandidateProjection, error)
}

// ZoneRegistry lists zones and per-election-type voter assignments.
type ZoneRegistry interface {
	ListZonesByElectionType(ctx context.Context, electionType string) ([]ZoneProjection, error)
	GetVoterZone(ctx context.Context, voterID string, electionType string) (string, bool, error)
}
