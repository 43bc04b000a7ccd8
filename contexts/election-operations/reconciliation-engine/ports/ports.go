package ports

import (
	"context"
	"time"

	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	contractsv1 "scrutin/contracts/gen/events/v1"
)

// VoterProjection is the read-only slice of the externally-owned voters
// table, plus the has_voted flag this module is responsible for maintaining.
type VoterProjection struct {
	ID       string
	VID      string
	IsActive bool
	HasVoted bool
}

// ElectionProjection mirrors the externally-owned elections table.
type ElectionProjection struct {
	ID     string
	Type   string
	Status entities.ElectionStatus
	Title  string
}

// CandidateProjection mirrors the externally-owned candidates table.
type CandidateProjection struct {
	ID           string
	ZoneID       string
	ElectionType string
	Name         string
	Status       entities.CandidateStatus
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

// VoterDirectory resolves voters and maintains the has_voted projection.
// SetHasVoted outside a merge transaction exists only for RecomputeHasVoted;
// merge-path writes go through MergeTx.
type VoterDirectory interface {
	FindVotersByVIDs(ctx context.Context, vids []string) ([]VoterProjection, error)
	GetVoter(ctx context.Context, voterID string) (VoterProjection, error)
	ListVoterIDsMarkedHasVoted(ctx context.Context) ([]string, error)
	SetHasVoted(ctx context.Context, voterID string, hasVoted bool) error
}

// ElectionProvider exposes election state owned by election administration.
type ElectionProvider interface {
	GetElection(ctx context.Context, electionID string) (ElectionProjection, error)
	GetActiveElectionByType(ctx context.Context, electionType string) (ElectionProjection, bool, error)
}

// CandidateCatalog supplies valid ballot targets.
type CandidateCatalog interface {
	GetCandidate(ctx context.Context, candidateID string) (CandidateProjection, error)
}

// ZoneRegistry supplies zone metadata and per-election-type voter
// assignments.
type ZoneRegistry interface {
	GetZone(ctx context.Context, zoneID string) (ZoneProjection, error)
	GetVoterZone(ctx context.Context, voterID string, electionType string) (string, bool, error)
}

// VoteLedger is the read side of the canonical ledger used by intake checks
// and has_voted recomputation. All merge-path writes go through MergeTx.
type VoteLedger interface {
	CountVotesForVoter(ctx context.Context, voterID string, electionID string) (int, error)
	ListVoterIDsWithVotes(ctx context.Context, electionID string) ([]string, error)
	// ListVoterIDsWithAnyVotes lists voters holding at least one ledger row
	// in any election. has_voted covers a voter's whole ledger footprint, so
	// clearing the flag consults this set, never a single election's rows.
	ListVoterIDsWithAnyVotes(ctx context.Context) ([]string, error)
}

// OfflineBallotRepository owns the offline ballot queue.
type OfflineBallotRepository interface {
	SaveOfflineBallot(ctx context.Context, ballot entities.OfflineBallot) error
	GetOfflineBallot(ctx context.Context, ballotID string) (entities.OfflineBallot, error)
	// ListUnmerged returns the queue state for one election, oldest first.
	ListUnmerged(ctx context.Context, electionID string) ([]entities.OfflineBallot, error)
	// CountUnmergedForVIDs counts queued (is_merged=false) rows matching any
	// of the given VIDs in one election; intake uses it for the AlreadyVoted
	// and seat-quota checks. Merged rows already live in the ledger and must
	// not count twice.
	CountUnmergedForVIDs(ctx context.Context, vids []string, electionID string) (int, error)
}

// MergeTx exposes the writes permitted inside a single voter's merge
// transaction. Implementations must hold a row-level lock on the voter so
// CountVotes and InsertVotes are atomic with respect to concurrent
// online-ballot writes for the same voter.
type MergeTx interface {
	CountVotes(voterID string, electionID string) (int, error)
	InsertVotes(votes []entities.Vote) error
	MarkBallotsMerged(ballotIDs []string, mergedAt time.Time) error
	SetHasVoted(voterID string, hasVoted bool) error
}

// MergeTxRunner opens the per-voter atomic unit of the reconciliation pass.
// A returned error discards every write made through the MergeTx.
type MergeTxRunner interface {
	InVoterMergeTx(ctx context.Context, voterID string, fn func(MergeTx) error) error
}

// IdempotencyRecord captures dedupe metadata for mutating intake requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	BallotID    string
	ExpiresAt   time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// EventEnvelope reuses the canonical cross-module envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxWriter appends integration events alongside state changes.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// Clock allows deterministic testing of timestamps and TTL rules.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts ballot/vote/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
