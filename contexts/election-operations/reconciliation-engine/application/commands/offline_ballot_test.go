package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scrutin/contexts/election-operations/reconciliation-engine/adapters/memory"
	"scrutin/contexts/election-operations/reconciliation-engine/application/commands"
	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"
)

func newIntakeFixture() (commands.IntakeUseCase, *memory.Store) {
	store := memory.NewStore()
	store.SetElection(ports.ElectionProjection{
		ID:     "election-1",
		Type:   "general",
		Status: entities.ElectionStatusActive,
		Title:  "General Election",
	})
	store.SetZone(ports.ZoneProjection{
		ID:           "zone-1",
		Code:         "ZN-A",
		Name:         "Zone A",
		ElectionType: "general",
		Seats:        2,
		IsActive:     true,
	})
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	store.AssignVoterZone("voter-1", "general", "zone-1")
	store.SetCandidate(ports.CandidateProjection{
		ID:           "cand-1",
		ZoneID:       "zone-1",
		ElectionType: "general",
		Name:         "First Candidate",
		Status:       entities.CandidateStatusApproved,
	})
	intake := commands.IntakeUseCase{
		Voters:      store,
		Elections:   store,
		Candidates:  store,
		Zones:       store,
		Ledger:      store,
		Ballots:     store,
		Idempotency: store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
	}
	return intake, store
}

func recordCmd(key string) commands.RecordOfflineBallotCommand {
	return commands.RecordOfflineBallotCommand{
		VID:            "V0000123",
		ElectionID:     "election-1",
		CandidateID:    "cand-1",
		AdminID:        "admin-7",
		IdempotencyKey: key,
	}
}

func TestRecordOfflineBallotQueuesAndReplays(t *testing.T) {
	intake, store := newIntakeFixture()

	first, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1"))
	if err != nil {
		t.Fatalf("record offline ballot failed: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first record must not be a replay")
	}
	if first.Ballot.VID != "V0000123" || first.Ballot.IsMerged {
		t.Fatalf("unexpected ballot state: %+v", first.Ballot)
	}

	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued ballot, got %d", len(pending))
	}

	second, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replay marker on second call")
	}
	if second.Ballot.BallotID != first.Ballot.BallotID {
		t.Fatalf("replay returned a different ballot: %s vs %s", second.Ballot.BallotID, first.Ballot.BallotID)
	}
	if store.PendingOutboxCount() != 1 {
		t.Fatalf("expected exactly one outbox event, got %d", store.PendingOutboxCount())
	}
}

func TestRecordOfflineBallotRejectsReusedKeyWithDifferentPayload(t *testing.T) {
	intake, _ := newIntakeFixture()

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); err != nil {
		t.Fatalf("record offline ballot failed: %v", err)
	}
	conflicting := recordCmd("idem-1")
	conflicting.Notes = "different payload"
	if _, err := intake.RecordOfflineBallot(context.Background(), conflicting); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestRecordOfflineBallotRequiresIdempotencyKey(t *testing.T) {
	intake, _ := newIntakeFixture()

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("")); !errors.Is(err, domainerrors.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected idempotency key required, got %v", err)
	}
}

func TestRecordOfflineBallotNormalizesShortVID(t *testing.T) {
	intake, _ := newIntakeFixture()

	cmd := recordCmd("idem-1")
	cmd.VID = "123"
	result, err := intake.RecordOfflineBallot(context.Background(), cmd)
	if err != nil {
		t.Fatalf("record with short vid failed: %v", err)
	}
	if result.Ballot.VID != "V0000123" {
		t.Fatalf("expected canonical vid on ballot, got %s", result.Ballot.VID)
	}
}

func TestRecordOfflineBallotRejectsUnknownVoter(t *testing.T) {
	intake, _ := newIntakeFixture()

	cmd := recordCmd("idem-1")
	cmd.VID = "V9999999"
	if _, err := intake.RecordOfflineBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected voter not found, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsAmbiguousVID(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-2", VID: "123", IsActive: true})

	cmd := recordCmd("idem-1")
	cmd.VID = "123"
	if _, err := intake.RecordOfflineBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrAmbiguousVID) {
		t.Fatalf("expected ambiguous vid, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsInactiveVoter(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: false})

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected voter not found for inactive voter, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsNonActiveElection(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetElection(ports.ElectionProjection{
		ID:     "election-1",
		Type:   "general",
		Status: entities.ElectionStatusCompleted,
	})

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected election not active, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsCandidateOutsideVoterZone(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetCandidate(ports.CandidateProjection{
		ID:           "cand-other",
		ZoneID:       "zone-2",
		ElectionType: "general",
		Status:       entities.CandidateStatusApproved,
	})

	cmd := recordCmd("idem-1")
	cmd.CandidateID = "cand-other"
	if _, err := intake.RecordOfflineBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrCandidateNotInZone) {
		t.Fatalf("expected candidate not in zone, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsPendingCandidate(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetCandidate(ports.CandidateProjection{
		ID:           "cand-1",
		ZoneID:       "zone-1",
		ElectionType: "general",
		Status:       entities.CandidateStatusPending,
	})

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); !errors.Is(err, domainerrors.ErrCandidateNotVotable) {
		t.Fatalf("expected candidate not votable, got %v", err)
	}
}

func TestRecordOfflineBallotRejectsUnassignedVoter(t *testing.T) {
	intake, store := newIntakeFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-3", VID: "V0000777", IsActive: true})

	cmd := recordCmd("idem-1")
	cmd.VID = "V0000777"
	if _, err := intake.RecordOfflineBallot(context.Background(), cmd); !errors.Is(err, domainerrors.ErrVoterZoneUnassigned) {
		t.Fatalf("expected voter zone unassigned, got %v", err)
	}
}

func TestRecordOfflineBallotAllowsAdditionalAfterMerge(t *testing.T) {
	intake, store := newIntakeFixture()
	reconciler := commands.ReconcilerUseCase{
		Voters:    store,
		Elections: store,
		Ledger:    store,
		Ballots:   store,
		TxRunner:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
	}

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); err != nil {
		t.Fatalf("record offline ballot failed: %v", err)
	}
	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.MergedCount != 1 {
		t.Fatalf("expected 1 merged ballot, got %+v", report)
	}

	// The merged selection now lives in the ledger; it must occupy exactly
	// one of the two seats, not two.
	additional := recordCmd("idem-2")
	additional.AllowAdditional = true
	if _, err := intake.RecordOfflineBallot(context.Background(), additional); err != nil {
		t.Fatalf("second selection within quota rejected: %v", err)
	}

	exceeded := recordCmd("idem-3")
	exceeded.AllowAdditional = true
	if _, err := intake.RecordOfflineBallot(context.Background(), exceeded); !errors.Is(err, domainerrors.ErrSeatQuotaExceeded) {
		t.Fatalf("expected seat quota exceeded beyond two seats, got %v", err)
	}
}

func TestRecordOfflineBallotEnforcesBallotBudget(t *testing.T) {
	intake, store := newIntakeFixture()
	store.AddVote(entities.Vote{
		VoteID:      "vote-1",
		VoterID:     "voter-1",
		ElectionID:  "election-1",
		CandidateID: "cand-1",
		CastAt:      time.Now().UTC(),
		Source:      entities.BallotSourceOnline,
	})

	if _, err := intake.RecordOfflineBallot(context.Background(), recordCmd("idem-1")); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted without opt-in, got %v", err)
	}

	// Zone has two seats, so one additional selection is allowed.
	additional := recordCmd("idem-2")
	additional.AllowAdditional = true
	if _, err := intake.RecordOfflineBallot(context.Background(), additional); err != nil {
		t.Fatalf("additional selection within quota failed: %v", err)
	}

	exceeded := recordCmd("idem-3")
	exceeded.AllowAdditional = true
	if _, err := intake.RecordOfflineBallot(context.Background(), exceeded); !errors.Is(err, domainerrors.ErrSeatQuotaExceeded) {
		t.Fatalf("expected seat quota exceeded, got %v", err)
	}
}
