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

func newReconcilerFixture() (commands.ReconcilerUseCase, *memory.Store) {
	store := memory.NewStore()
	store.SetElection(ports.ElectionProjection{
		ID:     "election-1",
		Type:   "general",
		Status: entities.ElectionStatusActive,
	})
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
	return reconciler, store
}

func seedBallot(t *testing.T, store *memory.Store, ballotID string, vid string, candidateID string, castAt time.Time) {
	t.Helper()
	err := store.SaveOfflineBallot(context.Background(), entities.OfflineBallot{
		BallotID:         ballotID,
		VID:              vid,
		ElectionID:       "election-1",
		CandidateID:      candidateID,
		CastAt:           castAt,
		EnteredByAdminID: "admin-7",
		CreatedAt:        castAt,
	})
	if err != nil {
		t.Fatalf("seed ballot %s failed: %v", ballotID, err)
	}
}

func TestMergePromotesQueuedBallots(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	store.SetVoter(ports.VoterProjection{ID: "voter-2", VID: "V0000456", IsActive: true})
	castAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	seedBallot(t, store, "ballot-1", "V0000123", "cand-1", castAt)
	seedBallot(t, store, "ballot-2", "V0000456", "cand-2", castAt.Add(time.Minute))

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.MergedCount != 2 || report.VoterCount != 2 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	votes := store.ListVotes("election-1")
	if len(votes) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(votes))
	}
	for _, vote := range votes {
		if vote.Source != entities.BallotSourceOffline {
			t.Fatalf("expected offline source, got %s", vote.Source)
		}
		if vote.RecordedBy != "admin-7" {
			t.Fatalf("expected recording admin preserved, got %s", vote.RecordedBy)
		}
	}
	if votes[0].CastAt != castAt && votes[1].CastAt != castAt {
		t.Fatalf("original cast timestamp not preserved: %+v", votes)
	}

	for _, voterID := range []string{"voter-1", "voter-2"} {
		voter, err := store.GetVoter(context.Background(), voterID)
		if err != nil {
			t.Fatalf("get voter failed: %v", err)
		}
		if !voter.HasVoted {
			t.Fatalf("expected has_voted set for %s", voterID)
		}
	}

	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after merge, got %d rows", len(pending))
	}
}

func TestMergeRerunIsIdempotent(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	seedBallot(t, store, "ballot-1", "V0000123", "cand-1", time.Now().UTC())

	if _, err := reconciler.MergeOfflineBallots(context.Background(), "election-1"); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	eventsAfterFirst := store.PendingOutboxCount()

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if report.MergedCount != 0 || report.VoterCount != 0 {
		t.Fatalf("rerun must be a no-op, got %+v", report)
	}
	if len(store.ListVotes("election-1")) != 1 {
		t.Fatalf("rerun duplicated ledger rows")
	}
	if store.PendingOutboxCount() != eventsAfterFirst {
		t.Fatalf("empty-queue rerun must not append events")
	}
}

func TestMergeOnlineVoteWins(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	store.AddVote(entities.Vote{
		VoteID:      "vote-online",
		VoterID:     "voter-1",
		ElectionID:  "election-1",
		CandidateID: "cand-9",
		CastAt:      time.Now().UTC(),
		Source:      entities.BallotSourceOnline,
	})
	seedBallot(t, store, "ballot-1", "V0000123", "cand-1", time.Now().UTC())

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.MergedCount != 0 || report.VoterCount != 0 {
		t.Fatalf("online-wins merge must not add ledger rows, got %+v", report)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != entities.SkipReasonAlreadyHasOnlineVote {
		t.Fatalf("expected online-vote skip entry, got %+v", report.Skipped)
	}

	votes := store.ListVotes("election-1")
	if len(votes) != 1 || votes[0].VoteID != "vote-online" {
		t.Fatalf("online ledger row must be untouched, got %+v", votes)
	}

	// The ballot is stamped so no later pass reconsiders it.
	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("superseded ballot must leave the queue, got %d rows", len(pending))
	}
}

func TestMergeKeepsUnresolvedVotersQueued(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	seedBallot(t, store, "ballot-1", "V9999999", "cand-1", time.Now().UTC())

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != entities.SkipReasonVoterNotFound {
		t.Fatalf("expected voter-not-found skip, got %+v", report.Skipped)
	}

	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("unresolved ballot must stay queued, got %d rows", len(pending))
	}

	// Once the voter record appears, the next pass picks the ballot up.
	store.SetVoter(ports.VoterProjection{ID: "voter-9", VID: "V9999999", IsActive: true})
	report, err = reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if report.MergedCount != 1 || report.VoterCount != 1 {
		t.Fatalf("expected requeued ballot to merge, got %+v", report)
	}
}

func TestMergeIsolatesSingleVoterFailure(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	store.SetVoter(ports.VoterProjection{ID: "voter-2", VID: "V0000456", IsActive: true})
	seedBallot(t, store, "ballot-1", "V0000123", "cand-1", time.Now().UTC())
	seedBallot(t, store, "ballot-2", "V0000456", "cand-2", time.Now().UTC())
	store.FailMergeForVoter("voter-1", errors.New("write failed"))

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.MergedCount != 1 || report.VoterCount != 1 {
		t.Fatalf("healthy voter must still merge, got %+v", report)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].VID != "V0000123" {
		t.Fatalf("expected failing voter in skipped list, got %+v", report.Skipped)
	}

	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 1 || pending[0].BallotID != "ballot-1" {
		t.Fatalf("failed voter's ballot must stay queued, got %+v", pending)
	}

	// The fault is one-shot, so the retry pass drains the rest.
	report, err = reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("retry merge failed: %v", err)
	}
	if report.MergedCount != 1 {
		t.Fatalf("retry must merge the failed voter, got %+v", report)
	}
}

func TestMergeStampsBlankBallotsWithoutLedgerRows(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-1", VID: "V0000123", IsActive: true})
	seedBallot(t, store, "ballot-1", "V0000123", "", time.Now().UTC())

	report, err := reconciler.MergeOfflineBallots(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if report.MergedCount != 0 || report.VoterCount != 0 {
		t.Fatalf("blank ballot must not count as merged votes, got %+v", report)
	}
	if len(store.ListVotes("election-1")) != 0 {
		t.Fatalf("blank ballot must not create ledger rows")
	}
	pending, err := store.ListUnmerged(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list unmerged failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("blank ballot must still be stamped, got %d rows", len(pending))
	}
	voter, err := store.GetVoter(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("blank ballot must not mark has_voted")
	}
}

func TestMergeRejectsUnknownElection(t *testing.T) {
	reconciler, _ := newReconcilerFixture()

	if _, err := reconciler.MergeOfflineBallots(context.Background(), "election-missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
}

func TestRecomputeHasVotedRealignsFlags(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-stale", VID: "V0000001", IsActive: true, HasVoted: true})
	store.SetVoter(ports.VoterProjection{ID: "voter-missing-flag", VID: "V0000002", IsActive: true})
	store.AddVote(entities.Vote{
		VoteID:      "vote-1",
		VoterID:     "voter-missing-flag",
		ElectionID:  "election-1",
		CandidateID: "cand-1",
		CastAt:      time.Now().UTC(),
		Source:      entities.BallotSourceOnline,
	})

	updated, err := reconciler.RecomputeHasVoted(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 flag updates, got %d", updated)
	}

	stale, _ := store.GetVoter(context.Background(), "voter-stale")
	if stale.HasVoted {
		t.Fatalf("voter without ledger rows must be cleared")
	}
	flagged, _ := store.GetVoter(context.Background(), "voter-missing-flag")
	if !flagged.HasVoted {
		t.Fatalf("voter with ledger rows must be marked")
	}
}

func TestRecomputeHasVotedKeepsFlagsEarnedInOtherElections(t *testing.T) {
	reconciler, store := newReconcilerFixture()
	store.SetVoter(ports.VoterProjection{ID: "voter-elsewhere", VID: "V0000003", IsActive: true, HasVoted: true})
	store.SetVoter(ports.VoterProjection{ID: "voter-stale", VID: "V0000004", IsActive: true, HasVoted: true})
	store.AddVote(entities.Vote{
		VoteID:      "vote-other",
		VoterID:     "voter-elsewhere",
		ElectionID:  "election-2",
		CandidateID: "cand-1",
		CastAt:      time.Now().UTC(),
		Source:      entities.BallotSourceOnline,
	})

	updated, err := reconciler.RecomputeHasVoted(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected only the stale voter to change, got %d updates", updated)
	}

	elsewhere, _ := store.GetVoter(context.Background(), "voter-elsewhere")
	if !elsewhere.HasVoted {
		t.Fatalf("flag earned in another election must survive the recompute")
	}
	stale, _ := store.GetVoter(context.Background(), "voter-stale")
	if stale.HasVoted {
		t.Fatalf("voter without ledger rows anywhere must be cleared")
	}
}
