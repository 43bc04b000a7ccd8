package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scrutin/contexts/election-operations/tally-engine/adapters/memory"
	"scrutin/contexts/election-operations/tally-engine/application/queries"
	domainerrors "scrutin/contexts/election-operations/tally-engine/domain/errors"
	"scrutin/contexts/election-operations/tally-engine/ports"
)

func newTallyFixture() (queries.TallyUseCase, *memory.Store) {
	store := memory.NewStore()
	store.SetElection(ports.ElectionProjection{
		ID:     "election-1",
		Type:   "zonal",
		Status: "COMPLETED",
	})
	tally := queries.TallyUseCase{
		Elections:  store,
		Ledger:     store,
		Candidates: store,
		Zones:      store,
	}
	return tally, store
}

func addBallots(store *memory.Store, candidateID string, count int, firstCast time.Time) {
	for index := 0; index < count; index++ {
		store.AddBallot("election-1", ports.TallyBallot{
			VoteID:      candidateID + "-" + string(rune('a'+index)),
			VoterID:     "voter-" + candidateID + "-" + string(rune('a'+index)),
			VoterVID:    "V00000" + string(rune('0'+index)),
			CandidateID: candidateID,
			CastAt:      firstCast.Add(time.Duration(index) * time.Minute),
		})
	}
}

func TestComputeWinnersRanksBySeatQuota(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 2})
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for _, candidate := range []struct {
		id    string
		votes int
	}{
		{"cand-1", 5},
		{"cand-2", 3},
		{"cand-3", 1},
	} {
		store.SetCandidate(ports.CandidateProjection{
			ID:           candidate.id,
			ZoneID:       "zone-1",
			ElectionType: "zonal",
			Status:       "APPROVED",
		})
		addBallots(store, candidate.id, candidate.votes, base)
	}

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners := results["zone-1"]
	if len(winners) != 2 {
		t.Fatalf("expected winners bounded by 2 seats, got %d", len(winners))
	}
	if winners[0].CandidateID != "cand-1" || winners[0].Rank != 1 || winners[0].Votes != 5 {
		t.Fatalf("unexpected first winner: %+v", winners[0])
	}
	if winners[1].CandidateID != "cand-2" || winners[1].Rank != 2 {
		t.Fatalf("unexpected second winner: %+v", winners[1])
	}
}

func TestComputeWinnersTieBreaksByEarliestBallot(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 1})
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.SetCandidate(ports.CandidateProjection{ID: "cand-late", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	store.SetCandidate(ports.CandidateProjection{ID: "cand-early", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	addBallots(store, "cand-late", 3, base.Add(time.Hour))
	addBallots(store, "cand-early", 3, base)

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners := results["zone-1"]
	if len(winners) != 1 || winners[0].CandidateID != "cand-early" {
		t.Fatalf("tie must break toward the earliest ballot, got %+v", winners)
	}
}

func TestComputeWinnersTieBreakFallsBackToCandidateID(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 1})
	store.SetCandidate(ports.CandidateProjection{ID: "cand-b", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	store.SetCandidate(ports.CandidateProjection{ID: "cand-a", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})

	// Neither candidate has a ballot, so the ID decides deterministically.
	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners := results["zone-1"]
	if len(winners) != 1 || winners[0].CandidateID != "cand-a" {
		t.Fatalf("expected lexicographic fallback, got %+v", winners)
	}
}

func TestComputeWinnersCountsNotaAndKeepsItVisible(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 2})
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.SetCandidate(ports.CandidateProjection{ID: "cand-1", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	store.SetCandidate(ports.CandidateProjection{ID: "nota-1", ZoneID: "zone-1", ElectionType: "zonal", Name: "None of the Above", IsNota: true})
	addBallots(store, "cand-1", 1, base)
	addBallots(store, "nota-1", 4, base)

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners := results["zone-1"]
	if len(winners) != 2 {
		t.Fatalf("expected 2 ranked lines, got %d", len(winners))
	}
	if winners[0].CandidateID != "nota-1" || !winners[0].IsNota || winners[0].Votes != 4 {
		t.Fatalf("NOTA must rank like any candidate, got %+v", winners[0])
	}
}

func TestComputeWinnersExcludesTestVotersAndUnapprovedCandidates(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 2})
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.SetCandidate(ports.CandidateProjection{ID: "cand-1", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	store.SetCandidate(ports.CandidateProjection{ID: "cand-pending", ZoneID: "zone-1", ElectionType: "zonal", Status: "PENDING"})
	addBallots(store, "cand-1", 2, base)
	addBallots(store, "cand-pending", 5, base)
	store.AddBallot("election-1", ports.TallyBallot{
		VoteID:      "vote-test",
		VoterID:     "voter-test",
		VoterVID:    "TEST0001",
		CandidateID: "cand-1",
		CastAt:      base,
	})

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners := results["zone-1"]
	if len(winners) != 1 {
		t.Fatalf("unapproved candidates must not appear, got %+v", winners)
	}
	if winners[0].CandidateID != "cand-1" || winners[0].Votes != 2 {
		t.Fatalf("test-prefix ballots must not count, got %+v", winners[0])
	}
}

func TestComputeWinnersEmptyZoneYieldsEmptySlate(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-empty", Code: "ZN-F", ElectionType: "zonal", Seats: 3})

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	winners, ok := results["zone-empty"]
	if !ok {
		t.Fatalf("zone without candidates must still be present")
	}
	if len(winners) != 0 {
		t.Fatalf("zone without candidates must yield empty winners, got %+v", winners)
	}
}

func TestComputeWinnersNoPaddingBelowSeatQuota(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", ElectionType: "zonal", Seats: 3})
	store.SetCandidate(ports.CandidateProjection{ID: "cand-1", ZoneID: "zone-1", ElectionType: "zonal", Status: "APPROVED"})
	addBallots(store, "cand-1", 1, time.Now().UTC())

	results, err := tally.ComputeWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("compute winners failed: %v", err)
	}
	if len(results["zone-1"]) != 1 {
		t.Fatalf("winner list must not be padded to the quota, got %+v", results["zone-1"])
	}
}

func TestListAllWinnersFollowsDisplayOrder(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-c", Code: "ZN-C", ElectionType: "zonal", Seats: 1})
	store.SetZone(ports.ZoneProjection{ID: "zone-a", Code: "ZN-A", ElectionType: "zonal", Seats: 1})
	store.SetZone(ports.ZoneProjection{ID: "zone-x", Code: "ZN-X", ElectionType: "zonal", Seats: 1})

	results, err := tally.ListAllWinners(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("list all winners failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(results))
	}
	order := []string{results[0].ZoneCode, results[1].ZoneCode, results[2].ZoneCode}
	if order[0] != "ZN-A" || order[1] != "ZN-C" || order[2] != "ZN-X" {
		t.Fatalf("display order violated: %v", order)
	}
}

func TestTurnoutStatsExcludesTestVoters(t *testing.T) {
	tally, store := newTallyFixture()
	store.SetZone(ports.ZoneProjection{ID: "zone-1", Code: "ZN-A", Name: "Zone A", ElectionType: "zonal", Seats: 1})
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.AssignVoterZone("voter-1", "zonal", "zone-1")
	store.AssignVoterZone("voter-2", "zonal", "zone-1")
	store.AddBallot("election-1", ports.TallyBallot{
		VoteID: "vote-1", VoterID: "voter-1", VoterVID: "V0000001", CandidateID: "cand-1", CastAt: base,
	})
	store.AddBallot("election-1", ports.TallyBallot{
		VoteID: "vote-2", VoterID: "voter-1", VoterVID: "V0000001", CandidateID: "cand-2", CastAt: base,
	})
	store.AddBallot("election-1", ports.TallyBallot{
		VoteID: "vote-3", VoterID: "voter-2", VoterVID: "V0000002", CandidateID: "cand-1", CastAt: base,
	})
	store.AddBallot("election-1", ports.TallyBallot{
		VoteID: "vote-4", VoterID: "voter-test", VoterVID: "TEST0009", CandidateID: "cand-1", CastAt: base,
	})

	stats, err := tally.TurnoutStats(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("turnout stats failed: %v", err)
	}
	if stats.BallotsCast != 3 || stats.DistinctVoters != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Zones) != 1 || stats.Zones[0].BallotsCast != 3 || stats.Zones[0].VoterCount != 2 {
		t.Fatalf("unexpected zone turnout: %+v", stats.Zones)
	}
}

func TestTallyRejectsUnknownElection(t *testing.T) {
	tally, _ := newTallyFixture()

	if _, err := tally.ComputeWinners(context.Background(), "election-missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}
}
