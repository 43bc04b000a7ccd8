package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "scrutin/contexts/election-operations/tally-engine/application"
	"scrutin/contexts/election-operations/tally-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/tally-engine/domain/errors"
	"scrutin/contexts/election-operations/tally-engine/ports"
	"scrutin/internal/shared/voterid"
)

const candidateStatusApproved = "APPROVED"

var noBallotSentinel = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// TallyUseCase computes seat-bounded ranked winners and turnout statistics
// from the canonical ledger. It is read-only and takes no locks; a run
// concurrent with a merge may reflect a partial merge.
type TallyUseCase struct {
	Elections  ports.ElectionProvider
	Ledger     ports.VoteLedgerReader
	Candidates ports.CandidateCatalog
	Zones      ports.ZoneRegistry
	Logger     *slog.Logger
}

type candidateTally struct {
	candidate ports.CandidateProjection
	votes     int
	earliest  time.Time
}

// ComputeWinners returns the ranked winner slate per zone for one election.
// Only APPROVED candidates and NOTA are tally targets; ballots cast by
// reserved test voters never count.
func (uc TallyUseCase) ComputeWinners(
	ctx context.Context,
	electionID string,
) (map[string][]entities.RankedCandidate, error) {
	election, zones, tallies, err := uc.loadTallies(ctx, electionID)
	if err != nil {
		return nil, err
	}

	results := make(map[string][]entities.RankedCandidate, len(zones))
	for _, zone := range zones {
		results[zone.ID] = rankZone(tallies[zone.ID], zone.Seats)
	}
	uc.logComputed(election, results)
	return results, nil
}

// ListAllWinners flattens ComputeWinners into the static per-election-type
// zone display order. The ordering pass is cosmetic and never changes who
// wins.
func (uc TallyUseCase) ListAllWinners(ctx context.Context, electionID string) ([]entities.ZoneResult, error) {
	election, zones, tallies, err := uc.loadTallies(ctx, electionID)
	if err != nil {
		return nil, err
	}

	results := make([]entities.ZoneResult, 0, len(zones))
	for _, zone := range zones {
		results = append(results, entities.ZoneResult{
			ZoneID:   zone.ID,
			ZoneCode: zone.Code,
			ZoneName: zone.Name,
			Seats:    zone.Seats,
			Winners:  rankZone(tallies[zone.ID], zone.Seats),
		})
	}
	entities.SortZoneResultsForDisplay(election.Type, results)
	return results, nil
}

func (uc TallyUseCase) loadTallies(
	ctx context.Context,
	electionID string,
) (ports.ElectionProjection, []ports.ZoneProjection, map[string][]candidateTally, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return ports.ElectionProjection{}, nil, nil, domainerrors.ErrElectionNotFound
	}
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return ports.ElectionProjection{}, nil, nil, err
	}

	candidates, err := uc.Candidates.ListCandidatesByElectionType(ctx, election.Type)
	if err != nil {
		return ports.ElectionProjection{}, nil, nil, err
	}
	eligible := make(map[string]ports.CandidateProjection, len(candidates))
	for _, candidate := range candidates {
		if candidate.Status == candidateStatusApproved || candidate.IsNota {
			eligible[candidate.ID] = candidate
		}
	}

	ballots, err := uc.Ledger.ListBallots(ctx, election.ID)
	if err != nil {
		return ports.ElectionProjection{}, nil, nil, err
	}
	votes := make(map[string]int, len(eligible))
	earliest := make(map[string]time.Time, len(eligible))
	for _, ballot := range ballots {
		if voterid.IsTest(ballot.VoterVID) {
			continue
		}
		if _, ok := eligible[ballot.CandidateID]; !ok {
			continue
		}
		votes[ballot.CandidateID]++
		castAt := ballot.CastAt.UTC()
		if first, ok := earliest[ballot.CandidateID]; !ok || castAt.Before(first) {
			earliest[ballot.CandidateID] = castAt
		}
	}

	zones, err := uc.Zones.ListZonesByElectionType(ctx, election.Type)
	if err != nil {
		return ports.ElectionProjection{}, nil, nil, err
	}

	tallies := make(map[string][]candidateTally, len(zones))
	for _, candidate := range eligible {
		first, ok := earliest[candidate.ID]
		if !ok {
			// Vote-less candidates tie-break after any candidate that has a
			// ballot, then alphabetically.
			first = noBallotSentinel
		}
		tallies[candidate.ZoneID] = append(tallies[candidate.ZoneID], candidateTally{
			candidate: candidate,
			votes:     votes[candidate.ID],
			earliest:  first,
		})
	}
	return election, zones, tallies, nil
}

// rankZone sorts one zone's tally and assigns ranks bounded by the seat
// quota. Equal vote counts break by earliest ballot timestamp, then by
// candidate ID, so reruns over identical data are stable.
func rankZone(tallies []candidateTally, seats int) []entities.RankedCandidate {
	sorted := make([]candidateTally, len(tallies))
	copy(sorted, tallies)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].votes != sorted[j].votes {
			return sorted[i].votes > sorted[j].votes
		}
		if !sorted[i].earliest.Equal(sorted[j].earliest) {
			return sorted[i].earliest.Before(sorted[j].earliest)
		}
		return sorted[i].candidate.ID < sorted[j].candidate.ID
	})

	if seats < 0 {
		seats = 0
	}
	limit := seats
	if len(sorted) < limit {
		limit = len(sorted)
	}
	winners := make([]entities.RankedCandidate, 0, limit)
	for index := 0; index < limit; index++ {
		tally := sorted[index]
		winners = append(winners, entities.RankedCandidate{
			CandidateID: tally.candidate.ID,
			Name:        tally.candidate.Name,
			Votes:       tally.votes,
			Rank:        index + 1,
			IsNota:      tally.candidate.IsNota,
		})
	}
	return winners
}

// TurnoutStats reports ballots cast and distinct participating voters for
// one election, overall and per zone, excluding reserved test voters.
func (uc TallyUseCase) TurnoutStats(ctx context.Context, electionID string) (entities.TurnoutStats, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.TurnoutStats{}, domainerrors.ErrElectionNotFound
	}
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.TurnoutStats{}, err
	}

	ballots, err := uc.Ledger.ListBallots(ctx, election.ID)
	if err != nil {
		return entities.TurnoutStats{}, err
	}

	stats := entities.TurnoutStats{ElectionID: election.ID}
	voters := make(map[string]struct{})
	ballotsByVoter := make(map[string]int)
	for _, ballot := range ballots {
		if voterid.IsTest(ballot.VoterVID) {
			continue
		}
		stats.BallotsCast++
		voters[ballot.VoterID] = struct{}{}
		ballotsByVoter[ballot.VoterID]++
	}
	stats.DistinctVoters = len(voters)

	zones, err := uc.Zones.ListZonesByElectionType(ctx, election.Type)
	if err != nil {
		return entities.TurnoutStats{}, err
	}
	zoneBallots := make(map[string]int, len(zones))
	zoneVoters := make(map[string]int, len(zones))
	for voterID, count := range ballotsByVoter {
		zoneID, assigned, err := uc.Zones.GetVoterZone(ctx, voterID, election.Type)
		if err != nil {
			return entities.TurnoutStats{}, err
		}
		if !assigned {
			continue
		}
		zoneBallots[zoneID] += count
		zoneVoters[zoneID]++
	}
	for _, zone := range zones {
		stats.Zones = append(stats.Zones, entities.ZoneTurnout{
			ZoneID:      zone.ID,
			ZoneCode:    zone.Code,
			ZoneName:    zone.Name,
			BallotsCast: zoneBallots[zone.ID],
			VoterCount:  zoneVoters[zone.ID],
		})
	}
	entities.SortZoneTurnoutForDisplay(election.Type, stats.Zones)
	return stats, nil
}

func (uc TallyUseCase) logComputed(
	election ports.ElectionProjection,
	results map[string][]entities.RankedCandidate,
) {
	logger := application.ResolveLogger(uc.Logger)
	winnerCount := 0
	for _, winners := range results {
		winnerCount += len(winners)
	}
	logger.Info("winner computation completed",
		"event", "tally_winners_computed",
		"module", "election-operations/tally-engine",
		"layer", "application",
		"election_id", election.ID,
		"zone_count", len(results),
		"winner_count", winnerCount,
	)
}
