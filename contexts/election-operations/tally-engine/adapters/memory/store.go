package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainerrors "scrutin/contexts/election-operations/tally-engine/domain/errors"
	"scrutin/contexts/election-operations/tally-engine/ports"
)

// Store backs tally reads for tests and in-memory wiring.
type Store struct {
	mu sync.RWMutex

	elections   map[string]ports.ElectionProjection
	candidates  map[string]ports.CandidateProjection
	zones       map[string]ports.ZoneProjection
	assignments map[string]string

	ballots         []ports.TallyBallot
	ballotElections []string
}

func NewStore() *Store {
	return &Store{
		elections:   make(map[string]ports.ElectionProjection),
		candidates:  make(map[string]ports.CandidateProjection),
		zones:       make(map[string]ports.ZoneProjection),
		assignments: make(map[string]string),

		ballots:         make([]ports.TallyBallot, 0),
		ballotElections: make([]string, 0),
	}
}

func (s *Store) SetElection(election ports.ElectionProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[election.ID] = election
}

func (s *Store) SetCandidate(candidate ports.CandidateProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[candidate.ID] = candidate
}

func (s *Store) SetZone(zone ports.ZoneProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[zone.ID] = zone
}

func (s *Store) AssignVoterZone(voterID string, electionType string, zoneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignmentKey(voterID, electionType)] = zoneID
}

func (s *Store) AddBallot(electionID string, ballot ports.TallyBallot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots = append(s.ballots, ballot)
	s.ballotElections = append(s.ballotElections, electionID)
}

func (s *Store) GetElection(_ context.Context, electionID string) (ports.ElectionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	election, exists := s.elections[strings.TrimSpace(electionID)]
	if !exists {
		return ports.ElectionProjection{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListBallots(_ context.Context, electionID string) ([]ports.TallyBallot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.TallyBallot, 0)
	for index, ballot := range s.ballots {
		if s.ballotElections[index] == strings.TrimSpace(electionID) {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) ListCandidatesByElectionType(
	_ context.Context,
	electionType string,
) ([]ports.CandidateProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.CandidateProjection, 0)
	for _, candidate := range s.candidates {
		if candidate.ElectionType == strings.TrimSpace(electionType) {
			items = append(items, candidate)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) ListZonesByElectionType(
	_ context.Context,
	electionType string,
) ([]ports.ZoneProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.ZoneProjection, 0)
	for _, zone := range s.zones {
		if zone.ElectionType == strings.TrimSpace(electionType) {
			items = append(items, zone)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Code < items[j].Code
	})
	return items, nil
}

func (s *Store) GetVoterZone(_ context.Context, voterID string, electionType string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zoneID, exists := s.assignments[assignmentKey(voterID, electionType)]
	if !exists {
		return "", false, nil
	}
	return zoneID, true, nil
}

func assignmentKey(voterID string, electionType string) string {
	return strings.TrimSpace(voterID) + "|" + strings.TrimSpace(electionType)
}

var _ ports.VoteLedgerReader = (*Store)(nil)
var _ ports.ElectionProvider = (*Store)(nil)
var _ ports.CandidateCatalog = (*Store)(nil)
var _ ports.ZoneRegistry = (*Store)(nil)
