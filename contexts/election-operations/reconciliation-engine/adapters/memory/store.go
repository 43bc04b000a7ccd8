package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"

	"github.com/google/uuid"
)

// Store is the in-memory counterpart of the postgres repository, used by
// tests and the in-memory module wiring. Merge transactions stage their
// writes and commit them only when the transaction function succeeds.
type Store struct {
	mu sync.RWMutex

	voters      map[string]ports.VoterProjection
	elections   map[string]ports.ElectionProjection
	candidates  map[string]ports.CandidateProjection
	zones       map[string]ports.ZoneProjection
	assignments map[string]string

	votes   map[string]entities.Vote
	ballots map[string]entities.OfflineBallot

	idempotency map[string]ports.IdempotencyRecord
	outbox      []ports.OutboxMessage
	published   map[string]time.Time

	failMergeFor map[string]error
}

func NewStore() *Store {
	return &Store{
		voters:       make(map[string]ports.VoterProjection),
		elections:    make(map[string]ports.ElectionProjection),
		candidates:   make(map[string]ports.CandidateProjection),
		zones:        make(map[string]ports.ZoneProjection),
		assignments:  make(map[string]string),
		votes:        make(map[string]entities.Vote),
		ballots:      make(map[string]entities.OfflineBallot),
		idempotency:  make(map[string]ports.IdempotencyRecord),
		outbox:       make([]ports.OutboxMessage, 0),
		published:    make(map[string]time.Time),
		failMergeFor: make(map[string]error),
	}
}

func (s *Store) SetVoter(voter ports.VoterProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[voter.ID] = voter
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

func (s *Store) AddVote(vote entities.Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	s.votes[vote.VoteID] = vote
}

// FailMergeForVoter makes the next merge transaction for the given voter
// fail with err, simulating a storage fault inside one voter's unit.
func (s *Store) FailMergeForVoter(voterID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMergeFor[voterID] = err
}

func (s *Store) ListVotes(electionID string) []entities.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.ElectionID == electionID {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VoteID < items[j].VoteID
	})
	return items
}

func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, msg := range s.outbox {
		if _, ok := s.published[msg.OutboxID]; !ok {
			count++
		}
	}
	return count
}

func (s *Store) FindVotersByVIDs(_ context.Context, vids []string) ([]ports.VoterProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(vids))
	for _, vid := range vids {
		wanted[strings.TrimSpace(vid)] = struct{}{}
	}
	items := make([]ports.VoterProjection, 0)
	for _, voter := range s.voters {
		if _, ok := wanted[voter.VID]; ok {
			items = append(items, voter)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) GetVoter(_ context.Context, voterID string) (ports.VoterProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voter, exists := s.voters[strings.TrimSpace(voterID)]
	if !exists {
		return ports.VoterProjection{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

func (s *Store) ListVoterIDsMarkedHasVoted(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for _, voter := range s.voters {
		if voter.HasVoted {
			ids = append(ids, voter.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) SetHasVoted(_ context.Context, voterID string, hasVoted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setHasVotedLocked(voterID, hasVoted)
}

func (s *Store) setHasVotedLocked(voterID string, hasVoted bool) error {
	voter, exists := s.voters[strings.TrimSpace(voterID)]
	if !exists {
		return domainerrors.ErrVoterNotFound
	}
	voter.HasVoted = hasVoted
	s.voters[voter.ID] = voter
	return nil
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

func (s *Store) GetActiveElectionByType(
	_ context.Context,
	electionType string,
) (ports.ElectionProjection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, election := range s.elections {
		if election.Type == strings.TrimSpace(electionType) && election.Status == entities.ElectionStatusActive {
			return election, true, nil
		}
	}
	return ports.ElectionProjection{}, false, nil
}

func (s *Store) GetCandidate(_ context.Context, candidateID string) (ports.CandidateProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidate, exists := s.candidates[strings.TrimSpace(candidateID)]
	if !exists {
		return ports.CandidateProjection{}, domainerrors.ErrCandidateNotFound
	}
	return candidate, nil
}

func (s *Store) GetZone(_ context.Context, zoneID string) (ports.ZoneProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zone, exists := s.zones[strings.TrimSpace(zoneID)]
	if !exists {
		return ports.ZoneProjection{}, domainerrors.ErrZoneNotFound
	}
	return zone, nil
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

func (s *Store) CountVotesForVoter(_ context.Context, voterID string, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countVotesLocked(voterID, electionID), nil
}

func (s *Store) countVotesLocked(voterID string, electionID string) int {
	count := 0
	for _, vote := range s.votes {
		if vote.VoterID == strings.TrimSpace(voterID) && vote.ElectionID == strings.TrimSpace(electionID) {
			count++
		}
	}
	return count
}

func (s *Store) ListVoterIDsWithVotes(_ context.Context, electionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, vote := range s.votes {
		if vote.ElectionID == strings.TrimSpace(electionID) {
			seen[vote.VoterID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for voterID := range seen {
		ids = append(ids, voterID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ListVoterIDsWithAnyVotes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, vote := range s.votes {
		seen[vote.VoterID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for voterID := range seen {
		ids = append(ids, voterID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) SaveOfflineBallot(_ context.Context, ballot entities.OfflineBallot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ballots[ballot.BallotID]; exists {
		return domainerrors.ErrConflict
	}
	if ballot.CreatedAt.IsZero() {
		ballot.CreatedAt = time.Now().UTC()
	}
	s.ballots[ballot.BallotID] = ballot
	return nil
}

func (s *Store) GetOfflineBallot(_ context.Context, ballotID string) (entities.OfflineBallot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ballot, exists := s.ballots[strings.TrimSpace(ballotID)]
	if !exists {
		return entities.OfflineBallot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (s *Store) ListUnmerged(_ context.Context, electionID string) ([]entities.OfflineBallot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.OfflineBallot, 0)
	for _, ballot := range s.ballots {
		if ballot.ElectionID == strings.TrimSpace(electionID) && !ballot.IsMerged {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CountUnmergedForVIDs(_ context.Context, vids []string, electionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(vids))
	for _, vid := range vids {
		wanted[strings.TrimSpace(vid)] = struct{}{}
	}
	count := 0
	for _, ballot := range s.ballots {
		if ballot.ElectionID != strings.TrimSpace(electionID) || ballot.IsMerged {
			continue
		}
		if _, ok := wanted[ballot.VID]; ok {
			count++
		}
	}
	return count, nil
}

// InVoterMergeTx stages every write issued through the MergeTx and applies
// the batch only when fn returns nil, mirroring the rollback semantics of
// the postgres transaction.
func (s *Store) InVoterMergeTx(_ context.Context, voterID string, fn func(ports.MergeTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.voters[strings.TrimSpace(voterID)]; !exists {
		return domainerrors.ErrVoterNotFound
	}
	if err, ok := s.failMergeFor[strings.TrimSpace(voterID)]; ok {
		delete(s.failMergeFor, strings.TrimSpace(voterID))
		if err == nil {
			err = errors.New("simulated merge failure")
		}
		return err
	}

	tx := &stagedMergeTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type stagedMergeTx struct {
	store *Store

	insertVotes []entities.Vote
	markMerged  []string
	mergedAt    time.Time
	hasVotedFor map[string]bool
}

func (tx *stagedMergeTx) CountVotes(voterID string, electionID string) (int, error) {
	return tx.store.countVotesLocked(voterID, electionID), nil
}

func (tx *stagedMergeTx) InsertVotes(votes []entities.Vote) error {
	tx.insertVotes = append(tx.insertVotes, votes...)
	return nil
}

func (tx *stagedMergeTx) MarkBallotsMerged(ballotIDs []string, mergedAt time.Time) error {
	tx.markMerged = append(tx.markMerged, ballotIDs...)
	tx.mergedAt = mergedAt.UTC()
	return nil
}

func (tx *stagedMergeTx) SetHasVoted(voterID string, hasVoted bool) error {
	if tx.hasVotedFor == nil {
		tx.hasVotedFor = make(map[string]bool)
	}
	tx.hasVotedFor[strings.TrimSpace(voterID)] = hasVoted
	return nil
}

func (tx *stagedMergeTx) commit() {
	for _, vote := range tx.insertVotes {
		if vote.CreatedAt.IsZero() {
			vote.CreatedAt = time.Now().UTC()
		}
		tx.store.votes[vote.VoteID] = vote
	}
	for _, ballotID := range tx.markMerged {
		ballot, exists := tx.store.ballots[ballotID]
		if !exists || ballot.IsMerged {
			continue
		}
		stamp := tx.mergedAt
		ballot.IsMerged = true
		ballot.MergedAt = &stamp
		tx.store.ballots[ballotID] = ballot
	}
	for voterID, hasVoted := range tx.hasVotedFor {
		_ = tx.store.setHasVotedLocked(voterID, hasVoted)
	}
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.idempotency[strings.TrimSpace(key)]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now) {
		delete(s.idempotency, strings.TrimSpace(key))
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.idempotency[record.Key]
	if exists {
		if existing.RequestHash != record.RequestHash || existing.BallotID != record.BallotID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := envelopePayload(envelope)
	if err != nil {
		return err
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox = append(s.outbox, ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    createdAt,
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, msg := range s.outbox {
		if _, ok := s.published[msg.OutboxID]; ok {
			continue
		}
		items = append(items, msg)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.outbox {
		if msg.OutboxID == outboxID {
			s.published[outboxID] = publishedAt.UTC()
			return nil
		}
	}
	return domainerrors.ErrConflict
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func envelopePayload(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func assignmentKey(voterID string, electionType string) string {
	return strings.TrimSpace(voterID) + "|" + strings.TrimSpace(electionType)
}

var _ ports.VoterDirectory = (*Store)(nil)
var _ ports.ElectionProvider = (*Store)(nil)
var _ ports.CandidateCatalog = (*Store)(nil)
var _ ports.ZoneRegistry = (*Store)(nil)
var _ ports.VoteLedger = (*Store)(nil)
var _ ports.OfflineBallotRepository = (*Store)(nil)
var _ ports.MergeTxRunner = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
