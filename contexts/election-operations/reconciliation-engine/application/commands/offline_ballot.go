package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "scrutin/contexts/election-operations/reconciliation-engine/application"
	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"
	"scrutin/internal/shared/voterid"
)

// RecordOfflineBallotCommand is the write-model input for offline intake.
// AllowAdditional opts into an extra seat-selection within the zone quota
// instead of the default AlreadyVoted rejection.
type RecordOfflineBallotCommand struct {
	VID             string
	ElectionID      string
	CandidateID     string
	AdminID         string
	Notes           string
	AllowAdditional bool
	IdempotencyKey  string
}

// RecordOfflineBallotResult returns the queued ballot and a replay marker
// that the transport layer maps to API semantics.
type RecordOfflineBallotResult struct {
	Ballot   entities.OfflineBallot
	Replayed bool
}

// IntakeUseCase validates and queues field-admin ballots. It never touches
// the canonical ledger; promotion is the Reconciler's job.
type IntakeUseCase struct {
	Voters         ports.VoterDirectory
	Elections      ports.ElectionProvider
	Candidates     ports.CandidateCatalog
	Zones          ports.ZoneRegistry
	Ledger         ports.VoteLedger
	Ballots        ports.OfflineBallotRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// RecordOfflineBallot appends exactly one unmerged offline ballot row after
// resolving the VID and validating the target candidate. Replay-safe via
// idempotency key + request hash validation.
func (uc IntakeUseCase) RecordOfflineBallot(
	ctx context.Context,
	cmd RecordOfflineBallotCommand,
) (RecordOfflineBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("offline ballot intake started",
		"event", "reconciliation_intake_started",
		"module", "election-operations/reconciliation-engine",
		"layer", "application",
		"vid", strings.TrimSpace(cmd.VID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"candidate_id", strings.TrimSpace(cmd.CandidateID),
		"admin_id", strings.TrimSpace(cmd.AdminID),
	)
	if strings.TrimSpace(cmd.VID) == "" ||
		strings.TrimSpace(cmd.ElectionID) == "" ||
		strings.TrimSpace(cmd.CandidateID) == "" ||
		strings.TrimSpace(cmd.AdminID) == "" {
		logger.Warn("offline ballot intake validation failed",
			"event", "reconciliation_intake_validation_failed",
			"module", "election-operations/reconciliation-engine",
			"layer", "application",
			"vid", strings.TrimSpace(cmd.VID),
			"election_id", strings.TrimSpace(cmd.ElectionID),
		)
		return RecordOfflineBallotResult{}, domainerrors.ErrInvalidBallotInput
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return RecordOfflineBallotResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	now := uc.now()
	requestHash := hashRecordOfflineBallotCommand(cmd)
	if record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now); err != nil {
		return RecordOfflineBallotResult{}, err
	} else if found {
		if record.RequestHash != requestHash {
			return RecordOfflineBallotResult{}, domainerrors.ErrIdempotencyConflict
		}
		ballot, err := uc.Ballots.GetOfflineBallot(ctx, record.BallotID)
		if err != nil {
			return RecordOfflineBallotResult{}, err
		}
		logger.Info("offline ballot intake replayed",
			"event", "reconciliation_intake_replayed",
			"module", "election-operations/reconciliation-engine",
			"layer", "application",
			"ballot_id", ballot.BallotID,
			"vid", ballot.VID,
		)
		return RecordOfflineBallotResult{Ballot: ballot, Replayed: true}, nil
	}

	election, err := uc.resolveActiveElection(ctx, cmd.ElectionID)
	if err != nil {
		return RecordOfflineBallotResult{}, err
	}

	voter, err := uc.resolveVoter(ctx, cmd.VID)
	if err != nil {
		return RecordOfflineBallotResult{}, err
	}

	zoneID, assigned, err := uc.Zones.GetVoterZone(ctx, voter.ID, election.Type)
	if err != nil {
		return RecordOfflineBallotResult{}, err
	}
	if !assigned {
		return RecordOfflineBallotResult{}, domainerrors.ErrVoterZoneUnassigned
	}

	candidate, err := uc.Candidates.GetCandidate(ctx, strings.TrimSpace(cmd.CandidateID))
	if err != nil {
		return RecordOfflineBallotResult{}, err
	}
	if candidate.Status != entities.CandidateStatusApproved && !candidate.IsNota {
		return RecordOfflineBallotResult{}, domainerrors.ErrCandidateNotVotable
	}
	if candidate.ZoneID != zoneID {
		return RecordOfflineBallotResult{}, domainerrors.ErrCandidateNotInZone
	}

	if err := uc.checkBallotBudget(ctx, voter, election.ID, zoneID, cmd.AllowAdditional); err != nil {
		return RecordOfflineBallotResult{}, err
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RecordOfflineBallotResult{}, err
	}
	ballot := entities.OfflineBallot{
		BallotID:         ballotID,
		VID:              voter.VID,
		ElectionID:       election.ID,
		CandidateID:      candidate.ID,
		CastAt:           now,
		EnteredByAdminID: strings.TrimSpace(cmd.AdminID),
		Notes:            strings.TrimSpace(cmd.Notes),
		IsMerged:         false,
		CreatedAt:        now,
	}
	if err := uc.Ballots.SaveOfflineBallot(ctx, ballot); err != nil {
		return RecordOfflineBallotResult{}, err
	}
	if err := uc.appendBallotRecordedEvent(ctx, ballot, now); err != nil {
		return RecordOfflineBallotResult{}, err
	}
	if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(cmd.IdempotencyKey),
		RequestHash: requestHash,
		BallotID:    ballot.BallotID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	}); err != nil {
		return RecordOfflineBallotResult{}, err
	}

	logger.Info("offline ballot recorded",
		"event", "reconciliation_intake_recorded",
		"module", "election-operations/reconciliation-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"vid", ballot.VID,
		"election_id", ballot.ElectionID,
		"candidate_id", ballot.CandidateID,
		"admin_id", ballot.EnteredByAdminID,
	)
	return RecordOfflineBallotResult{Ballot: ballot}, nil
}

// resolveActiveElection requires the election to be the currently ACTIVE
// election of its type; stale or upcoming elections reject intake outright.
func (uc IntakeUseCase) resolveActiveElection(
	ctx context.Context,
	electionID string,
) (ports.ElectionProjection, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return ports.ElectionProjection{}, err
	}
	if election.Status != entities.ElectionStatusActive {
		return ports.ElectionProjection{}, domainerrors.ErrElectionNotActive
	}
	active, found, err := uc.Elections.GetActiveElectionByType(ctx, election.Type)
	if err != nil {
		return ports.ElectionProjection{}, err
	}
	if !found || active.ID != election.ID {
		return ports.ElectionProjection{}, domainerrors.ErrElectionNotActive
	}
	return election, nil
}

// resolveVoter maps operator input to exactly one active voter. More than
// one match after normalization is an ambiguity the caller must resolve by
// supplying the full VID.
func (uc IntakeUseCase) resolveVoter(ctx context.Context, input string) (ports.VoterProjection, error) {
	matches, err := uc.Voters.FindVotersByVIDs(ctx, voterid.Normalize(input))
	if err != nil {
		return ports.VoterProjection{}, err
	}
	distinct := make(map[string]ports.VoterProjection, len(matches))
	for _, match := range matches {
		distinct[match.ID] = match
	}
	switch len(distinct) {
	case 0:
		return ports.VoterProjection{}, domainerrors.ErrVoterNotFound
	case 1:
		for _, voter := range distinct {
			if !voter.IsActive {
				return ports.VoterProjection{}, domainerrors.ErrVoterNotFound
			}
			return voter, nil
		}
	}
	return ports.VoterProjection{}, domainerrors.ErrAmbiguousVID
}

// checkBallotBudget enforces the one-ballot-set rule and, when the caller
// opts into an additional selection, the zone seat quota.
func (uc IntakeUseCase) checkBallotBudget(
	ctx context.Context,
	voter ports.VoterProjection,
	electionID string,
	zoneID string,
	allowAdditional bool,
) error {
	online, err := uc.Ledger.CountVotesForVoter(ctx, voter.ID, electionID)
	if err != nil {
		return err
	}
	offline, err := uc.Ballots.CountUnmergedForVIDs(ctx, voterid.Normalize(voter.VID), electionID)
	if err != nil {
		return err
	}
	existing := online + offline
	if existing == 0 {
		return nil
	}
	if !allowAdditional {
		return domainerrors.ErrAlreadyVoted
	}
	zone, err := uc.Zones.GetZone(ctx, zoneID)
	if err != nil {
		return err
	}
	if existing+1 > zone.Seats {
		return domainerrors.ErrSeatQuotaExceeded
	}
	return nil
}

func (uc IntakeUseCase) appendBallotRecordedEvent(
	ctx context.Context,
	ballot entities.OfflineBallot,
	occurredAt time.Time,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newReconciliationEnvelope(eventID, "offline.ballot.recorded", ballot.ElectionID, occurredAt, map[string]any{
		"ballot_id":    ballot.BallotID,
		"vid":          ballot.VID,
		"election_id":  ballot.ElectionID,
		"candidate_id": ballot.CandidateID,
		"admin_id":     ballot.EnteredByAdminID,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc IntakeUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc IntakeUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func hashRecordOfflineBallotCommand(cmd RecordOfflineBallotCommand) string {
	payload := map[string]string{
		"vid":              strings.TrimSpace(cmd.VID),
		"election_id":      strings.TrimSpace(cmd.ElectionID),
		"candidate_id":     strings.TrimSpace(cmd.CandidateID),
		"admin_id":         strings.TrimSpace(cmd.AdminID),
		"notes":            strings.TrimSpace(cmd.Notes),
		"allow_additional": strconv.FormatBool(cmd.AllowAdditional),
		"op":               "record_offline_ballot",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
