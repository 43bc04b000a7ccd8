package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "scrutin/contexts/election-operations/reconciliation-engine/application"
	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"
	"scrutin/internal/shared/voterid"
)

// ReconcilerUseCase promotes queued offline ballots into the canonical vote
// ledger under the "online wins" conflict rule, exactly once per ballot row.
type ReconcilerUseCase struct {
	Voters    ports.VoterDirectory
	Elections ports.ElectionProvider
	Ledger    ports.VoteLedger
	Ballots   ports.OfflineBallotRepository
	TxRunner  ports.MergeTxRunner
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// MergeOfflineBallots drains the unmerged queue for one election. Each
// voter's group is one atomic transaction; a failing voter is reported in
// the Skipped list and retried on the next pass without blocking others.
// Re-running is idempotent: rows already stamped merged are never revisited.
func (uc ReconcilerUseCase) MergeOfflineBallots(
	ctx context.Context,
	electionID string,
) (entities.MergeReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.MergeReport{}, domainerrors.ErrElectionNotFound
	}
	// The whole pass aborts only when it cannot start at all.
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return entities.MergeReport{}, err
	}

	pending, err := uc.Ballots.ListUnmerged(ctx, electionID)
	if err != nil {
		return entities.MergeReport{}, err
	}
	logger.Info("offline ballot merge started",
		"event", "reconciliation_merge_started",
		"module", "election-operations/reconciliation-engine",
		"layer", "application",
		"election_id", electionID,
		"pending_count", len(pending),
	)

	report := entities.MergeReport{Skipped: []entities.SkippedVoter{}}
	if len(pending) == 0 {
		logger.Info("offline ballot merge found empty queue",
			"event", "reconciliation_merge_noop",
			"module", "election-operations/reconciliation-engine",
			"layer", "application",
			"election_id", electionID,
		)
		return report, nil
	}

	now := uc.now()
	for _, group := range groupByVID(pending) {
		// Partial completion between voter groups is a valid, resumable
		// state; stamped rows stay stamped, the rest requeue.
		if err := ctx.Err(); err != nil {
			logger.Warn("offline ballot merge interrupted",
				"event", "reconciliation_merge_interrupted",
				"module", "election-operations/reconciliation-engine",
				"layer", "application",
				"election_id", electionID,
				"merged_count", report.MergedCount,
			)
			return report, err
		}
		uc.mergeVoterGroup(ctx, logger, electionID, group, now, &report)
	}

	if err := uc.appendMergeCompletedEvent(ctx, electionID, report, now); err != nil {
		return report, err
	}
	logger.Info("offline ballot merge completed",
		"event", "reconciliation_merge_completed",
		"module", "election-operations/reconciliation-engine",
		"layer", "application",
		"election_id", electionID,
		"merged_count", report.MergedCount,
		"voter_count", report.VoterCount,
		"skipped_count", len(report.Skipped),
	)
	return report, nil
}

type ballotGroup struct {
	vid     string
	ballots []entities.OfflineBallot
}

// groupByVID buckets queue rows per voter, ordered by VID so a pass is
// deterministic regardless of storage iteration order.
func groupByVID(pending []entities.OfflineBallot) []ballotGroup {
	byVID := make(map[string][]entities.OfflineBallot)
	for _, ballot := range pending {
		vid := strings.TrimSpace(ballot.VID)
		byVID[vid] = append(byVID[vid], ballot)
	}
	groups := make([]ballotGroup, 0, len(byVID))
	for vid, ballots := range byVID {
		groups = append(groups, ballotGroup{vid: vid, ballots: ballots})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].vid < groups[j].vid
	})
	return groups
}

// mergeVoterGroup runs one voter's atomic merge unit and folds the outcome
// into the report. It never returns an error: failures are isolated to a
// Skipped entry and the voter's rows remain queued.
func (uc ReconcilerUseCase) mergeVoterGroup(
	ctx context.Context,
	logger *slog.Logger,
	electionID string,
	group ballotGroup,
	now time.Time,
	report *entities.MergeReport,
) {
	voter, reason, err := uc.resolveGroupVoter(ctx, group.vid)
	if err != nil {
		report.Skipped = append(report.Skipped, entities.SkippedVoter{VID: group.vid, Reason: err.Error()})
		return
	}
	if reason != "" {
		report.Skipped = append(report.Skipped, entities.SkippedVoter{VID: group.vid, Reason: reason})
		return
	}

	ballotIDs := make([]string, 0, len(group.ballots))
	for _, ballot := range group.ballots {
		ballotIDs = append(ballotIDs, ballot.BallotID)
	}

	var insertedCount int
	var onlineWins bool
	err = uc.TxRunner.InVoterMergeTx(ctx, voter.ID, func(tx ports.MergeTx) error {
		insertedCount = 0
		onlineWins = false

		// The count and any insert happen under the same voter row lock so
		// a concurrent online ballot cannot slip between check and write.
		existing, err := tx.CountVotes(voter.ID, electionID)
		if err != nil {
			return err
		}
		if existing > 0 {
			// Online wins: no ledger rows from this group, but the rows are
			// still stamped merged so no later pass reconsiders them.
			onlineWins = true
			if err := tx.MarkBallotsMerged(ballotIDs, now); err != nil {
				return err
			}
			return tx.SetHasVoted(voter.ID, true)
		}

		votes, err := uc.buildLedgerVotes(ctx, voter, electionID, group.ballots)
		if err != nil {
			return err
		}
		if len(votes) > 0 {
			if err := tx.InsertVotes(votes); err != nil {
				return err
			}
		}
		insertedCount = len(votes)
		if err := tx.MarkBallotsMerged(ballotIDs, now); err != nil {
			return err
		}
		return tx.SetHasVoted(voter.ID, insertedCount > 0)
	})
	if err != nil {
		logger.Warn("voter merge transaction failed",
			"event", "reconciliation_merge_voter_failed",
			"module", "election-operations/reconciliation-engine",
			"layer", "application",
			"election_id", electionID,
			"vid", group.vid,
			"retryable", domainerrors.IsRetryable(err),
			"error", err.Error(),
		)
		report.Skipped = append(report.Skipped, entities.SkippedVoter{VID: group.vid, Reason: err.Error()})
		return
	}

	if onlineWins {
		report.Skipped = append(report.Skipped, entities.SkippedVoter{
			VID:    group.vid,
			Reason: entities.SkipReasonAlreadyHasOnlineVote,
		})
		return
	}
	if insertedCount > 0 {
		report.MergedCount += insertedCount
		report.VoterCount++
	}
}

// resolveGroupVoter resolves a queue VID to a voter. Unresolved and
// ambiguous groups stay queued: the voter record may appear later through
// data corrections.
func (uc ReconcilerUseCase) resolveGroupVoter(
	ctx context.Context,
	vid string,
) (ports.VoterProjection, string, error) {
	matches, err := uc.Voters.FindVotersByVIDs(ctx, voterid.Normalize(vid))
	if err != nil {
		return ports.VoterProjection{}, "", err
	}
	distinct := make(map[string]ports.VoterProjection, len(matches))
	for _, match := range matches {
		distinct[match.ID] = match
	}
	switch len(distinct) {
	case 0:
		return ports.VoterProjection{}, entities.SkipReasonVoterNotFound, nil
	case 1:
		for _, voter := range distinct {
			return voter, "", nil
		}
	}
	return ports.VoterProjection{}, entities.SkipReasonAmbiguousVID, nil
}

// buildLedgerVotes maps a voter's offline rows to ledger rows, preserving
// each ballot's original cast timestamp. Rows without a candidate (blank
// ballots) stamp merged without producing a ledger row.
func (uc ReconcilerUseCase) buildLedgerVotes(
	ctx context.Context,
	voter ports.VoterProjection,
	electionID string,
	ballots []entities.OfflineBallot,
) ([]entities.Vote, error) {
	votes := make([]entities.Vote, 0, len(ballots))
	for _, ballot := range ballots {
		if strings.TrimSpace(ballot.CandidateID) == "" {
			continue
		}
		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		votes = append(votes, entities.Vote{
			VoteID:      voteID,
			VoterID:     voter.ID,
			ElectionID:  electionID,
			CandidateID: strings.TrimSpace(ballot.CandidateID),
			CastAt:      ballot.CastAt,
			Source:      entities.BallotSourceOffline,
			RecordedBy:  ballot.EnteredByAdminID,
		})
	}
	return votes, nil
}

// RecomputeHasVoted realigns the denormalized has_voted flag with actual
// ledger counts, for use after external corrective vote deletion.
func (uc ReconcilerUseCase) RecomputeHasVoted(ctx context.Context, electionID string) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return 0, domainerrors.ErrElectionNotFound
	}
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return 0, err
	}

	withVotes, err := uc.Ledger.ListVoterIDsWithVotes(ctx, electionID)
	if err != nil {
		return 0, err
	}

	// The flag spans the voter's whole ledger footprint, so clearing must
	// check every election, not just the one being recomputed.
	withAnyVotes, err := uc.Ledger.ListVoterIDsWithAnyVotes(ctx)
	if err != nil {
		return 0, err
	}
	votedAnywhere := make(map[string]struct{}, len(withAnyVotes))
	for _, voterID := range withAnyVotes {
		votedAnywhere[voterID] = struct{}{}
	}

	marked, err := uc.Voters.ListVoterIDsMarkedHasVoted(ctx)
	if err != nil {
		return 0, err
	}
	markedSet := make(map[string]struct{}, len(marked))
	for _, voterID := range marked {
		markedSet[voterID] = struct{}{}
	}

	updated := 0
	for _, voterID := range marked {
		if _, ok := votedAnywhere[voterID]; ok {
			continue
		}
		if err := uc.Voters.SetHasVoted(ctx, voterID, false); err != nil {
			return updated, err
		}
		updated++
	}
	for _, voterID := range withVotes {
		if _, ok := markedSet[voterID]; ok {
			continue
		}
		if err := uc.Voters.SetHasVoted(ctx, voterID, true); err != nil {
			return updated, err
		}
		updated++
	}

	logger.Info("has_voted recomputation completed",
		"event", "reconciliation_recompute_has_voted_completed",
		"module", "election-operations/reconciliation-engine",
		"layer", "application",
		"election_id", electionID,
		"updated_count", updated,
	)
	return updated, nil
}

func (uc ReconcilerUseCase) appendMergeCompletedEvent(
	ctx context.Context,
	electionID string,
	report entities.MergeReport,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	skipped := make([]map[string]string, 0, len(report.Skipped))
	for _, skip := range report.Skipped {
		skipped = append(skipped, map[string]string{"vid": skip.VID, "reason": skip.Reason})
	}
	envelope, err := newReconciliationEnvelope(eventID, "offline.ballots.merged", electionID, occurredAt, map[string]any{
		"election_id":  electionID,
		"merged_count": report.MergedCount,
		"voter_count":  report.VoterCount,
		"skipped":      skipped,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc ReconcilerUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
