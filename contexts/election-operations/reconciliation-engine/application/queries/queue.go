package queries

import (
	"context"
	"strings"

	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"
)

// QueueUseCase exposes the unmerged offline ballot queue for administrative
// review before a merge is triggered.
type QueueUseCase struct {
	Elections ports.ElectionProvider
	Ballots   ports.OfflineBallotRepository
}

func (uc QueueUseCase) PendingBallots(ctx context.Context, electionID string) ([]entities.OfflineBallot, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return nil, domainerrors.ErrElectionNotFound
	}
	if _, err := uc.Elections.GetElection(ctx, electionID); err != nil {
		return nil, err
	}
	return uc.Ballots.ListUnmerged(ctx, electionID)
}
