package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"scrutin/contexts/election-operations/reconciliation-engine/application/commands"
	"scrutin/contexts/election-operations/reconciliation-engine/application/queries"
	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	httptransport "scrutin/contexts/election-operations/reconciliation-engine/transport/http"
)

type Handler struct {
	Intake     commands.IntakeUseCase
	Reconciler commands.ReconcilerUseCase
	Queue      queries.QueueUseCase
	Logger     *slog.Logger
}

func (h Handler) RecordOfflineBallotHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.RecordOfflineBallotRequest,
) (httptransport.RecordOfflineBallotResponse, error) {
	result, err := h.Intake.RecordOfflineBallot(ctx, commands.RecordOfflineBallotCommand{
		VID:             req.VID,
		ElectionID:      req.ElectionID,
		CandidateID:     req.CandidateID,
		AdminID:         req.AdminID,
		Notes:           req.Notes,
		AllowAdditional: req.AllowAdditional,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		return httptransport.RecordOfflineBallotResponse{}, err
	}
	return httptransport.RecordOfflineBallotResponse{
		Status:   "success",
		Replayed: result.Replayed,
		Data:     toBallotDTO(result.Ballot),
	}, nil
}

func (h Handler) PendingBallotsHandler(
	ctx context.Context,
	electionID string,
) (httptransport.PendingBallotsResponse, error) {
	items, err := h.Queue.PendingBallots(ctx, electionID)
	if err != nil {
		return httptransport.PendingBallotsResponse{}, err
	}
	resp := httptransport.PendingBallotsResponse{
		Status: "success",
		Data:   make([]httptransport.OfflineBallotDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toBallotDTO(item))
	}
	return resp, nil
}

func (h Handler) MergeHandler(
	ctx context.Context,
	electionID string,
) (httptransport.MergeResponse, error) {
	report, err := h.Reconciler.MergeOfflineBallots(ctx, electionID)
	if err != nil {
		return httptransport.MergeResponse{}, err
	}
	return httptransport.MergeResponse{
		Status: "success",
		Data:   toMergeReportDTO(report),
	}, nil
}

func (h Handler) RecomputeHasVotedHandler(
	ctx context.Context,
	electionID string,
) (httptransport.RecomputeHasVotedResponse, error) {
	updated, err := h.Reconciler.RecomputeHasVoted(ctx, electionID)
	if err != nil {
		return httptransport.RecomputeHasVotedResponse{}, err
	}
	resp := httptransport.RecomputeHasVotedResponse{Status: "success"}
	resp.Data.UpdatedCount = updated
	return resp, nil
}

func toBallotDTO(ballot entities.OfflineBallot) httptransport.OfflineBallotDTO {
	dto := httptransport.OfflineBallotDTO{
		BallotID:         ballot.BallotID,
		VID:              ballot.VID,
		ElectionID:       ballot.ElectionID,
		CandidateID:      ballot.CandidateID,
		CastAt:           ballot.CastAt.UTC().Format(time.RFC3339),
		EnteredByAdminID: ballot.EnteredByAdminID,
		Notes:            ballot.Notes,
		IsMerged:         ballot.IsMerged,
		CreatedAt:        ballot.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ballot.MergedAt != nil {
		dto.MergedAt = ballot.MergedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toMergeReportDTO(report entities.MergeReport) httptransport.MergeReportDTO {
	dto := httptransport.MergeReportDTO{
		MergedCount: report.MergedCount,
		VoterCount:  report.VoterCount,
		Skipped:     make([]httptransport.SkippedVoterDTO, 0, len(report.Skipped)),
	}
	for _, skip := range report.Skipped {
		dto.Skipped = append(dto.Skipped, httptransport.SkippedVoterDTO{VID: skip.VID, Reason: skip.Reason})
	}
	return dto
}
