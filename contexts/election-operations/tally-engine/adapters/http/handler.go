package httpadapter

import (
	"context"
	"log/slog"

	"scrutin/contexts/election-operations/tally-engine/application/queries"
	"scrutin/contexts/election-operations/tally-engine/domain/entities"
	httptransport "scrutin/contexts/election-operations/tally-engine/transport/http"
)

type Handler struct {
	Tally  queries.TallyUseCase
	Logger *slog.Logger
}

func (h Handler) ResultsHandler(
	ctx context.Context,
	electionID string,
) (httptransport.ResultsResponse, error) {
	results, err := h.Tally.ComputeWinners(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	resp := httptransport.ResultsResponse{
		Status: "success",
		Data:   make(map[string][]httptransport.RankedCandidateDTO, len(results)),
	}
	for zoneID, winners := range results {
		resp.Data[zoneID] = toWinnerDTOs(winners)
	}
	return resp, nil
}

func (h Handler) WinnersHandler(
	ctx context.Context,
	electionID string,
) (httptransport.WinnersResponse, error) {
	results, err := h.Tally.ListAllWinners(ctx, electionID)
	if err != nil {
		return httptransport.WinnersResponse{}, err
	}
	resp := httptransport.WinnersResponse{
		Status: "success",
		Data:   make([]httptransport.ZoneResultDTO, 0, len(results)),
	}
	for _, result := range results {
		resp.Data = append(resp.Data, httptransport.ZoneResultDTO{
			ZoneID:   result.ZoneID,
			ZoneCode: result.ZoneCode,
			ZoneName: result.ZoneName,
			Seats:    result.Seats,
			Winners:  toWinnerDTOs(result.Winners),
		})
	}
	return resp, nil
}

func (h Handler) TurnoutHandler(
	ctx context.Context,
	electionID string,
) (httptransport.TurnoutResponse, error) {
	stats, err := h.Tally.TurnoutStats(ctx, electionID)
	if err != nil {
		return httptransport.TurnoutResponse{}, err
	}
	resp := httptransport.TurnoutResponse{Status: "success"}
	resp.Data.ElectionID = stats.ElectionID
	resp.Data.BallotsCast = stats.BallotsCast
	resp.Data.DistinctVoters = stats.DistinctVoters
	resp.Data.Zones = make([]httptransport.ZoneTurnoutDTO, 0, len(stats.Zones))
	for _, zone := range stats.Zones {
		resp.Data.Zones = append(resp.Data.Zones, httptransport.ZoneTurnoutDTO{
			ZoneID:      zone.ZoneID,
			ZoneCode:    zone.ZoneCode,
			ZoneName:    zone.ZoneName,
			BallotsCast: zone.BallotsCast,
			VoterCount:  zone.VoterCount,
		})
	}
	return resp, nil
}

func toWinnerDTOs(winners []entities.RankedCandidate) []httptransport.RankedCandidateDTO {
	items := make([]httptransport.RankedCandidateDTO, 0, len(winners))
	for _, winner := range winners {
		items = append(items, httptransport.RankedCandidateDTO{
			CandidateID: winner.CandidateID,
			Name:        winner.Name,
			Votes:       winner.Votes,
			Rank:        winner.Rank,
			IsNota:      winner.IsNota,
		})
	}
	return items
}
