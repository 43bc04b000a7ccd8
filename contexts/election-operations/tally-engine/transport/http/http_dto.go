package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RankedCandidateDTO struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Votes       int    `json:"votes"`
	Rank        int    `json:"rank"`
	IsNota      bool   `json:"is_nota"`
}

type ZoneResultDTO struct {
	ZoneID   string               `json:"zone_id"`
	ZoneCode string               `json:"zone_code"`
	ZoneName string               `json:"zone_name"`
	Seats    int                  `json:"seats"`
	Winners  []RankedCandidateDTO `json:"winners"`
}

type ResultsResponse struct {
	Status string                          `json:"status"`
	Data   map[string][]RankedCandidateDTO `json:"data"`
}

type WinnersResponse struct {
	Status string          `json:"status"`
	Data   []ZoneResultDTO `json:"data"`
}

type ZoneTurnoutDTO struct {
	ZoneID      string `json:"zone_id"`
	ZoneCode    string `json:"zone_code"`
	ZoneName    string `json:"zone_name"`
	BallotsCast int    `json:"ballots_cast"`
	VoterCount  int    `json:"voter_count"`
}

type TurnoutResponse struct {
	Status string `json:"status"`
	Data   struct {
		ElectionID     string           `json:"election_id"`
		BallotsCast    int              `json:"ballots_cast"`
		DistinctVoters int              `json:"distinct_voters"`
		Zones          []ZoneTurnoutDTO `json:"zones"`
	} `json:"data"`
}
