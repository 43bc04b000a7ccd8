package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecordOfflineBallotRequest struct {
	VID             string `json:"vid"`
	ElectionID      string `json:"election_id"`
	CandidateID     string `json:"candidate_id,omitempty"`
	AdminID         string `json:"admin_id"`
	Notes           string `json:"notes,omitempty"`
	AllowAdditional bool   `json:"allow_additional,omitempty"`
}

type OfflineBallotDTO struct {
	BallotID         string `json:"ballot_id"`
	VID              string `json:"vid"`
	ElectionID       string `json:"election_id"`
	CandidateID      string `json:"candidate_id,omitempty"`
	CastAt           string `json:"cast_at"`
	EnteredByAdminID string `json:"entered_by_admin_id"`
	Notes            string `json:"notes,omitempty"`
	IsMerged         bool   `json:"is_merged"`
	MergedAt         string `json:"merged_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type RecordOfflineBallotResponse struct {
	Status   string           `json:"status"`
	Replayed bool             `json:"replayed,omitempty"`
	Data     OfflineBallotDTO `json:"data"`
}

type PendingBallotsResponse struct {
	Status string             `json:"status"`
	Data   []OfflineBallotDTO `json:"data"`
}

type SkippedVoterDTO struct {
	VID    string `json:"vid"`
	Reason string `json:"reason"`
}

type MergeReportDTO struct {
	MergedCount int               `json:"merged_count"`
	VoterCount  int               `json:"voter_count"`
	Skipped     []SkippedVoterDTO `json:"skipped"`
}

type MergeResponse struct {
	Status string         `json:"status"`
	Data   MergeReportDTO `json:"data"`
}

type RecomputeHasVotedResponse struct {
	Status string `json:"status"`
	Data   struct {
		UpdatedCount int `json:"updated_count"`
	} `json:"data"`
}
