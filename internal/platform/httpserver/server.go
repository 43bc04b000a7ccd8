package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	reconciliationengine "scrutin/contexts/election-operations/reconciliation-engine"
	reconciliationerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	reconciliationhttp "scrutin/contexts/election-operations/reconciliation-engine/transport/http"
	tallyengine "scrutin/contexts/election-operations/tally-engine"
	tallyerrors "scrutin/contexts/election-operations/tally-engine/domain/errors"
	tallyhttp "scrutin/contexts/election-operations/tally-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "scrutin/internal/platform/httpserver/docs"
)

type Server struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	addr           string
	reconciliation reconciliationengine.Module
	tally          tallyengine.Module
}

func New(
	reconciliation reconciliationengine.Module,
	tally tallyengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:            http.NewServeMux(),
		logger:         logger,
		addr:           addr,
		reconciliation: reconciliation,
		tally:          tally,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/reconciliation/v1/offline-ballots", s.handleRecordOfflineBallot)
	s.mux.HandleFunc("GET /api/reconciliation/v1/elections/{election_id}/offline-ballots", s.handlePendingBallots)
	s.mux.HandleFunc("POST /api/reconciliation/v1/elections/{election_id}/merge", s.handleMerge)
	s.mux.HandleFunc("POST /api/reconciliation/v1/elections/{election_id}/recompute-has-voted", s.handleRecomputeHasVoted)

	s.mux.HandleFunc("GET /api/tally/v1/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /api/tally/v1/elections/{election_id}/winners", s.handleWinners)
	s.mux.HandleFunc("GET /api/tally/v1/elections/{election_id}/turnout", s.handleTurnout)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecordOfflineBallot(w http.ResponseWriter, r *http.Request) {
	var req reconciliationhttp.RecordOfflineBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeReconciliationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.AdminID) == "" {
		req.AdminID = strings.TrimSpace(r.Header.Get("X-Admin-ID"))
	}
	idempotencyKey := r.Header.Get("Idempotency-Key")

	resp, err := s.reconciliation.Handler.RecordOfflineBallotHandler(r.Context(), idempotencyKey, req)
	if err != nil {
		writeReconciliationDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePendingBallots(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.reconciliation.Handler.PendingBallotsHandler(r.Context(), electionID)
	if err != nil {
		writeReconciliationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.reconciliation.Handler.MergeHandler(r.Context(), electionID)
	if err != nil {
		writeReconciliationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecomputeHasVoted(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.reconciliation.Handler.RecomputeHasVotedHandler(r.Context(), electionID)
	if err != nil {
		writeReconciliationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.tally.Handler.ResultsHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.tally.Handler.WinnersHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTurnout(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("election_id")
	resp, err := s.tally.Handler.TurnoutHandler(r.Context(), electionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeReconciliationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconciliationerrors.ErrInvalidBallotInput):
		writeReconciliationError(w, http.StatusBadRequest, "invalid_ballot_input", err.Error())
	case errors.Is(err, reconciliationerrors.ErrIdempotencyKeyRequired):
		writeReconciliationError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, reconciliationerrors.ErrVoterNotFound):
		writeReconciliationError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, reconciliationerrors.ErrElectionNotFound):
		writeReconciliationError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, reconciliationerrors.ErrCandidateNotFound):
		writeReconciliationError(w, http.StatusNotFound, "candidate_not_found", err.Error())
	case errors.Is(err, reconciliationerrors.ErrBallotNotFound):
		writeReconciliationError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, reconciliationerrors.ErrZoneNotFound):
		writeReconciliationError(w, http.StatusNotFound, "zone_not_found", err.Error())
	case errors.Is(err, reconciliationerrors.ErrAmbiguousVID):
		writeReconciliationError(w, http.StatusUnprocessableEntity, "ambiguous_vid", err.Error())
	case errors.Is(err, reconciliationerrors.ErrVoterZoneUnassigned):
		writeReconciliationError(w, http.StatusUnprocessableEntity, "voter_zone_unassigned", err.Error())
	case errors.Is(err, reconciliationerrors.ErrCandidateNotInZone):
		writeReconciliationError(w, http.StatusUnprocessableEntity, "candidate_not_in_zone", err.Error())
	case errors.Is(err, reconciliationerrors.ErrCandidateNotVotable):
		writeReconciliationError(w, http.StatusUnprocessableEntity, "candidate_not_votable", err.Error())
	case errors.Is(err, reconciliationerrors.ErrElectionNotActive):
		writeReconciliationError(w, http.StatusConflict, "election_not_active", err.Error())
	case errors.Is(err, reconciliationerrors.ErrAlreadyVoted):
		writeReconciliationError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, reconciliationerrors.ErrSeatQuotaExceeded):
		writeReconciliationError(w, http.StatusConflict, "seat_quota_exceeded", err.Error())
	case errors.Is(err, reconciliationerrors.ErrIdempotencyConflict):
		writeReconciliationError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, reconciliationerrors.ErrConflict):
		writeReconciliationError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, reconciliationerrors.ErrTransientStorage):
		writeReconciliationError(w, http.StatusServiceUnavailable, "transient_storage", err.Error())
	default:
		writeReconciliationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tallyerrors.ErrElectionNotFound):
		writeTallyError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, tallyerrors.ErrZoneNotFound):
		writeTallyError(w, http.StatusNotFound, "zone_not_found", err.Error())
	default:
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeReconciliationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, reconciliationhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
