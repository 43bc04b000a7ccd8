package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "scrutin/contexts/election-operations/tally-engine/domain/errors"
	"scrutin/contexts/election-operations/tally-engine/ports"

	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type tallyBallotRow struct {
	ID          string    `gorm:"column:id"`
	VoterID     string    `gorm:"column:voter_id"`
	VoterVID    string    `gorm:"column:voter_vid"`
	CandidateID string    `gorm:"column:candidate_id"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

// ListBallots joins ledger rows with the voter directory so callers can
// filter reserved test voters by VID. The read takes no locks.
func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]ports.TallyBallot, error) {
	var rows []tallyBallotRow
	err := r.db.WithContext(ctx).
		Table("votes").
		Select("votes.id, votes.voter_id, voters.voter_id AS voter_vid, votes.candidate_id, votes.cast_at").
		Joins("JOIN voters ON voters.id = votes.voter_id").
		Where("votes.election_id = ?", strings.TrimSpace(electionID)).
		Order("votes.cast_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, r.logError("tally_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]ports.TallyBallot, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.TallyBallot{
			VoteID:      row.ID,
			VoterID:     row.VoterID,
			VoterVID:    row.VoterVID,
			CandidateID: row.CandidateID,
			CastAt:      row.CastAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (ports.ElectionProjection, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ElectionProjection{}, domainerrors.ErrElectionNotFound
		}
		return ports.ElectionProjection{}, r.logError("tally_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return ports.ElectionProjection{
		ID:     row.ID,
		Type:   row.Type,
		Status: row.Status,
		Title:  row.Title,
	}, nil
}

func (r *Repository) ListCandidatesByElectionType(
	ctx context.Context,
	electionType string,
) ([]ports.CandidateProjection, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_type = ?", strings.TrimSpace(electionType)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_candidates_failed", err,
			"election_type", strings.TrimSpace(electionType),
		)
	}
	items := make([]ports.CandidateProjection, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.CandidateProjection{
			ID:           row.ID,
			ZoneID:       row.ZoneID,
			ElectionType: row.ElectionType,
			Name:         row.Name,
			Status:       row.Status,
			IsNota:       row.IsNota,
		})
	}
	return items, nil
}

func (r *Repository) ListZonesByElectionType(
	ctx context.Context,
	electionType string,
) ([]ports.ZoneProjection, error) {
	var rows []zoneModel
	if err := r.db.WithContext(ctx).
		Where("election_type = ?", strings.TrimSpace(electionType)).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_zones_failed", err,
			"election_type", strings.TrimSpace(electionType),
		)
	}
	items := make([]ports.ZoneProjection, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.ZoneProjection{
			ID:           row.ID,
			Code:         row.Code,
			Name:         row.Name,
			ElectionType: row.ElectionType,
			Seats:        row.Seats,
			IsActive:     row.IsActive,
		})
	}
	return items, nil
}

func (r *Repository) GetVoterZone(
	ctx context.Context,
	voterID string,
	electionType string,
) (string, bool, error) {
	var row voterZoneAssignmentModel
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Where("election_type = ?", strings.TrimSpace(electionType)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, r.logError("tally_repo_get_voter_zone_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.ZoneID, true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-operations/tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	return err
}

type electionModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	Type   string `gorm:"column:type"`
	Status string `gorm:"column:status"`
	Title  string `gorm:"column:title"`
}

func (electionModel) TableName() string {
	return "elections"
}

type candidateModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	ZoneID       string `gorm:"column:zone_id"`
	ElectionType string `gorm:"column:election_type"`
	Name         string `gorm:"column:name"`
	Status       string `gorm:"column:status"`
	IsNota       bool   `gorm:"column:is_nota"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

type zoneModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	Code         string `gorm:"column:code"`
	Name         string `gorm:"column:name"`
	ElectionType string `gorm:"column:election_type"`
	Seats        int    `gorm:"column:seats"`
	IsActive     bool   `gorm:"column:is_active"`
}

func (zoneModel) TableName() string {
	return "zones"
}

type voterZoneAssignmentModel struct {
	VoterID      string `gorm:"column:voter_id;primaryKey"`
	ElectionType string `gorm:"column:election_type;primaryKey"`
	ZoneID       string `gorm:"column:zone_id"`
}

func (voterZoneAssignmentModel) TableName() string {
	return "voter_zone_assignments"
}

var _ ports.VoteLedgerReader = (*Repository)(nil)
var _ ports.ElectionProvider = (*Repository)(nil)
var _ ports.CandidateCatalog = (*Repository)(nil)
var _ ports.ZoneRegistry = (*Repository)(nil)
