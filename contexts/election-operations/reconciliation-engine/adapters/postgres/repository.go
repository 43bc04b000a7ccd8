package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"scrutin/contexts/election-operations/reconciliation-engine/domain/entities"
	domainerrors "scrutin/contexts/election-operations/reconciliation-engine/domain/errors"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
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

func (r *Repository) FindVotersByVIDs(ctx context.Context, vids []string) ([]ports.VoterProjection, error) {
	if len(vids) == 0 {
		return nil, nil
	}
	var rows []voterModel
	if err := r.db.WithContext(ctx).
		Where("voter_id IN ?", vids).
		Order("voter_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("reconciliation_repo_find_voters_failed", err, "vid_count", len(vids))
	}
	items := make([]ports.VoterProjection, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toProjection())
	}
	return items, nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID string) (ports.VoterProjection, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.VoterProjection{}, domainerrors.ErrVoterNotFound
		}
		return ports.VoterProjection{}, r.logError("reconciliation_repo_get_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toProjection(), nil
}

func (r *Repository) ListVoterIDsMarkedHasVoted(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("has_voted = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, r.logError("reconciliation_repo_list_marked_has_voted_failed", err)
	}
	return ids, nil
}

func (r *Repository) SetHasVoted(ctx context.Context, voterID string, hasVoted bool) error {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("id = ?", strings.TrimSpace(voterID)).
		Update("has_voted", hasVoted)
	if result.Error != nil {
		return r.logError("reconciliation_repo_set_has_voted_failed", result.Error,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoterNotFound
	}
	return nil
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
		return ports.ElectionProjection{}, r.logError("reconciliation_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toProjection(), nil
}

func (r *Repository) GetActiveElectionByType(
	ctx context.Context,
	electionType string,
) (ports.ElectionProjection, bool, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("type = ?", strings.TrimSpace(electionType)).
		Where("status = ?", string(entities.ElectionStatusActive)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ElectionProjection{}, false, nil
		}
		return ports.ElectionProjection{}, false, r.logError("reconciliation_repo_get_active_election_failed", err,
			"election_type", strings.TrimSpace(electionType),
		)
	}
	return row.toProjection(), true, nil
}

func (r *Repository) GetCandidate(ctx context.Context, candidateID string) (ports.CandidateProjection, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(candidateID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.CandidateProjection{}, domainerrors.ErrCandidateNotFound
		}
		return ports.CandidateProjection{}, r.logError("reconciliation_repo_get_candidate_failed", err,
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	return row.toProjection(), nil
}

func (r *Repository) GetZone(ctx context.Context, zoneID string) (ports.ZoneProjection, error) {
	var row zoneModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(zoneID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ZoneProjection{}, domainerrors.ErrZoneNotFound
		}
		return ports.ZoneProjection{}, r.logError("reconciliation_repo_get_zone_failed", err,
			"zone_id", strings.TrimSpace(zoneID),
		)
	}
	return row.toProjection(), nil
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
		return "", false, r.logError("reconciliation_repo_get_voter_zone_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"election_type", strings.TrimSpace(electionType),
		)
	}
	return row.ZoneID, true, nil
}

func (r *Repository) CountVotesForVoter(ctx context.Context, voterID string, electionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("reconciliation_repo_count_votes_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return int(count), nil
}

func (r *Repository) ListVoterIDsWithVotes(ctx context.Context, electionID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Distinct("voter_id").
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("voter_id ASC").
		Pluck("voter_id", &ids).Error; err != nil {
		return nil, r.logError("reconciliation_repo_list_voters_with_votes_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return ids, nil
}

func (r *Repository) ListVoterIDsWithAnyVotes(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Distinct("voter_id").
		Order("voter_id ASC").
		Pluck("voter_id", &ids).Error; err != nil {
		return nil, r.logError("reconciliation_repo_list_voters_with_any_votes_failed", err)
	}
	return ids, nil
}

func (r *Repository) SaveOfflineBallot(ctx context.Context, ballot entities.OfflineBallot) error {
	row := offlineBallotModelFromEntity(ballot)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("reconciliation_repo_save_ballot_failed", create.Error,
			"ballot_id", strings.TrimSpace(ballot.BallotID),
			"vid", strings.TrimSpace(ballot.VID),
		)
	}
	return nil
}

func (r *Repository) GetOfflineBallot(ctx context.Context, ballotID string) (entities.OfflineBallot, error) {
	var row offlineBallotModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.OfflineBallot{}, domainerrors.ErrBallotNotFound
		}
		return entities.OfflineBallot{}, r.logError("reconciliation_repo_get_ballot_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListUnmerged(ctx context.Context, electionID string) ([]entities.OfflineBallot, error) {
	var rows []offlineBallotModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("is_merged = ?", false).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("reconciliation_repo_list_unmerged_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.OfflineBallot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountUnmergedForVIDs(ctx context.Context, vids []string, electionID string) (int, error) {
	if len(vids) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&offlineBallotModel{}).
		Where("vid IN ?", vids).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("is_merged = ?", false).
		Count(&count).Error; err != nil {
		return 0, r.logError("reconciliation_repo_count_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return int(count), nil
}

// InVoterMergeTx wraps one voter's merge unit in a transaction that first
// takes a SELECT ... FOR UPDATE lock on the voter row. Any concurrent
// online-ballot transaction for the same voter serializes on that lock, so
// the existing-vote count and the merged-vote insert are atomic.
func (r *Repository) InVoterMergeTx(
	ctx context.Context,
	voterID string,
	fn func(ports.MergeTx) error,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row voterModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(voterID)).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrVoterNotFound
			}
			return err
		}
		return fn(&mergeTx{tx: tx})
	})
	if err != nil {
		if isRetryableTxFailure(err) {
			r.logError("reconciliation_repo_merge_tx_retryable", err, "voter_id", strings.TrimSpace(voterID))
			return domainerrors.ErrTransientStorage
		}
		return err
	}
	return nil
}

type mergeTx struct {
	tx *gorm.DB
}

func (m *mergeTx) CountVotes(voterID string, electionID string) (int, error) {
	var count int64
	if err := m.tx.
		Model(&voteModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (m *mergeTx) InsertVotes(votes []entities.Vote) error {
	if len(votes) == 0 {
		return nil
	}
	rows := make([]voteModel, 0, len(votes))
	for _, vote := range votes {
		rows = append(rows, voteModelFromEntity(vote))
	}
	if err := m.tx.Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (m *mergeTx) MarkBallotsMerged(ballotIDs []string, mergedAt time.Time) error {
	if len(ballotIDs) == 0 {
		return nil
	}
	stamp := mergedAt.UTC()
	return m.tx.
		Model(&offlineBallotModel{}).
		Where("id IN ?", ballotIDs).
		Where("is_merged = ?", false).
		Updates(map[string]any{
			"is_merged": true,
			"merged_at": stamp,
		}).Error
}

func (m *mergeTx) SetHasVoted(voterID string, hasVoted bool) error {
	return m.tx.
		Model(&voterModel{}).
		Where("id = ?", strings.TrimSpace(voterID)).
		Update("has_voted", hasVoted).Error
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("reconciliation_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("reconciliation_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		BallotID:    row.BallotID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		BallotID:    strings.TrimSpace(record.BallotID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("reconciliation_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("reconciliation_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.BallotID != row.BallotID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := envelopePayload(envelope)
	if err != nil {
		return r.logError("reconciliation_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("reconciliation_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("reconciliation_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("reconciliation_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-operations/reconciliation-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("reconciliation repository operation failed", fields...)
	return err
}

type voteModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	VoterID     string    `gorm:"column:voter_id"`
	ElectionID  string    `gorm:"column:election_id"`
	CandidateID string    `gorm:"column:candidate_id"`
	CastAt      time.Time `gorm:"column:cast_at"`
	Source      string    `gorm:"column:source"`
	RecordedBy  string    `gorm:"column:recorded_by"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:          strings.TrimSpace(vote.VoteID),
		VoterID:     strings.TrimSpace(vote.VoterID),
		ElectionID:  strings.TrimSpace(vote.ElectionID),
		CandidateID: strings.TrimSpace(vote.CandidateID),
		CastAt:      vote.CastAt.UTC(),
		Source:      string(vote.Source),
		RecordedBy:  strings.TrimSpace(vote.RecordedBy),
		CreatedAt:   vote.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

type offlineBallotModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	VID              string     `gorm:"column:vid"`
	ElectionID       string     `gorm:"column:election_id"`
	CandidateID      *string    `gorm:"column:candidate_id"`
	CastAt           time.Time  `gorm:"column:cast_at"`
	EnteredByAdminID string     `gorm:"column:entered_by_admin_id"`
	Notes            string     `gorm:"column:notes"`
	IsMerged         bool       `gorm:"column:is_merged"`
	MergedAt         *time.Time `gorm:"column:merged_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (offlineBallotModel) TableName() string {
	return "offline_ballots"
}

func offlineBallotModelFromEntity(ballot entities.OfflineBallot) offlineBallotModel {
	row := offlineBallotModel{
		ID:               strings.TrimSpace(ballot.BallotID),
		VID:              strings.TrimSpace(ballot.VID),
		ElectionID:       strings.TrimSpace(ballot.ElectionID),
		CastAt:           ballot.CastAt.UTC(),
		EnteredByAdminID: strings.TrimSpace(ballot.EnteredByAdminID),
		Notes:            strings.TrimSpace(ballot.Notes),
		IsMerged:         ballot.IsMerged,
		MergedAt:         normalizeOptionalTime(ballot.MergedAt),
		CreatedAt:        ballot.CreatedAt.UTC(),
	}
	if strings.TrimSpace(ballot.CandidateID) != "" {
		candidateID := strings.TrimSpace(ballot.CandidateID)
		row.CandidateID = &candidateID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m offlineBallotModel) toEntity() entities.OfflineBallot {
	candidateID := ""
	if m.CandidateID != nil {
		candidateID = strings.TrimSpace(*m.CandidateID)
	}
	return entities.OfflineBallot{
		BallotID:         m.ID,
		VID:              m.VID,
		ElectionID:       m.ElectionID,
		CandidateID:      candidateID,
		CastAt:           m.CastAt.UTC(),
		EnteredByAdminID: m.EnteredByAdminID,
		Notes:            m.Notes,
		IsMerged:         m.IsMerged,
		MergedAt:         normalizeOptionalTime(m.MergedAt),
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

type voterModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	VoterID  string `gorm:"column:voter_id"`
	IsActive bool   `gorm:"column:is_active"`
	HasVoted bool   `gorm:"column:has_voted"`
}

func (voterModel) TableName() string {
	return "voters"
}

func (m voterModel) toProjection() ports.VoterProjection {
	return ports.VoterProjection{
		ID:       m.ID,
		VID:      m.VoterID,
		IsActive: m.IsActive,
		HasVoted: m.HasVoted,
	}
}

type voterZoneAssignmentModel struct {
	VoterID      string `gorm:"column:voter_id;primaryKey"`
	ElectionType string `gorm:"column:election_type;primaryKey"`
	ZoneID       string `gorm:"column:zone_id"`
}

func (voterZoneAssignmentModel) TableName() string {
	return "voter_zone_assignments"
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

func (m electionModel) toProjection() ports.ElectionProjection {
	return ports.ElectionProjection{
		ID:     m.ID,
		Type:   m.Type,
		Status: entities.ElectionStatus(m.Status),
		Title:  m.Title,
	}
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

func (m candidateModel) toProjection() ports.CandidateProjection {
	return ports.CandidateProjection{
		ID:           m.ID,
		ZoneID:       m.ZoneID,
		ElectionType: m.ElectionType,
		Name:         m.Name,
		Status:       entities.CandidateStatus(m.Status),
		IsNota:       m.IsNota,
	}
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

func (m zoneModel) toProjection() ports.ZoneProjection {
	return ports.ZoneProjection{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		ElectionType: m.ElectionType,
		Seats:        m.Seats,
		IsActive:     m.IsActive,
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	BallotID    string    `gorm:"column:ballot_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "reconciliation_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "reconciliation_outbox"
}

func envelopePayload(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isRetryableTxFailure covers serialization failures and deadlocks, which
// requeue the voter for the next pass instead of surfacing to operators.
func isRetryableTxFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// SystemClock satisfies the module clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator satisfies the module ID port with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.VoterDirectory = (*Repository)(nil)
var _ ports.ElectionProvider = (*Repository)(nil)
var _ ports.CandidateCatalog = (*Repository)(nil)
var _ ports.ZoneRegistry = (*Repository)(nil)
var _ ports.VoteLedger = (*Repository)(nil)
var _ ports.OfflineBallotRepository = (*Repository)(nil)
var _ ports.MergeTxRunner = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
