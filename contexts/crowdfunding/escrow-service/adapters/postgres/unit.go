package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txUnit struct {
	tx     *gorm.DB
	lock   bool
	logger *slog.Logger
}

// forUpdate adds a row lock when running inside a unit. SQLite has no
// FOR UPDATE; its write transactions are already exclusive.
func (u *txUnit) forUpdate() *gorm.DB {
	if !u.lock || u.tx.Dialector.Name() != "postgres" {
		return u.tx
	}
	return u.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (u *txUnit) nextSequence(name string, start int64) (int64, error) {
	seed := sequenceModel{Name: name, NextValue: start}
	if err := u.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return 0, u.logError("escrow_repo_seed_sequence_failed", err, "sequence_name", name)
	}

	var current sequenceModel
	if err := u.forUpdate().Where("name = ?", name).First(&current).Error; err != nil {
		return 0, u.logError("escrow_repo_read_sequence_failed", err, "sequence_name", name)
	}
	if err := u.tx.Model(&sequenceModel{}).
		Where("name = ?", name).
		Update("next_value", current.NextValue+1).Error; err != nil {
		return 0, u.logError("escrow_repo_advance_sequence_failed", err, "sequence_name", name)
	}
	return current.NextValue, nil
}

func (u *txUnit) CountCampaigns(context.Context) (int, error) {
	var count int64
	if err := u.tx.Model(&campaignModel{}).Count(&count).Error; err != nil {
		return 0, u.logError("escrow_repo_count_campaigns_failed", err)
	}
	return int(count), nil
}

func (u *txUnit) GetCampaign(_ context.Context, campaignID int64) (entities.Campaign, error) {
	var row campaignModel
	err := u.forUpdate().Where("campaign_id = ?", campaignID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, u.logError("escrow_repo_get_campaign_failed", err, "campaign_id", campaignID)
	}
	return row.toEntity(), nil
}

func (u *txUnit) ListCampaigns(_ context.Context, offset int, limit int) ([]entities.Campaign, error) {
	var rows []campaignModel
	if err := u.tx.
		Order("campaign_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, u.logError("escrow_repo_list_campaigns_failed", err)
	}
	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (u *txUnit) GetRequest(_ context.Context, campaignID int64, index int) (entities.DisbursementRequest, error) {
	var row requestModel
	err := u.tx.
		Where("campaign_id = ? AND request_index = ?", campaignID, index).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DisbursementRequest{}, domainerrors.ErrRequestNotFound
		}
		return entities.DisbursementRequest{}, u.logError("escrow_repo_get_request_failed", err,
			"campaign_id", campaignID,
			"request_index", index,
		)
	}
	return row.toEntity(), nil
}

func (u *txUnit) ListRequests(_ context.Context, campaignID int64, offset int, limit int) ([]entities.DisbursementRequest, error) {
	var campaigns int64
	if err := u.tx.Model(&campaignModel{}).Where("campaign_id = ?", campaignID).Count(&campaigns).Error; err != nil {
		return nil, u.logError("escrow_repo_list_requests_failed", err, "campaign_id", campaignID)
	}
	if campaigns == 0 {
		return nil, domainerrors.ErrCampaignNotFound
	}

	var rows []requestModel
	if err := u.tx.
		Where("campaign_id = ?", campaignID).
		Order("request_index ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, u.logError("escrow_repo_list_requests_failed", err, "campaign_id", campaignID)
	}
	items := make([]entities.DisbursementRequest, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (u *txUnit) IsContributor(_ context.Context, campaignID int64, identity valueobjects.Identity) (bool, error) {
	var count int64
	if err := u.tx.Model(&contributorModel{}).
		Where("campaign_id = ? AND identity = ?", campaignID, identity.String()).
		Count(&count).Error; err != nil {
		return false, u.logError("escrow_repo_is_contributor_failed", err, "campaign_id", campaignID)
	}
	return count > 0, nil
}

func (u *txUnit) HasVoted(_ context.Context, campaignID int64, index int, voter valueobjects.Identity) (bool, error) {
	var count int64
	if err := u.tx.Model(&voteModel{}).
		Where("campaign_id = ? AND request_index = ? AND voter = ?", campaignID, index, voter.String()).
		Count(&count).Error; err != nil {
		return false, u.logError("escrow_repo_has_voted_failed", err,
			"campaign_id", campaignID,
			"request_index", index,
		)
	}
	return count > 0, nil
}

// Balance locks the account row inside a unit. Payout accounts are shared
// across campaigns, so the campaign lock alone does not serialize their
// read-modify-write; the row is seeded first so a missing account can be
// locked too.
func (u *txUnit) Balance(_ context.Context, account entities.AccountRef) (decimal.Decimal, error) {
	if u.lock {
		seed := balanceRow(account, decimal.Zero)
		if err := u.tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_key"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return decimal.Zero, u.logError("escrow_repo_seed_balance_failed", err, "account", account.Key())
		}
	}

	var row balanceModel
	err := u.balanceQuery(account).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, u.logError("escrow_repo_get_balance_failed", err, "account", account.Key())
	}
	return row.Balance, nil
}

func (u *txUnit) balanceQuery(account entities.AccountRef) *gorm.DB {
	return u.forUpdate().Where("account_key = ?", account.Key())
}

func balanceRow(account entities.AccountRef, balance decimal.Decimal) balanceModel {
	return balanceModel{
		AccountKey: account.Key(),
		Kind:       string(account.Kind),
		CampaignID: account.CampaignID,
		Holder:     account.Holder.String(),
		Balance:    balance,
		UpdatedAt:  time.Now().UTC(),
	}
}

func (u *txUnit) ListEvents(_ context.Context, filter ports.EventFilter) ([]entities.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := u.tx.Model(&eventModel{}).Where("event_sequence > ?", filter.AfterSequence)
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if !filter.Actor.IsZero() {
		query = query.Where("actor = ?", filter.Actor.String())
	}

	var rows []eventModel
	if err := query.Order("event_sequence ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, u.logError("escrow_repo_list_events_failed", err)
	}
	return toEventEntities(rows), nil
}

func (u *txUnit) NextCampaignID(context.Context) (int64, error) {
	return u.nextSequence(sequenceCampaign, 0)
}

func (u *txUnit) CreateCampaign(_ context.Context, campaign entities.Campaign) error {
	row := campaignModelFromEntity(campaign)
	if err := u.tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvariantViolated
		}
		return u.logError("escrow_repo_create_campaign_failed", err, "campaign_id", campaign.CampaignID)
	}
	return nil
}

func (u *txUnit) UpdateCampaign(_ context.Context, campaign entities.Campaign) error {
	result := u.tx.Model(&campaignModel{}).
		Where("campaign_id = ?", campaign.CampaignID).
		Updates(map[string]any{
			"collected":       campaign.Collected,
			"approvers_count": campaign.ApproversCount,
			"request_count":   campaign.RequestCount,
			"updated_at":      campaign.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return u.logError("escrow_repo_update_campaign_failed", result.Error, "campaign_id", campaign.CampaignID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCampaignNotFound
	}
	return nil
}

func (u *txUnit) AddContributor(_ context.Context, campaignID int64, identity valueobjects.Identity, joinedAt time.Time) (bool, error) {
	row := contributorModel{
		CampaignID: campaignID,
		Identity:   identity.String(),
		JoinedAt:   joinedAt.UTC(),
	}
	result := u.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "identity"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, u.logError("escrow_repo_add_contributor_failed", result.Error, "campaign_id", campaignID)
	}
	return result.RowsAffected == 1, nil
}

func (u *txUnit) CreateRequest(_ context.Context, request entities.DisbursementRequest) error {
	row := requestModelFromEntity(request)
	if err := u.tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvariantViolated
		}
		return u.logError("escrow_repo_create_request_failed", err,
			"campaign_id", request.CampaignID,
			"request_index", request.RequestIndex,
		)
	}
	return nil
}

func (u *txUnit) UpdateRequest(_ context.Context, request entities.DisbursementRequest) error {
	result := u.tx.Model(&requestModel{}).
		Where("campaign_id = ? AND request_index = ?", request.CampaignID, request.RequestIndex).
		Updates(map[string]any{
			"complete":       request.Complete,
			"approval_count": request.ApprovalCount,
			"updated_at":     request.UpdatedAt.UTC(),
			"finalized_at":   utcRef(request.FinalizedAt),
		})
	if result.Error != nil {
		return u.logError("escrow_repo_update_request_failed", result.Error,
			"campaign_id", request.CampaignID,
			"request_index", request.RequestIndex,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRequestNotFound
	}
	return nil
}

func (u *txUnit) RecordVote(_ context.Context, campaignID int64, index int, voter valueobjects.Identity, votedAt time.Time) error {
	row := voteModel{
		CampaignID:   campaignID,
		RequestIndex: index,
		Voter:        voter.String(),
		VotedAt:      votedAt.UTC(),
	}
	result := u.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "request_index"}, {Name: "voter"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return u.logError("escrow_repo_record_vote_failed", result.Error,
			"campaign_id", campaignID,
			"request_index", index,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAlreadyVoted
	}
	return nil
}

func (u *txUnit) SetBalance(_ context.Context, account entities.AccountRef, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return domainerrors.ErrInvariantViolated
	}
	row := balanceRow(account, balance)
	if err := u.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return u.logError("escrow_repo_set_balance_failed", err, "account", account.Key())
	}
	return nil
}

func (u *txUnit) AppendEvent(_ context.Context, event entities.Event) (entities.Event, error) {
	sequence, err := u.nextSequence(sequenceEvent, 1)
	if err != nil {
		return entities.Event{}, err
	}
	event.Sequence = sequence
	event.PublishedAt = nil

	row := eventModelFromEntity(event)
	if err := u.tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Event{}, domainerrors.ErrInvariantViolated
		}
		return entities.Event{}, u.logError("escrow_repo_append_event_failed", err,
			"event_type", event.EventType,
			"campaign_id", event.CampaignID,
		)
	}
	return event, nil
}

func (u *txUnit) GetIdempotency(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := u.tx.Where("idempotency_key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, u.logError("escrow_repo_get_idempotency_failed", err)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return row.toPort(), true, nil
}

func (u *txUnit) PutIdempotency(_ context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		ResourceID:  record.ResourceID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	if err := u.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"request_hash", "resource_id", "expires_at"}),
	}).Create(&row).Error; err != nil {
		return u.logError("escrow_repo_put_idempotency_failed", err)
	}
	return nil
}

func (u *txUnit) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	u.logger.Error("escrow repository operation failed", fields...)
	return err
}

func toEventEntities(rows []eventModel) []entities.Event {
	items := make([]entities.Event, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

var _ ports.Unit = (*txUnit)(nil)
