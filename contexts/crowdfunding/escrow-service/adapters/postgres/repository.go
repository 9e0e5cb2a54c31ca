package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the SQL-backed escrow store. Units map onto database
// transactions; on postgres the campaign and sequence rows are locked
// FOR UPDATE so concurrent units on the same campaign serialize.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: application.ResolveLogger(logger),
	}
}

// Migrate creates or updates the escrow tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return r.reader(ctx).logError("escrow_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) WithinUnit(ctx context.Context, fn func(ctx context.Context, unit ports.Unit) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txUnit{tx: tx, lock: true, logger: r.logger})
	})
}

// WithinSnapshot runs fn in one read-only transaction. On postgres it runs at
// REPEATABLE READ so every statement sees the same committed state; SQLite
// transactions already read from a single snapshot.
func (r *Repository) WithinSnapshot(ctx context.Context, fn func(ctx context.Context, reader ports.Reader) error) error {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txUnit{tx: tx, logger: r.logger})
	}, opts...)
}

func (r *Repository) reader(ctx context.Context) *txUnit {
	return &txUnit{tx: r.db.WithContext(ctx), logger: r.logger}
}

func (r *Repository) CountCampaigns(ctx context.Context) (int, error) {
	return r.reader(ctx).CountCampaigns(ctx)
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID int64) (entities.Campaign, error) {
	return r.reader(ctx).GetCampaign(ctx, campaignID)
}

func (r *Repository) ListCampaigns(ctx context.Context, offset int, limit int) ([]entities.Campaign, error) {
	return r.reader(ctx).ListCampaigns(ctx, offset, limit)
}

func (r *Repository) GetRequest(ctx context.Context, campaignID int64, index int) (entities.DisbursementRequest, error) {
	return r.reader(ctx).GetRequest(ctx, campaignID, index)
}

func (r *Repository) ListRequests(ctx context.Context, campaignID int64, offset int, limit int) ([]entities.DisbursementRequest, error) {
	return r.reader(ctx).ListRequests(ctx, campaignID, offset, limit)
}

func (r *Repository) IsContributor(ctx context.Context, campaignID int64, identity valueobjects.Identity) (bool, error) {
	return r.reader(ctx).IsContributor(ctx, campaignID, identity)
}

func (r *Repository) HasVoted(ctx context.Context, campaignID int64, index int, voter valueobjects.Identity) (bool, error) {
	return r.reader(ctx).HasVoted(ctx, campaignID, index, voter)
}

func (r *Repository) Balance(ctx context.Context, account entities.AccountRef) (decimal.Decimal, error) {
	return r.reader(ctx).Balance(ctx, account)
}

func (r *Repository) ListEvents(ctx context.Context, filter ports.EventFilter) ([]entities.Event, error) {
	return r.reader(ctx).ListEvents(ctx, filter)
}

func (r *Repository) ListUnpublishedEvents(ctx context.Context, limit int) ([]entities.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []eventModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("event_sequence ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.reader(ctx).logError("escrow_repo_list_unpublished_events_failed", err)
	}
	return toEventEntities(rows), nil
}

func (r *Repository) MarkEventPublished(ctx context.Context, sequence int64, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&eventModel{}).
		Where("event_sequence = ?", sequence).
		Update("published_at", publishedAt.UTC())
	if result.Error != nil {
		return r.reader(ctx).logError("escrow_repo_mark_event_published_failed", result.Error, "sequence", sequence)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvariantViolated
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.UnitOfWork = (*Repository)(nil)
var _ ports.SnapshotReader = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
