package commands

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type CreateCampaignCommand struct {
	Caller         string
	Title          string
	Target         decimal.Decimal
	IdempotencyKey string
}

type CreateCampaignResult struct {
	Campaign entities.Campaign
	Replayed bool
}

type CreateCampaignUseCase struct {
	Units          ports.UnitOfWork
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        ports.Metrics
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute assigns the next campaign id and records the caller as owner.
func (u CreateCampaignUseCase) Execute(ctx context.Context, cmd CreateCampaignCommand) (CreateCampaignResult, error) {
	logger := application.ResolveLogger(u.Logger)
	owner, err := parseCaller(cmd.Caller)
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationCreateCampaign, "create_campaign_rejected", err)
		return CreateCampaignResult{}, err
	}
	if !cmd.Target.IsPositive() {
		logRejection(logger, u.Metrics, entities.OperationCreateCampaign, "create_campaign_rejected", domainerrors.ErrInvalidTarget,
			"owner", owner.String(),
			"target", cmd.Target.String(),
		)
		return CreateCampaignResult{}, domainerrors.ErrInvalidTarget
	}

	now := resolveNow(u.Clock)
	key := scopedIdempotencyKey(entities.OperationCreateCampaign, owner, cmd.IdempotencyKey)
	requestHash := hashRequest(owner.String(), cmd.Title, cmd.Target.String())
	eventID, err := newEventID(ctx, u.IDGenerator)
	if err != nil {
		return CreateCampaignResult{}, err
	}

	var result CreateCampaignResult
	err = u.Units.WithinUnit(ctx, func(ctx context.Context, unit ports.Unit) error {
		if key != "" {
			record, found, err := unit.GetIdempotency(ctx, key, now)
			if err != nil {
				return err
			}
			if found {
				if record.RequestHash != requestHash {
					return domainerrors.ErrIdempotencyKeyConflict
				}
				campaignID, err := strconv.ParseInt(record.ResourceID, 10, 64)
				if err != nil {
					return domainerrors.ErrInvariantViolated
				}
				campaign, err := unit.GetCampaign(ctx, campaignID)
				if err != nil {
					return err
				}
				result = CreateCampaignResult{Campaign: campaign, Replayed: true}
				return nil
			}
		}

		campaignID, err := unit.NextCampaignID(ctx)
		if err != nil {
			return err
		}
		campaign, err := entities.NewCampaign(campaignID, owner, cmd.Title, cmd.Target, now)
		if err != nil {
			return err
		}
		if err := unit.CreateCampaign(ctx, campaign); err != nil {
			return err
		}
		if _, err := unit.AppendEvent(ctx, entities.Event{
			EventID:    eventID,
			EventType:  entities.EventTypeCampaignCreated,
			Operation:  entities.OperationCreateCampaign,
			CampaignID: campaign.CampaignID,
			Actor:      owner,
			Amount:     campaign.Target,
			OccurredAt: now,
		}); err != nil {
			return err
		}
		if key != "" {
			if err := unit.PutIdempotency(ctx, ports.IdempotencyRecord{
				Key:         key,
				RequestHash: requestHash,
				ResourceID:  strconv.FormatInt(campaign.CampaignID, 10),
				ExpiresAt:   now.Add(resolveIdempotencyTTL(u.IdempotencyTTL)),
			}); err != nil {
				return err
			}
		}
		result = CreateCampaignResult{Campaign: campaign}
		return nil
	})
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationCreateCampaign, "create_campaign_rejected", err,
			"owner", owner.String(),
		)
		return CreateCampaignResult{}, err
	}

	if result.Replayed {
		logger.Info("create campaign replayed from idempotency",
			"event", "create_campaign_replayed",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", result.Campaign.CampaignID,
			"owner", owner.String(),
		)
		return result, nil
	}

	application.ResolveMetrics(u.Metrics).CampaignCreated()
	logger.Info("campaign created",
		"event", "escrow_campaign_created",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", result.Campaign.CampaignID,
		"owner", owner.String(),
		"target", result.Campaign.Target.String(),
	)
	return result, nil
}
