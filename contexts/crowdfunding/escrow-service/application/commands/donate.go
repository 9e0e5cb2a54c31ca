package commands

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/services"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type DonateCommand struct {
	Caller         string
	CampaignID     int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

type DonateResult struct {
	Campaign       entities.Campaign
	Contributor    string
	Amount         decimal.Decimal
	EscrowBalance  decimal.Decimal
	Sequence       int64
	NewContributor bool
	Replayed       bool
}

type DonateUseCase struct {
	Units          ports.UnitOfWork
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        ports.Metrics
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute runs the donation path as one unit:
// 1) campaign existence and amount validation
// 2) escrow credit
// 3) collected accounting
// 4) contributor admission
// 5) DonationReceived append, last.
func (u DonateUseCase) Execute(ctx context.Context, cmd DonateCommand) (DonateResult, error) {
	logger := application.ResolveLogger(u.Logger)
	contributor, err := parseCaller(cmd.Caller)
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationDonate, "donate_rejected", err,
			"campaign_id", cmd.CampaignID,
		)
		return DonateResult{}, err
	}

	now := resolveNow(u.Clock)
	key := scopedIdempotencyKey(entities.OperationDonate, contributor, cmd.IdempotencyKey)
	requestHash := hashRequest(contributor.String(), strconv.FormatInt(cmd.CampaignID, 10), cmd.Amount.String())
	eventID, err := newEventID(ctx, u.IDGenerator)
	if err != nil {
		return DonateResult{}, err
	}

	var result DonateResult
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
				sequence, err := strconv.ParseInt(record.ResourceID, 10, 64)
				if err != nil {
					return domainerrors.ErrInvariantViolated
				}
				campaign, err := unit.GetCampaign(ctx, cmd.CampaignID)
				if err != nil {
					return err
				}
				balance, err := unit.Balance(ctx, entities.EscrowAccount(cmd.CampaignID))
				if err != nil {
					return err
				}
				result = DonateResult{
					Campaign:      campaign,
					Contributor:   contributor.String(),
					Amount:        cmd.Amount,
					EscrowBalance: balance,
					Sequence:      sequence,
					Replayed:      true,
				}
				return nil
			}
		}

		campaign, err := unit.GetCampaign(ctx, cmd.CampaignID)
		if err != nil {
			return err
		}
		if !cmd.Amount.IsPositive() {
			return domainerrors.ErrInvalidAmount
		}

		ledger := services.ValueLedger{Balances: unit}
		balance, err := ledger.Credit(ctx, entities.EscrowAccount(campaign.CampaignID), cmd.Amount)
		if err != nil {
			return err
		}
		if err := campaign.RecordContribution(cmd.Amount, now); err != nil {
			return err
		}
		added, err := unit.AddContributor(ctx, campaign.CampaignID, contributor, now)
		if err != nil {
			return err
		}
		if added {
			campaign.AddApprover(now)
		}
		if err := unit.UpdateCampaign(ctx, campaign); err != nil {
			return err
		}

		event, err := unit.AppendEvent(ctx, entities.NewDonationReceived(
			eventID,
			campaign.CampaignID,
			contributor,
			cmd.Amount,
			now,
		))
		if err != nil {
			return err
		}
		if key != "" {
			if err := unit.PutIdempotency(ctx, ports.IdempotencyRecord{
				Key:         key,
				RequestHash: requestHash,
				ResourceID:  strconv.FormatInt(event.Sequence, 10),
				ExpiresAt:   now.Add(resolveIdempotencyTTL(u.IdempotencyTTL)),
			}); err != nil {
				return err
			}
		}

		result = DonateResult{
			Campaign:       campaign,
			Contributor:    contributor.String(),
			Amount:         cmd.Amount,
			EscrowBalance:  balance,
			Sequence:       event.Sequence,
			NewContributor: added,
		}
		return nil
	})
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationDonate, "donate_rejected", err,
			"campaign_id", cmd.CampaignID,
			"contributor", contributor.String(),
			"amount", cmd.Amount.String(),
		)
		return DonateResult{}, err
	}

	if result.Replayed {
		logger.Info("donation replayed from idempotency",
			"event", "donate_replayed",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", cmd.CampaignID,
			"contributor", contributor.String(),
			"sequence", result.Sequence,
		)
		return result, nil
	}

	application.ResolveMetrics(u.Metrics).DonationAccepted(cmd.Amount, result.NewContributor)
	logger.Info("donation received",
		"event", "escrow_donation_received",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", cmd.CampaignID,
		"contributor", contributor.String(),
		"amount", cmd.Amount.String(),
		"collected", result.Campaign.Collected.String(),
		"approvers_count", result.Campaign.ApproversCount,
		"sequence", result.Sequence,
	)
	return result, nil
}
