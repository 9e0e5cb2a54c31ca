package commands

import (
	"context"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/services"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type FinalizeRequestCommand struct {
	Caller       string
	CampaignID   int64
	RequestIndex int
}

type FinalizeRequestResult struct {
	Request          entities.DisbursementRequest
	EscrowBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

type FinalizeRequestUseCase struct {
	Units       ports.UnitOfWork
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute releases a request's value to its recipient in this order:
// 1) owner, existence and terminal-state checks
// 2) quorum against the current contributor count
// 3) complete flag persisted
// 4) escrow debit and recipient credit.
// A shortfall in step 4 aborts the unit, which also discards step 3.
func (u FinalizeRequestUseCase) Execute(ctx context.Context, cmd FinalizeRequestCommand) (FinalizeRequestResult, error) {
	logger := application.ResolveLogger(u.Logger)
	caller, err := parseCaller(cmd.Caller)
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationFinalizeRequest, "finalize_request_rejected", err,
			"campaign_id", cmd.CampaignID,
			"request_index", cmd.RequestIndex,
		)
		return FinalizeRequestResult{}, err
	}

	now := resolveNow(u.Clock)
	eventID, err := newEventID(ctx, u.IDGenerator)
	if err != nil {
		return FinalizeRequestResult{}, err
	}

	var result FinalizeRequestResult
	err = u.Units.WithinUnit(ctx, func(ctx context.Context, unit ports.Unit) error {
		campaign, err := unit.GetCampaign(ctx, cmd.CampaignID)
		if err != nil {
			return err
		}
		if !campaign.IsOwner(caller) {
			return domainerrors.ErrNotCampaignOwner
		}
		if !campaign.HasRequest(cmd.RequestIndex) {
			return domainerrors.ErrRequestNotFound
		}
		request, err := unit.GetRequest(ctx, campaign.CampaignID, cmd.RequestIndex)
		if err != nil {
			return err
		}
		if request.Complete {
			return domainerrors.ErrAlreadyFinalized
		}
		if !services.HasQuorum(request.ApprovalCount, campaign.ApproversCount) {
			return domainerrors.ErrQuorumNotMet
		}

		if err := request.MarkComplete(now); err != nil {
			return err
		}
		if err := unit.UpdateRequest(ctx, request); err != nil {
			return err
		}

		escrow := entities.EscrowAccount(campaign.CampaignID)
		payout := entities.PayoutAccount(request.Recipient)
		ledger := services.ValueLedger{Balances: unit}
		if err := ledger.Transfer(ctx, escrow, payout, request.Value); err != nil {
			return err
		}

		if _, err := unit.AppendEvent(ctx, entities.Event{
			EventID:      eventID,
			EventType:    entities.EventTypeRequestFinalized,
			Operation:    entities.OperationFinalizeRequest,
			CampaignID:   campaign.CampaignID,
			RequestIndex: entities.IntRef(cmd.RequestIndex),
			Actor:        caller,
			Counterparty: request.Recipient,
			Amount:       request.Value,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		escrowBalance, err := unit.Balance(ctx, escrow)
		if err != nil {
			return err
		}
		recipientBalance, err := unit.Balance(ctx, payout)
		if err != nil {
			return err
		}
		result = FinalizeRequestResult{
			Request:          request,
			EscrowBalance:    escrowBalance,
			RecipientBalance: recipientBalance,
		}
		return nil
	})
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationFinalizeRequest, "finalize_request_rejected", err,
			"campaign_id", cmd.CampaignID,
			"request_index", cmd.RequestIndex,
			"caller", caller.String(),
		)
		return FinalizeRequestResult{}, err
	}

	application.ResolveMetrics(u.Metrics).RequestFinalized(result.Request.Value)
	logger.Info("disbursement request finalized",
		"event", "escrow_request_finalized",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", cmd.CampaignID,
		"request_index", cmd.RequestIndex,
		"recipient", result.Request.Recipient.String(),
		"value", result.Request.Value.String(),
		"escrow_balance", result.EscrowBalance.String(),
	)
	return result, nil
}
