package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type CreateRequestCommand struct {
	Caller         string
	CampaignID     int64
	Description    string
	Value          decimal.Decimal
	Recipient      string
	ProofRef       string
	IdempotencyKey string
}

type CreateRequestResult struct {
	Request  entities.DisbursementRequest
	Replayed bool
}

type CreateRequestUseCase struct {
	Units          ports.UnitOfWork
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        ports.Metrics
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute appends a proposed request. Funds are not checked here so requests
// may be queued ahead of donations; finalization re-checks the escrow.
func (u CreateRequestUseCase) Execute(ctx context.Context, cmd CreateRequestCommand) (CreateRequestResult, error) {
	logger := application.ResolveLogger(u.Logger)
	caller, err := parseCaller(cmd.Caller)
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationCreateRequest, "create_request_rejected", err,
			"campaign_id", cmd.CampaignID,
		)
		return CreateRequestResult{}, err
	}

	now := resolveNow(u.Clock)
	key := scopedIdempotencyKey(entities.OperationCreateRequest, caller, cmd.IdempotencyKey)
	requestHash := hashRequest(
		caller.String(),
		strconv.FormatInt(cmd.CampaignID, 10),
		cmd.Description,
		cmd.Value.String(),
		strings.TrimSpace(cmd.Recipient),
		entities.NormalizeProofRef(cmd.ProofRef),
	)
	eventID, err := newEventID(ctx, u.IDGenerator)
	if err != nil {
		return CreateRequestResult{}, err
	}

	var result CreateRequestResult
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
				index, err := strconv.Atoi(record.ResourceID)
				if err != nil {
					return domainerrors.ErrInvariantViolated
				}
				request, err := unit.GetRequest(ctx, cmd.CampaignID, index)
				if err != nil {
					return err
				}
				result = CreateRequestResult{Request: request, Replayed: true}
				return nil
			}
		}

		campaign, err := unit.GetCampaign(ctx, cmd.CampaignID)
		if err != nil {
			return err
		}
		if !campaign.IsOwner(caller) {
			return domainerrors.ErrNotCampaignOwner
		}
		if !cmd.Value.IsPositive() {
			return domainerrors.ErrInvalidRequestValue
		}
		recipient, err := valueobjects.ParseIdentity(cmd.Recipient)
		if err != nil {
			return domainerrors.ErrInvalidRecipient
		}

		index := campaign.NextRequestIndex(now)
		request, err := entities.NewDisbursementRequest(
			campaign.CampaignID,
			index,
			cmd.Description,
			cmd.Value,
			recipient,
			cmd.ProofRef,
			now,
		)
		if err != nil {
			return err
		}
		if err := unit.CreateRequest(ctx, request); err != nil {
			return err
		}
		if err := unit.UpdateCampaign(ctx, campaign); err != nil {
			return err
		}
		if _, err := unit.AppendEvent(ctx, entities.Event{
			EventID:      eventID,
			EventType:    entities.EventTypeRequestCreated,
			Operation:    entities.OperationCreateRequest,
			CampaignID:   campaign.CampaignID,
			RequestIndex: entities.IntRef(index),
			Actor:        caller,
			Counterparty: recipient,
			Amount:       request.Value,
			OccurredAt:   now,
		}); err != nil {
			return err
		}
		if key != "" {
			if err := unit.PutIdempotency(ctx, ports.IdempotencyRecord{
				Key:         key,
				RequestHash: requestHash,
				ResourceID:  strconv.Itoa(index),
				ExpiresAt:   now.Add(resolveIdempotencyTTL(u.IdempotencyTTL)),
			}); err != nil {
				return err
			}
		}
		result = CreateRequestResult{Request: request}
		return nil
	})
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationCreateRequest, "create_request_rejected", err,
			"campaign_id", cmd.CampaignID,
			"caller", caller.String(),
		)
		return CreateRequestResult{}, err
	}

	if result.Replayed {
		logger.Info("create request replayed from idempotency",
			"event", "create_request_replayed",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", cmd.CampaignID,
			"request_index", result.Request.RequestIndex,
		)
		return result, nil
	}

	application.ResolveMetrics(u.Metrics).RequestCreated()
	logger.Info("disbursement request created",
		"event", "escrow_request_created",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", cmd.CampaignID,
		"request_index", result.Request.RequestIndex,
		"value", result.Request.Value.String(),
		"recipient", result.Request.Recipient.String(),
	)
	return result, nil
}
