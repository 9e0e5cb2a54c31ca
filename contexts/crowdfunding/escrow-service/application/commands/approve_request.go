package commands

import (
	"context"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/services"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

type ApproveRequestCommand struct {
	Caller       string
	CampaignID   int64
	RequestIndex int
}

type ApproveRequestResult struct {
	Request        entities.DisbursementRequest
	ApproversCount int
	QuorumReached  bool
}

type ApproveRequestUseCase struct {
	Units       ports.UnitOfWork
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute records one vote per contributor per request. Votes cannot be revoked.
func (u ApproveRequestUseCase) Execute(ctx context.Context, cmd ApproveRequestCommand) (ApproveRequestResult, error) {
	logger := application.ResolveLogger(u.Logger)
	voter, err := parseCaller(cmd.Caller)
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationApproveRequest, "approve_request_rejected", err,
			"campaign_id", cmd.CampaignID,
			"request_index", cmd.RequestIndex,
		)
		return ApproveRequestResult{}, err
	}

	now := resolveNow(u.Clock)
	eventID, err := newEventID(ctx, u.IDGenerator)
	if err != nil {
		return ApproveRequestResult{}, err
	}

	var result ApproveRequestResult
	err = u.Units.WithinUnit(ctx, func(ctx context.Context, unit ports.Unit) error {
		campaign, err := unit.GetCampaign(ctx, cmd.CampaignID)
		if err != nil {
			return err
		}
		contributor, err := unit.IsContributor(ctx, campaign.CampaignID, voter)
		if err != nil {
			return err
		}
		if !contributor {
			return domainerrors.ErrNotContributor
		}
		if !campaign.HasRequest(cmd.RequestIndex) {
			return domainerrors.ErrRequestNotFound
		}
		request, err := unit.GetRequest(ctx, campaign.CampaignID, cmd.RequestIndex)
		if err != nil {
			return err
		}
		voted, err := unit.HasVoted(ctx, campaign.CampaignID, cmd.RequestIndex, voter)
		if err != nil {
			return err
		}
		if voted {
			return domainerrors.ErrAlreadyVoted
		}
		if request.Complete {
			return domainerrors.ErrAlreadyFinalized
		}

		if err := unit.RecordVote(ctx, campaign.CampaignID, cmd.RequestIndex, voter, now); err != nil {
			return err
		}
		if err := request.RecordApproval(now); err != nil {
			return err
		}
		if err := unit.UpdateRequest(ctx, request); err != nil {
			return err
		}
		if _, err := unit.AppendEvent(ctx, entities.Event{
			EventID:      eventID,
			EventType:    entities.EventTypeRequestApproved,
			Operation:    entities.OperationApproveRequest,
			CampaignID:   campaign.CampaignID,
			RequestIndex: entities.IntRef(cmd.RequestIndex),
			Actor:        voter,
			OccurredAt:   now,
		}); err != nil {
			return err
		}

		result = ApproveRequestResult{
			Request:        request,
			ApproversCount: campaign.ApproversCount,
			QuorumReached:  services.HasQuorum(request.ApprovalCount, campaign.ApproversCount),
		}
		return nil
	})
	if err != nil {
		logRejection(logger, u.Metrics, entities.OperationApproveRequest, "approve_request_rejected", err,
			"campaign_id", cmd.CampaignID,
			"request_index", cmd.RequestIndex,
			"voter", voter.String(),
		)
		return ApproveRequestResult{}, err
	}

	application.ResolveMetrics(u.Metrics).VoteRecorded()
	logger.Info("disbursement request approved",
		"event", "escrow_request_approved",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", cmd.CampaignID,
		"request_index", cmd.RequestIndex,
		"voter", voter.String(),
		"approval_count", result.Request.ApprovalCount,
		"approvers_count", result.ApproversCount,
		"quorum_reached", result.QuorumReached,
	)
	return result, nil
}
