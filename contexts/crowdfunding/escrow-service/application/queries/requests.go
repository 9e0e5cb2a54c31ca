package queries

import (
	"context"
	"errors"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/services"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

type RequestView struct {
	Request        entities.DisbursementRequest
	ApproversCount int
	QuorumReached  bool
}

type GetRequestQuery struct {
	CampaignID   int64
	RequestIndex int
}

type GetRequestUseCase struct {
	Reader ports.SnapshotReader
	Logger *slog.Logger
}

func (u GetRequestUseCase) Execute(ctx context.Context, query GetRequestQuery) (RequestView, error) {
	logger := application.ResolveLogger(u.Logger)
	var view RequestView
	err := u.Reader.WithinSnapshot(ctx, func(ctx context.Context, reader ports.Reader) error {
		campaign, err := reader.GetCampaign(ctx, query.CampaignID)
		if err != nil {
			return err
		}
		if !campaign.HasRequest(query.RequestIndex) {
			return domainerrors.ErrRequestNotFound
		}
		request, err := reader.GetRequest(ctx, query.CampaignID, query.RequestIndex)
		if err != nil {
			return err
		}
		view = newRequestView(request, campaign.ApproversCount)
		return nil
	})
	if err != nil {
		if !errors.Is(err, domainerrors.ErrNotFound) {
			logQueryFailure(logger, "get_request_failed", err,
				"campaign_id", query.CampaignID,
				"request_index", query.RequestIndex,
			)
		}
		return RequestView{}, err
	}
	return view, nil
}

type ListRequestsQuery struct {
	CampaignID int64
	Offset     int
	Limit      int
}

type ListRequestsResult struct {
	Items []RequestView
	Total int
}

type ListRequestsUseCase struct {
	Reader ports.SnapshotReader
	Logger *slog.Logger
}

func (u ListRequestsUseCase) Execute(ctx context.Context, query ListRequestsQuery) (ListRequestsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	offset, limit, err := resolvePage(query.Offset, query.Limit)
	if err != nil {
		return ListRequestsResult{}, err
	}

	var result ListRequestsResult
	err = u.Reader.WithinSnapshot(ctx, func(ctx context.Context, reader ports.Reader) error {
		campaign, err := reader.GetCampaign(ctx, query.CampaignID)
		if err != nil {
			return err
		}
		requests, err := reader.ListRequests(ctx, query.CampaignID, offset, limit)
		if err != nil {
			return err
		}
		items := make([]RequestView, 0, len(requests))
		for _, request := range requests {
			items = append(items, newRequestView(request, campaign.ApproversCount))
		}
		result = ListRequestsResult{Items: items, Total: campaign.RequestCount}
		return nil
	})
	if err != nil {
		logQueryFailure(logger, "list_requests_failed", err, "campaign_id", query.CampaignID)
		return ListRequestsResult{}, err
	}
	return result, nil
}

func newRequestView(request entities.DisbursementRequest, approversCount int) RequestView {
	return RequestView{
		Request:        request,
		ApproversCount: approversCount,
		QuorumReached:  services.HasQuorum(request.ApprovalCount, approversCount),
	}
}
