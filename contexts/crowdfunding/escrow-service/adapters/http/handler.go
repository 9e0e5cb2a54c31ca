package httpadapter

import (
	"context"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/application/commands"
	"crystalgive/contexts/crowdfunding/escrow-service/application/queries"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	httptransport "crystalgive/contexts/crowdfunding/escrow-service/transport/http"

	"github.com/ipfs/go-cid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	CreateCampaign  commands.CreateCampaignUseCase
	Donate          commands.DonateUseCase
	CreateRequest   commands.CreateRequestUseCase
	ApproveRequest  commands.ApproveRequestUseCase
	FinalizeRequest commands.FinalizeRequestUseCase

	GetCampaign     queries.GetCampaignUseCase
	ListCampaigns   queries.ListCampaignsUseCase
	GetRequest      queries.GetRequestUseCase
	ListRequests    queries.ListRequestsUseCase
	CheckMembership queries.CheckMembershipUseCase
	GetBalance      queries.GetAccountBalanceUseCase
	ListEvents      queries.ListEventsUseCase

	Logger *slog.Logger
}

// CreateCampaignHandler godoc
// @Summary Create campaign
// @Description Opens a campaign owned by the caller with a positive funding target.
// @Tags escrow
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body httptransport.CreateCampaignRequest true "Campaign payload"
// @Success 201 {object} httptransport.CampaignResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/campaigns [post]
func (h Handler) CreateCampaignHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	req httptransport.CreateCampaignRequest,
) (httptransport.CampaignResponse, error) {
	application.ResolveLogger(h.Logger).Debug("create campaign request received",
		"event", "http_create_campaign_received",
		"module", application.ModuleName,
		"layer", "transport",
	)
	result, err := h.CreateCampaign.Execute(ctx, commands.CreateCampaignCommand{
		Caller:         caller,
		Title:          req.Title,
		Target:         amountOrZero(req.Target),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.CampaignResponse{}, err
	}
	resp := mapCampaign(result.Campaign)
	resp.Replayed = result.Replayed
	return resp, nil
}

// ListCampaignsHandler godoc
// @Summary List campaigns
// @Description Enumerates campaigns in id order with their escrow projection.
// @Tags escrow
// @Produce json
// @Param offset query int false "First campaign id"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListCampaignsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/campaigns [get]
func (h Handler) ListCampaignsHandler(ctx context.Context, offset int, limit int) (httptransport.ListCampaignsResponse, error) {
	result, err := h.ListCampaigns.Execute(ctx, queries.ListCampaignsQuery{Offset: offset, Limit: limit})
	if err != nil {
		return httptransport.ListCampaignsResponse{}, err
	}
	items := make([]httptransport.CampaignResponse, 0, len(result.Items))
	for _, view := range result.Items {
		items = append(items, mapCampaignView(view))
	}
	return httptransport.ListCampaignsResponse{
		Items:  items,
		Total:  result.Total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

// GetCampaignHandler godoc
// @Summary Get campaign
// @Tags escrow
// @Produce json
// @Param campaign_id path int true "Campaign id"
// @Success 200 {object} httptransport.CampaignResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id} [get]
func (h Handler) GetCampaignHandler(ctx context.Context, campaignID int64) (httptransport.CampaignResponse, error) {
	view, err := h.GetCampaign.Execute(ctx, queries.GetCampaignQuery{CampaignID: campaignID})
	if err != nil {
		return httptransport.CampaignResponse{}, err
	}
	return mapCampaignView(view), nil
}

// DonateHandler godoc
// @Summary Donate to campaign
// @Description Credits the campaign escrow and admits the caller as a contributor on first donation.
// @Tags escrow
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param campaign_id path int true "Campaign id"
// @Param request body httptransport.DonateRequest true "Donation payload"
// @Success 200 {object} httptransport.DonationResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/donations [post]
func (h Handler) DonateHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	campaignID int64,
	req httptransport.DonateRequest,
) (httptransport.DonationResponse, error) {
	application.ResolveLogger(h.Logger).Debug("donation request received",
		"event", "http_donate_received",
		"module", application.ModuleName,
		"layer", "transport",
		"campaign_id", campaignID,
	)
	result, err := h.Donate.Execute(ctx, commands.DonateCommand{
		Caller:         caller,
		CampaignID:     campaignID,
		Amount:         amountOrZero(req.Amount),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.DonationResponse{}, err
	}
	return httptransport.DonationResponse{
		CampaignID:     result.Campaign.CampaignID,
		Contributor:    result.Contributor,
		Amount:         result.Amount.String(),
		Collected:      result.Campaign.Collected.String(),
		ApproversCount: result.Campaign.ApproversCount,
		EscrowBalance:  result.EscrowBalance.String(),
		Sequence:       result.Sequence,
		NewContributor: result.NewContributor,
		Replayed:       result.Replayed,
	}, nil
}

// CreateRequestHandler godoc
// @Summary Create disbursement request
// @Description Owner proposes releasing value from escrow to a recipient.
// @Tags escrow
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param campaign_id path int true "Campaign id"
// @Param request body httptransport.CreateDisbursementRequest true "Request payload"
// @Success 201 {object} httptransport.DisbursementRequestResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/requests [post]
func (h Handler) CreateRequestHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	campaignID int64,
	req httptransport.CreateDisbursementRequest,
) (httptransport.DisbursementRequestResponse, error) {
	result, err := h.CreateRequest.Execute(ctx, commands.CreateRequestCommand{
		Caller:         caller,
		CampaignID:     campaignID,
		Description:    req.Description,
		Value:          amountOrZero(req.Value),
		Recipient:      req.Recipient,
		ProofRef:       req.ProofRef,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.DisbursementRequestResponse{}, err
	}
	resp := mapRequest(result.Request)
	resp.Replayed = result.Replayed
	return resp, nil
}

// ListRequestsHandler godoc
// @Summary List disbursement requests
// @Tags escrow
// @Produce json
// @Param campaign_id path int true "Campaign id"
// @Param offset query int false "First request index"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListDisbursementRequestsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/requests [get]
func (h Handler) ListRequestsHandler(
	ctx context.Context,
	campaignID int64,
	offset int,
	limit int,
) (httptransport.ListDisbursementRequestsResponse, error) {
	result, err := h.ListRequests.Execute(ctx, queries.ListRequestsQuery{
		CampaignID: campaignID,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListDisbursementRequestsResponse{}, err
	}
	items := make([]httptransport.DisbursementRequestResponse, 0, len(result.Items))
	for _, view := range result.Items {
		items = append(items, mapRequestView(view))
	}
	return httptransport.ListDisbursementRequestsResponse{
		CampaignID: campaignID,
		Items:      items,
		Total:      result.Total,
	}, nil
}

// GetRequestHandler godoc
// @Summary Get disbursement request
// @Tags escrow
// @Produce json
// @Param campaign_id path int true "Campaign id"
// @Param request_index path int true "Request index"
// @Success 200 {object} httptransport.DisbursementRequestResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/requests/{request_index} [get]
func (h Handler) GetRequestHandler(ctx context.Context, campaignID int64, index int) (httptransport.DisbursementRequestResponse, error) {
	view, err := h.GetRequest.Execute(ctx, queries.GetRequestQuery{CampaignID: campaignID, RequestIndex: index})
	if err != nil {
		return httptransport.DisbursementRequestResponse{}, err
	}
	return mapRequestView(view), nil
}

// ApproveRequestHandler godoc
// @Summary Approve disbursement request
// @Description Records the calling contributor's vote. Each contributor votes once per request.
// @Tags escrow
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param campaign_id path int true "Campaign id"
// @Param request_index path int true "Request index"
// @Success 200 {object} httptransport.ApprovalResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/requests/{request_index}/approvals [post]
func (h Handler) ApproveRequestHandler(
	ctx context.Context,
	caller string,
	campaignID int64,
	index int,
) (httptransport.ApprovalResponse, error) {
	result, err := h.ApproveRequest.Execute(ctx, commands.ApproveRequestCommand{
		Caller:       caller,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if err != nil {
		return httptransport.ApprovalResponse{}, err
	}
	return httptransport.ApprovalResponse{
		CampaignID:     result.Request.CampaignID,
		RequestIndex:   result.Request.RequestIndex,
		ApprovalCount:  result.Request.ApprovalCount,
		ApproversCount: result.ApproversCount,
		QuorumReached:  result.QuorumReached,
	}, nil
}

// FinalizeRequestHandler godoc
// @Summary Finalize disbursement request
// @Description Owner releases the request value once a strict majority of current contributors approved.
// @Tags escrow
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param campaign_id path int true "Campaign id"
// @Param request_index path int true "Request index"
// @Success 200 {object} httptransport.FinalizeResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/requests/{request_index}/finalize [post]
func (h Handler) FinalizeRequestHandler(
	ctx context.Context,
	caller string,
	campaignID int64,
	index int,
) (httptransport.FinalizeResponse, error) {
	result, err := h.FinalizeRequest.Execute(ctx, commands.FinalizeRequestCommand{
		Caller:       caller,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if err != nil {
		return httptransport.FinalizeResponse{}, err
	}
	return httptransport.FinalizeResponse{
		Request:          mapRequest(result.Request),
		EscrowBalance:    result.EscrowBalance.String(),
		RecipientBalance: result.RecipientBalance.String(),
	}, nil
}

// MembershipHandler godoc
// @Summary Check contributor membership
// @Tags escrow
// @Produce json
// @Param campaign_id path int true "Campaign id"
// @Param address path string true "Identity address"
// @Param request_index query int false "Also report whether the identity voted on this request"
// @Success 200 {object} httptransport.MembershipResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/campaigns/{campaign_id}/contributors/{address} [get]
func (h Handler) MembershipHandler(
	ctx context.Context,
	campaignID int64,
	identity string,
	requestIndex *int,
) (httptransport.MembershipResponse, error) {
	result, err := h.CheckMembership.Execute(ctx, queries.CheckMembershipQuery{
		CampaignID:   campaignID,
		Identity:     identity,
		RequestIndex: requestIndex,
	})
	if err != nil {
		return httptransport.MembershipResponse{}, err
	}
	resp := httptransport.MembershipResponse{
		CampaignID:    campaignID,
		Identity:      result.Identity.String(),
		IsContributor: result.IsContributor,
	}
	if requestIndex != nil {
		voted := result.HasVoted
		resp.RequestIndex = requestIndex
		resp.HasVoted = &voted
	}
	return resp, nil
}

// AccountBalanceHandler godoc
// @Summary Get payout balance
// @Description Returns the value a recipient has received from finalized requests.
// @Tags escrow
// @Produce json
// @Param address path string true "Holder address"
// @Success 200 {object} httptransport.BalanceResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/accounts/{address}/balance [get]
func (h Handler) AccountBalanceHandler(ctx context.Context, holder string) (httptransport.BalanceResponse, error) {
	result, err := h.GetBalance.Execute(ctx, queries.GetAccountBalanceQuery{Holder: holder})
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		Holder:  result.Holder.String(),
		Balance: result.Balance.String(),
	}, nil
}

// ListEventsHandler godoc
// @Summary List escrow events
// @Description Reads the event log in sequence order. Page with after_sequence.
// @Tags escrow
// @Produce json
// @Param campaign_id query int false "Campaign filter"
// @Param actor query string false "Actor address filter"
// @Param event_type query string false "Event type filter"
// @Param after_sequence query int false "Return events after this sequence"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/events [get]
func (h Handler) ListEventsHandler(ctx context.Context, req httptransport.ListEventsRequest) (httptransport.ListEventsResponse, error) {
	result, err := h.ListEvents.Execute(ctx, queries.ListEventsQuery{
		CampaignID:    req.CampaignID,
		Actor:         req.Actor,
		EventType:     req.EventType,
		AfterSequence: req.AfterSequence,
		Limit:         req.Limit,
	})
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	items := make([]httptransport.EventResponse, 0, len(result.Items))
	for _, event := range result.Items {
		items = append(items, httptransport.EventResponse{
			Sequence:     event.Sequence,
			EventID:      event.EventID,
			EventType:    event.EventType,
			Operation:    event.Operation,
			CampaignID:   event.CampaignID,
			RequestIndex: event.RequestIndex,
			Actor:        event.Actor.String(),
			Counterparty: event.Counterparty.String(),
			Amount:       event.Amount.String(),
			OccurredAt:   event.OccurredAt,
			Published:    event.IsPublished(),
		})
	}
	return httptransport.ListEventsResponse{
		Items:        items,
		LastSequence: result.LastSequence,
	}, nil
}

// amountOrZero lets unparsable amounts reach the use case as zero so they are
// rejected in the operation's own check order.
func amountOrZero(raw string) decimal.Decimal {
	amount, err := valueobjects.ParseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// proofCID returns the canonical CID string when the proof reference is one.
func proofCID(proofRef string) string {
	if proofRef == "" || proofRef == entities.ProofRefNotAvailable {
		return ""
	}
	parsed, err := cid.Decode(proofRef)
	if err != nil {
		return ""
	}
	return parsed.String()
}

func mapCampaign(campaign entities.Campaign) httptransport.CampaignResponse {
	return httptransport.CampaignResponse{
		CampaignID:     campaign.CampaignID,
		Owner:          campaign.Owner.String(),
		Title:          campaign.Title,
		Target:         campaign.Target.String(),
		Collected:      campaign.Collected.String(),
		ApproversCount: campaign.ApproversCount,
		RequestCount:   campaign.RequestCount,
		FundedRatio:    campaign.FundedRatio().StringFixed(4),
		CreatedAt:      campaign.CreatedAt,
	}
}

func mapCampaignView(view queries.CampaignView) httptransport.CampaignResponse {
	resp := mapCampaign(view.Campaign)
	resp.EscrowBalance = view.EscrowBalance.String()
	resp.Disbursed = view.Disbursed.String()
	resp.Spendable = view.Spendable.String()
	return resp
}

func mapRequest(request entities.DisbursementRequest) httptransport.DisbursementRequestResponse {
	return httptransport.DisbursementRequestResponse{
		CampaignID:    request.CampaignID,
		RequestIndex:  request.RequestIndex,
		Description:   request.Description,
		Value:         request.Value.String(),
		Recipient:     request.Recipient.String(),
		ProofRef:      request.ProofRef,
		ProofCID:      proofCID(request.ProofRef),
		State:         string(request.State()),
		Complete:      request.Complete,
		ApprovalCount: request.ApprovalCount,
		CreatedAt:     request.CreatedAt,
		FinalizedAt:   request.FinalizedAt,
	}
}

func mapRequestView(view queries.RequestView) httptransport.DisbursementRequestResponse {
	resp := mapRequest(view.Request)
	resp.ApproversCount = view.ApproversCount
	resp.QuorumReached = view.QuorumReached
	return resp
}
