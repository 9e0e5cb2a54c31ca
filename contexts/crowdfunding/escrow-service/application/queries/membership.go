package queries

import (
	"context"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

// CheckMembershipQuery asks whether Identity contributed to the campaign and,
// when RequestIndex is set, whether it already voted on that request.
type CheckMembershipQuery struct {
	CampaignID   int64
	Identity     string
	RequestIndex *int
}

type CheckMembershipResult struct {
	Identity      valueobjects.Identity
	IsContributor bool
	HasVoted      bool
}

type CheckMembershipUseCase struct {
	Reader ports.Reader
	Logger *slog.Logger
}

func (u CheckMembershipUseCase) Execute(ctx context.Context, query CheckMembershipQuery) (CheckMembershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	identity, err := valueobjects.ParseIdentity(query.Identity)
	if err != nil {
		return CheckMembershipResult{}, err
	}
	campaign, err := u.Reader.GetCampaign(ctx, query.CampaignID)
	if err != nil {
		return CheckMembershipResult{}, err
	}

	isContributor, err := u.Reader.IsContributor(ctx, campaign.CampaignID, identity)
	if err != nil {
		logQueryFailure(logger, "check_membership_failed", err, "campaign_id", query.CampaignID)
		return CheckMembershipResult{}, err
	}
	result := CheckMembershipResult{Identity: identity, IsContributor: isContributor}
	if query.RequestIndex == nil {
		return result, nil
	}

	if !campaign.HasRequest(*query.RequestIndex) {
		return CheckMembershipResult{}, domainerrors.ErrRequestNotFound
	}
	voted, err := u.Reader.HasVoted(ctx, campaign.CampaignID, *query.RequestIndex, identity)
	if err != nil {
		logQueryFailure(logger, "check_vote_failed", err,
			"campaign_id", query.CampaignID,
			"request_index", *query.RequestIndex,
		)
		return CheckMembershipResult{}, err
	}
	result.HasVoted = voted
	return result, nil
}
