package queries

import (
	"context"
	"fmt"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

// CampaignView is the read projection of one campaign with its escrow state.
type CampaignView struct {
	Campaign      entities.Campaign
	EscrowBalance decimal.Decimal
	Disbursed     decimal.Decimal
	Spendable     decimal.Decimal
}

type GetCampaignQuery struct {
	CampaignID int64
}

type GetCampaignUseCase struct {
	Reader ports.SnapshotReader
	Logger *slog.Logger
}

func (u GetCampaignUseCase) Execute(ctx context.Context, query GetCampaignQuery) (CampaignView, error) {
	logger := application.ResolveLogger(u.Logger)
	var view CampaignView
	err := u.Reader.WithinSnapshot(ctx, func(ctx context.Context, reader ports.Reader) error {
		campaign, err := reader.GetCampaign(ctx, query.CampaignID)
		if err != nil {
			return err
		}
		view, err = buildCampaignView(ctx, reader, campaign)
		return err
	})
	if err != nil {
		logQueryFailure(logger, "get_campaign_failed", err, "campaign_id", query.CampaignID)
		return CampaignView{}, err
	}
	return view, nil
}

type ListCampaignsQuery struct {
	Offset int
	Limit  int
}

type ListCampaignsResult struct {
	Items []CampaignView
	Total int
}

type ListCampaignsUseCase struct {
	Reader ports.SnapshotReader
	Logger *slog.Logger
}

func (u ListCampaignsUseCase) Execute(ctx context.Context, query ListCampaignsQuery) (ListCampaignsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	offset, limit, err := resolvePage(query.Offset, query.Limit)
	if err != nil {
		return ListCampaignsResult{}, err
	}

	var result ListCampaignsResult
	err = u.Reader.WithinSnapshot(ctx, func(ctx context.Context, reader ports.Reader) error {
		total, err := reader.CountCampaigns(ctx)
		if err != nil {
			return err
		}
		campaigns, err := reader.ListCampaigns(ctx, offset, limit)
		if err != nil {
			return err
		}
		items := make([]CampaignView, 0, len(campaigns))
		for _, campaign := range campaigns {
			view, err := buildCampaignView(ctx, reader, campaign)
			if err != nil {
				return err
			}
			items = append(items, view)
		}
		result = ListCampaignsResult{Items: items, Total: total}
		return nil
	})
	if err != nil {
		logQueryFailure(logger, "list_campaigns_failed", err, "offset", offset, "limit", limit)
		return ListCampaignsResult{}, err
	}

	logger.Info("list campaigns completed",
		"event", "list_campaigns_completed",
		"module", application.ModuleName,
		"layer", "application",
		"total", result.Total,
		"returned", len(result.Items),
	)
	return result, nil
}

// buildCampaignView cross-checks the ledger balance against collected minus
// finalized payouts. reader must be a snapshot; a mismatch is reported, never
// corrected.
func buildCampaignView(ctx context.Context, reader ports.Reader, campaign entities.Campaign) (CampaignView, error) {
	balance, err := reader.Balance(ctx, entities.EscrowAccount(campaign.CampaignID))
	if err != nil {
		return CampaignView{}, err
	}

	disbursed := decimal.Zero
	if campaign.RequestCount > 0 {
		requests, err := reader.ListRequests(ctx, campaign.CampaignID, 0, campaign.RequestCount)
		if err != nil {
			return CampaignView{}, err
		}
		for _, request := range requests {
			if request.Complete {
				disbursed = disbursed.Add(request.Value)
			}
		}
	}

	spendable := campaign.Collected.Sub(disbursed)
	if !spendable.Equal(balance) {
		return CampaignView{}, fmt.Errorf("%w: campaign %d escrow %s != collected %s - disbursed %s",
			domainerrors.ErrInvariantViolated,
			campaign.CampaignID,
			balance.String(),
			campaign.Collected.String(),
			disbursed.String(),
		)
	}

	return CampaignView{
		Campaign:      campaign,
		EscrowBalance: balance,
		Disbursed:     disbursed,
		Spendable:     spendable,
	}, nil
}
