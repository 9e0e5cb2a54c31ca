package queries

import (
	"context"
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type GetAccountBalanceQuery struct {
	Holder string
}

type GetAccountBalanceResult struct {
	Holder  valueobjects.Identity
	Balance decimal.Decimal
}

// GetAccountBalanceUseCase reads the payout balance a recipient received from
// finalized requests.
type GetAccountBalanceUseCase struct {
	Reader ports.Reader
	Logger *slog.Logger
}

func (u GetAccountBalanceUseCase) Execute(ctx context.Context, query GetAccountBalanceQuery) (GetAccountBalanceResult, error) {
	holder, err := valueobjects.ParseIdentity(query.Holder)
	if err != nil {
		return GetAccountBalanceResult{}, err
	}
	balance, err := u.Reader.Balance(ctx, entities.PayoutAccount(holder))
	if err != nil {
		logQueryFailure(application.ResolveLogger(u.Logger), "get_account_balance_failed", err, "holder", holder.String())
		return GetAccountBalanceResult{}, err
	}
	return GetAccountBalanceResult{Holder: holder, Balance: balance}, nil
}
