package services

import (
	"context"
	"errors"
	"testing"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"

	"github.com/shopspring/decimal"
)

type mapBalances map[string]decimal.Decimal

func (m mapBalances) Balance(_ context.Context, account entities.AccountRef) (decimal.Decimal, error) {
	return m[account.Key()], nil
}

func (m mapBalances) SetBalance(_ context.Context, account entities.AccountRef, balance decimal.Decimal) error {
	m[account.Key()] = balance
	return nil
}

func TestHasQuorumRequiresStrictMajority(t *testing.T) {
	cases := []struct {
		approvals int
		approvers int
		want      bool
	}{
		{approvals: 0, approvers: 0, want: false},
		{approvals: 1, approvers: 1, want: true},
		{approvals: 1, approvers: 2, want: false},
		{approvals: 2, approvers: 2, want: true},
		{approvals: 2, approvers: 3, want: true},
		{approvals: 2, approvers: 4, want: false},
		{approvals: 3, approvers: 5, want: true},
	}
	for _, tc := range cases {
		if got := HasQuorum(tc.approvals, tc.approvers); got != tc.want {
			t.Fatalf("HasQuorum(%d, %d) = %v, want %v", tc.approvals, tc.approvers, got, tc.want)
		}
	}
}

func TestLedgerTransferMovesExactValue(t *testing.T) {
	balances := mapBalances{}
	ledger := ValueLedger{Balances: balances}
	ctx := context.Background()
	escrow := entities.EscrowAccount(0)
	payout := entities.PayoutAccount(valueobjects.MustIdentity("0x5000000000000000000000000000000000000005"))

	if _, err := ledger.Credit(ctx, escrow, decimal.RequireFromString("5.25")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Transfer(ctx, escrow, payout, decimal.RequireFromString("1.25")); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !balances[escrow.Key()].Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected escrow 4, got %s", balances[escrow.Key()])
	}
	if !balances[payout.Key()].Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("expected payout 1.25, got %s", balances[payout.Key()])
	}
}

func TestLedgerShortfallLeavesBothAccounts(t *testing.T) {
	balances := mapBalances{}
	ledger := ValueLedger{Balances: balances}
	ctx := context.Background()
	escrow := entities.EscrowAccount(3)
	payout := entities.PayoutAccount(valueobjects.MustIdentity("0x5000000000000000000000000000000000000005"))

	if _, err := ledger.Credit(ctx, escrow, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := ledger.Transfer(ctx, escrow, payout, decimal.NewFromInt(3))
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !balances[escrow.Key()].Equal(decimal.NewFromInt(2)) || !balances[payout.Key()].IsZero() {
		t.Fatalf("balances changed on shortfall: %+v", balances)
	}
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ledger := ValueLedger{Balances: mapBalances{}}
	if _, err := ledger.Credit(context.Background(), entities.EscrowAccount(0), decimal.Zero); !errors.Is(err, domainerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero credit, got %v", err)
	}
	if _, err := ledger.Debit(context.Background(), entities.EscrowAccount(0), decimal.NewFromInt(-1)); !errors.Is(err, domainerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative debit, got %v", err)
	}
}
