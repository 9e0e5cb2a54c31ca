package services

import (
	"context"
	"fmt"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"

	"github.com/shopspring/decimal"
)

// BalanceStore is the persistence seen by the ledger. A missing account reads
// as a zero balance.
type BalanceStore interface {
	Balance(ctx context.Context, account entities.AccountRef) (decimal.Decimal, error)
	SetBalance(ctx context.Context, account entities.AccountRef, balance decimal.Decimal) error
}

// ValueLedger is the only code path that changes balances. It runs inside the
// caller's unit of work, so its writes commit or roll back with the operation.
type ValueLedger struct {
	Balances BalanceStore
}

func (l ValueLedger) Credit(ctx context.Context, account entities.AccountRef, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Decimal{}, domainerrors.ErrInvalidAmount
	}
	current, err := l.Balances.Balance(ctx, account)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if current.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative balance on %s", domainerrors.ErrInvariantViolated, account.Key())
	}
	next := current.Add(amount)
	if err := l.Balances.SetBalance(ctx, account, next); err != nil {
		return decimal.Decimal{}, err
	}
	return next, nil
}

// Debit fails with ErrInsufficientFunds when amount exceeds the balance.
func (l ValueLedger) Debit(ctx context.Context, account entities.AccountRef, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Decimal{}, domainerrors.ErrInvalidAmount
	}
	current, err := l.Balances.Balance(ctx, account)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if amount.GreaterThan(current) {
		return decimal.Decimal{}, domainerrors.ErrInsufficientFunds
	}
	next := current.Sub(amount)
	if err := l.Balances.SetBalance(ctx, account, next); err != nil {
		return decimal.Decimal{}, err
	}
	return next, nil
}

// Transfer debits from and credits to. The debit runs first so a shortfall
// leaves both accounts untouched.
func (l ValueLedger) Transfer(
	ctx context.Context,
	from entities.AccountRef,
	to entities.AccountRef,
	amount decimal.Decimal,
) error {
	if _, err := l.Debit(ctx, from, amount); err != nil {
		return err
	}
	if _, err := l.Credit(ctx, to, amount); err != nil {
		return err
	}
	return nil
}
