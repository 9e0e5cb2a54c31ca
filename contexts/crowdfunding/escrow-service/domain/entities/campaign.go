package entities

import (
	"time"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"

	"github.com/shopspring/decimal"
)

// Campaign is a funding goal owned by its creator. Collected only grows and
// ApproversCount is the size of the contributor set.
type Campaign struct {
	CampaignID     int64
	Owner          valueobjects.Identity
	Title          string
	Target         decimal.Decimal
	Collected      decimal.Decimal
	ApproversCount int
	RequestCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewCampaign(
	campaignID int64,
	owner valueobjects.Identity,
	title string,
	target decimal.Decimal,
	now time.Time,
) (Campaign, error) {
	if campaignID < 0 {
		return Campaign{}, domainerrors.ErrInvariantViolated
	}
	if owner.IsZero() {
		return Campaign{}, domainerrors.ErrCallerRequired
	}
	if !target.IsPositive() {
		return Campaign{}, domainerrors.ErrInvalidTarget
	}
	return Campaign{
		CampaignID: campaignID,
		Owner:      owner,
		Title:      title,
		Target:     target,
		Collected:  decimal.Zero,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

func (c Campaign) IsOwner(identity valueobjects.Identity) bool {
	return !identity.IsZero() && c.Owner == identity
}

// RecordContribution adds an accepted donation to the collected total.
func (c *Campaign) RecordContribution(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return domainerrors.ErrInvalidAmount
	}
	c.Collected = c.Collected.Add(amount)
	c.UpdatedAt = now.UTC()
	return nil
}

// AddApprover is called once per newly admitted contributor.
func (c *Campaign) AddApprover(now time.Time) {
	c.ApproversCount++
	c.UpdatedAt = now.UTC()
}

// NextRequestIndex reserves the index for the next appended request.
func (c *Campaign) NextRequestIndex(now time.Time) int {
	index := c.RequestCount
	c.RequestCount++
	c.UpdatedAt = now.UTC()
	return index
}

func (c Campaign) HasRequest(index int) bool {
	return index >= 0 && index < c.RequestCount
}

// FundedRatio is collected over target, uncapped since campaigns stay open past target.
func (c Campaign) FundedRatio() decimal.Decimal {
	if !c.Target.IsPositive() {
		return decimal.Zero
	}
	return c.Collected.DivRound(c.Target, 4)
}
