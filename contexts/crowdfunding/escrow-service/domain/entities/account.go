package entities

import (
	"strconv"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
)

type AccountKind string

const (
	AccountKindEscrow AccountKind = "escrow"
	AccountKindPayout AccountKind = "payout"
)

// AccountRef addresses one balance in the value ledger: either the escrow of a
// campaign or the payout account of a recipient.
type AccountRef struct {
	Kind       AccountKind
	CampaignID int64
	Holder     valueobjects.Identity
}

func EscrowAccount(campaignID int64) AccountRef {
	return AccountRef{Kind: AccountKindEscrow, CampaignID: campaignID}
}

func PayoutAccount(holder valueobjects.Identity) AccountRef {
	return AccountRef{Kind: AccountKindPayout, Holder: holder}
}

func (a AccountRef) Key() string {
	if a.Kind == AccountKindEscrow {
		return string(a.Kind) + ":" + strconv.FormatInt(a.CampaignID, 10)
	}
	return string(a.Kind) + ":" + a.Holder.String()
}
