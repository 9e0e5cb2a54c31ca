package entities

import (
	"time"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"

	"github.com/shopspring/decimal"
)

const (
	EventTypeCampaignCreated  = "campaign.created"
	EventTypeDonationReceived = "donation.received"
	EventTypeRequestCreated   = "request.created"
	EventTypeRequestApproved  = "request.approved"
	EventTypeRequestFinalized = "request.finalized"
)

const (
	OperationCreateCampaign  = "createCampaign"
	OperationDonate          = "donate"
	OperationCreateRequest   = "createRequest"
	OperationApproveRequest  = "approveRequest"
	OperationFinalizeRequest = "finalizeRequest"
)

// Event is one entry of the append-only notification log. Sequence is assigned
// by the store on append and strictly increases in commit order.
type Event struct {
	Sequence     int64
	EventID      string
	EventType    string
	Operation    string
	CampaignID   int64
	RequestIndex *int
	Actor        valueobjects.Identity
	Counterparty valueobjects.Identity
	Amount       decimal.Decimal
	OccurredAt   time.Time
	PublishedAt  *time.Time
}

// NewDonationReceived builds DonationReceived(campaignId, contributor, amount).
func NewDonationReceived(
	eventID string,
	campaignID int64,
	contributor valueobjects.Identity,
	amount decimal.Decimal,
	occurredAt time.Time,
) Event {
	return Event{
		EventID:    eventID,
		EventType:  EventTypeDonationReceived,
		Operation:  OperationDonate,
		CampaignID: campaignID,
		Actor:      contributor,
		Amount:     amount,
		OccurredAt: occurredAt.UTC(),
	}
}

func (e Event) IsPublished() bool {
	return e.PublishedAt != nil
}

func IntRef(value int) *int {
	return &value
}
