package postgresadapter

import (
	"time"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

const (
	sequenceCampaign = "campaign"
	sequenceEvent    = "event"
)

func allModels() []any {
	return []any{
		&sequenceModel{},
		&campaignModel{},
		&contributorModel{},
		&requestModel{},
		&voteModel{},
		&balanceModel{},
		&eventModel{},
		&idempotencyModel{},
	}
}

type sequenceModel struct {
	Name      string `gorm:"column:name;primaryKey"`
	NextValue int64  `gorm:"column:next_value"`
}

func (sequenceModel) TableName() string {
	return "escrow_sequences"
}

type campaignModel struct {
	CampaignID     int64           `gorm:"column:campaign_id;primaryKey;autoIncrement:false"`
	Owner          string          `gorm:"column:owner;index"`
	Title          string          `gorm:"column:title"`
	Target         decimal.Decimal `gorm:"column:target;type:numeric(38,18)"`
	Collected      decimal.Decimal `gorm:"column:collected;type:numeric(38,18)"`
	ApproversCount int             `gorm:"column:approvers_count"`
	RequestCount   int             `gorm:"column:request_count"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (campaignModel) TableName() string {
	return "escrow_campaigns"
}

func campaignModelFromEntity(campaign entities.Campaign) campaignModel {
	return campaignModel{
		CampaignID:     campaign.CampaignID,
		Owner:          campaign.Owner.String(),
		Title:          campaign.Title,
		Target:         campaign.Target,
		Collected:      campaign.Collected,
		ApproversCount: campaign.ApproversCount,
		RequestCount:   campaign.RequestCount,
		CreatedAt:      campaign.CreatedAt.UTC(),
		UpdatedAt:      campaign.UpdatedAt.UTC(),
	}
}

func (m campaignModel) toEntity() entities.Campaign {
	return entities.Campaign{
		CampaignID:     m.CampaignID,
		Owner:          valueobjects.Identity(m.Owner),
		Title:          m.Title,
		Target:         m.Target,
		Collected:      m.Collected,
		ApproversCount: m.ApproversCount,
		RequestCount:   m.RequestCount,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type contributorModel struct {
	CampaignID int64     `gorm:"column:campaign_id;primaryKey;autoIncrement:false"`
	Identity   string    `gorm:"column:identity;primaryKey"`
	JoinedAt   time.Time `gorm:"column:joined_at"`
}

func (contributorModel) TableName() string {
	return "escrow_contributors"
}

type requestModel struct {
	CampaignID    int64           `gorm:"column:campaign_id;primaryKey;autoIncrement:false"`
	RequestIndex  int             `gorm:"column:request_index;primaryKey;autoIncrement:false"`
	Description   string          `gorm:"column:description"`
	Value         decimal.Decimal `gorm:"column:value;type:numeric(38,18)"`
	Recipient     string          `gorm:"column:recipient"`
	ProofRef      string          `gorm:"column:proof_ref"`
	Complete      bool            `gorm:"column:complete"`
	ApprovalCount int             `gorm:"column:approval_count"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
	FinalizedAt   *time.Time      `gorm:"column:finalized_at"`
}

func (requestModel) TableName() string {
	return "escrow_disbursement_requests"
}

func requestModelFromEntity(request entities.DisbursementRequest) requestModel {
	return requestModel{
		CampaignID:    request.CampaignID,
		RequestIndex:  request.RequestIndex,
		Description:   request.Description,
		Value:         request.Value,
		Recipient:     request.Recipient.String(),
		ProofRef:      request.ProofRef,
		Complete:      request.Complete,
		ApprovalCount: request.ApprovalCount,
		CreatedAt:     request.CreatedAt.UTC(),
		UpdatedAt:     request.UpdatedAt.UTC(),
		FinalizedAt:   utcRef(request.FinalizedAt),
	}
}

func (m requestModel) toEntity() entities.DisbursementRequest {
	return entities.DisbursementRequest{
		CampaignID:    m.CampaignID,
		RequestIndex:  m.RequestIndex,
		Description:   m.Description,
		Value:         m.Value,
		Recipient:     valueobjects.Identity(m.Recipient),
		ProofRef:      m.ProofRef,
		Complete:      m.Complete,
		ApprovalCount: m.ApprovalCount,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		FinalizedAt:   utcRef(m.FinalizedAt),
	}
}

type voteModel struct {
	CampaignID   int64     `gorm:"column:campaign_id;primaryKey;autoIncrement:false"`
	RequestIndex int       `gorm:"column:request_index;primaryKey;autoIncrement:false"`
	Voter        string    `gorm:"column:voter;primaryKey"`
	VotedAt      time.Time `gorm:"column:voted_at"`
}

func (voteModel) TableName() string {
	return "escrow_request_votes"
}

type balanceModel struct {
	AccountKey string          `gorm:"column:account_key;primaryKey"`
	Kind       string          `gorm:"column:kind"`
	CampaignID int64           `gorm:"column:campaign_id"`
	Holder     string          `gorm:"column:holder"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(38,18)"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

func (balanceModel) TableName() string {
	return "escrow_ledger_balances"
}

type eventModel struct {
	Sequence     int64           `gorm:"column:event_sequence;primaryKey;autoIncrement:false"`
	EventID      string          `gorm:"column:event_id;uniqueIndex"`
	EventType    string          `gorm:"column:event_type;index"`
	Operation    string          `gorm:"column:operation"`
	CampaignID   int64           `gorm:"column:campaign_id;index"`
	RequestIndex *int            `gorm:"column:request_index"`
	Actor        string          `gorm:"column:actor;index"`
	Counterparty string          `gorm:"column:counterparty"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(38,18)"`
	OccurredAt   time.Time       `gorm:"column:occurred_at"`
	PublishedAt  *time.Time      `gorm:"column:published_at;index"`
}

func (eventModel) TableName() string {
	return "escrow_events"
}

func eventModelFromEntity(event entities.Event) eventModel {
	return eventModel{
		Sequence:     event.Sequence,
		EventID:      event.EventID,
		EventType:    event.EventType,
		Operation:    event.Operation,
		CampaignID:   event.CampaignID,
		RequestIndex: event.RequestIndex,
		Actor:        event.Actor.String(),
		Counterparty: event.Counterparty.String(),
		Amount:       event.Amount,
		OccurredAt:   event.OccurredAt.UTC(),
		PublishedAt:  utcRef(event.PublishedAt),
	}
}

func (m eventModel) toEntity() entities.Event {
	return entities.Event{
		Sequence:     m.Sequence,
		EventID:      m.EventID,
		EventType:    m.EventType,
		Operation:    m.Operation,
		CampaignID:   m.CampaignID,
		RequestIndex: m.RequestIndex,
		Actor:        valueobjects.Identity(m.Actor),
		Counterparty: valueobjects.Identity(m.Counterparty),
		Amount:       m.Amount,
		OccurredAt:   m.OccurredAt.UTC(),
		PublishedAt:  utcRef(m.PublishedAt),
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ResourceID  string    `gorm:"column:resource_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "escrow_idempotency"
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:         m.Key,
		RequestHash: m.RequestHash,
		ResourceID:  m.ResourceID,
		ExpiresAt:   m.ExpiresAt.UTC(),
	}
}

func utcRef(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
