package ports

import (
	"context"
	"time"

	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	contractsv1 "crystalgive/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

// EventFilter selects entries of the event log. Zero fields match everything.
type EventFilter struct {
	CampaignID    *int64
	Actor         valueobjects.Identity
	EventType     string
	AfterSequence int64
	Limit         int
}

// Reader exposes committed escrow state.
type Reader interface {
	CountCampaigns(ctx context.Context) (int, error)
	GetCampaign(ctx context.Context, campaignID int64) (entities.Campaign, error)
	ListCampaigns(ctx context.Context, offset int, limit int) ([]entities.Campaign, error)
	GetRequest(ctx context.Context, campaignID int64, index int) (entities.DisbursementRequest, error)
	ListRequests(ctx context.Context, campaignID int64, offset int, limit int) ([]entities.DisbursementRequest, error)
	IsContributor(ctx context.Context, campaignID int64, identity valueobjects.Identity) (bool, error)
	HasVoted(ctx context.Context, campaignID int64, index int, voter valueobjects.Identity) (bool, error)
	Balance(ctx context.Context, account entities.AccountRef) (decimal.Decimal, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]entities.Event, error)
}

// SnapshotReader serves reads that span several records. fn sees one
// consistent view of committed state and must not write.
type SnapshotReader interface {
	Reader
	WithinSnapshot(ctx context.Context, fn func(ctx context.Context, reader Reader) error) error
}

// CampaignRepository writes campaign records. GetCampaign inside a unit also
// takes the campaign's write lock where the backend supports it.
type CampaignRepository interface {
	NextCampaignID(ctx context.Context) (int64, error)
	CreateCampaign(ctx context.Context, campaign entities.Campaign) error
	UpdateCampaign(ctx context.Context, campaign entities.Campaign) error
}

// ContributorRepository reports whether the identity was newly admitted.
type ContributorRepository interface {
	AddContributor(ctx context.Context, campaignID int64, identity valueobjects.Identity, joinedAt time.Time) (bool, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, request entities.DisbursementRequest) error
	UpdateRequest(ctx context.Context, request entities.DisbursementRequest) error
}

// VoteRepository fails with ErrAlreadyVoted on a repeated (request, voter) pair.
type VoteRepository interface {
	RecordVote(ctx context.Context, campaignID int64, index int, voter valueobjects.Identity, votedAt time.Time) error
}

type LedgerRepository interface {
	SetBalance(ctx context.Context, account entities.AccountRef, balance decimal.Decimal) error
}

// EventLog assigns the sequence position and returns the stored event.
type EventLog interface {
	AppendEvent(ctx context.Context, event entities.Event) (entities.Event, error)
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutIdempotency(ctx context.Context, record IdempotencyRecord) error
}

// Unit is the view of the store handed to one serialized operation. Writes
// become visible to other callers only if the unit's function returns nil.
type Unit interface {
	Reader
	CampaignRepository
	ContributorRepository
	RequestRepository
	VoteRepository
	LedgerRepository
	EventLog
	IdempotencyStore
}

// UnitOfWork runs fn as one all-or-nothing unit. Units never interleave on
// the same campaign.
type UnitOfWork interface {
	WithinUnit(ctx context.Context, fn func(ctx context.Context, unit Unit) error) error
}

// Clock allows deterministic testing of timestamps and TTLs.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Metrics observes committed operations and rejections.
type Metrics interface {
	CampaignCreated()
	DonationAccepted(amount decimal.Decimal, newContributor bool)
	RequestCreated()
	VoteRecorded()
	RequestFinalized(value decimal.Decimal)
	OperationRejected(operation string, err error)
}

// OutboxRepository models worker-side polling of unpublished log entries.
type OutboxRepository interface {
	ListUnpublishedEvents(ctx context.Context, limit int) ([]entities.Event, error)
	MarkEventPublished(ctx context.Context, sequence int64, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
