package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

type requestKey struct {
	campaignID int64
	index      int
}

type memberKey struct {
	campaignID int64
	identity   valueobjects.Identity
}

type voteKey struct {
	campaignID int64
	index      int
	voter      valueobjects.Identity
}

type state struct {
	campaigns      map[int64]entities.Campaign
	requests       map[requestKey]entities.DisbursementRequest
	contributors   map[memberKey]time.Time
	votes          map[voteKey]time.Time
	balances       map[string]decimal.Decimal
	events         []entities.Event
	idempotency    map[string]ports.IdempotencyRecord
	nextCampaignID int64
	nextSequence   int64
}

// Store is an in-memory adapter implementing escrow ports for local runtime
// and tests. Units run under the write lock and stage writes in an overlay
// that is merged only when the unit succeeds.
type Store struct {
	mu     sync.RWMutex
	state  state
	idSeq  uint64
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		state: state{
			campaigns:    make(map[int64]entities.Campaign),
			requests:     make(map[requestKey]entities.DisbursementRequest),
			contributors: make(map[memberKey]time.Time),
			votes:        make(map[voteKey]time.Time),
			balances:     make(map[string]decimal.Decimal),
			idempotency:  make(map[string]ports.IdempotencyRecord),
			nextSequence: 1,
		},
		logger: application.ResolveLogger(logger),
	}
}

func (s *Store) WithinUnit(ctx context.Context, fn func(ctx context.Context, unit ports.Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := newUnit(&s.state)
	if err := fn(ctx, u); err != nil {
		s.logger.Debug("unit discarded",
			"event", "escrow_memory_unit_discarded",
			"module", application.ModuleName,
			"layer", "adapter",
			"error", err.Error(),
		)
		return err
	}
	u.commit()
	return nil
}

// WithinSnapshot holds the read lock for the whole of fn.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(ctx context.Context, reader ports.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, s.view())
}

func (s *Store) view() *unit {
	return &unit{
		base:           &s.state,
		nextCampaignID: s.state.nextCampaignID,
		nextSequence:   s.state.nextSequence,
	}
}

func (s *Store) CountCampaigns(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountCampaigns(ctx)
}

func (s *Store) GetCampaign(ctx context.Context, campaignID int64) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetCampaign(ctx, campaignID)
}

func (s *Store) ListCampaigns(ctx context.Context, offset int, limit int) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListCampaigns(ctx, offset, limit)
}

func (s *Store) GetRequest(ctx context.Context, campaignID int64, index int) (entities.DisbursementRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetRequest(ctx, campaignID, index)
}

func (s *Store) ListRequests(ctx context.Context, campaignID int64, offset int, limit int) ([]entities.DisbursementRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListRequests(ctx, campaignID, offset, limit)
}

func (s *Store) IsContributor(ctx context.Context, campaignID int64, identity valueobjects.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().IsContributor(ctx, campaignID, identity)
}

func (s *Store) HasVoted(ctx context.Context, campaignID int64, index int, voter valueobjects.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().HasVoted(ctx, campaignID, index, voter)
}

func (s *Store) Balance(ctx context.Context, account entities.AccountRef) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().Balance(ctx, account)
}

func (s *Store) ListEvents(ctx context.Context, filter ports.EventFilter) ([]entities.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListEvents(ctx, filter)
}

func (s *Store) ListUnpublishedEvents(_ context.Context, limit int) ([]entities.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Event, 0, limit)
	for _, event := range s.state.events {
		if event.IsPublished() {
			continue
		}
		items = append(items, event)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkEventPublished(_ context.Context, sequence int64, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	position := int(sequence - 1)
	if position < 0 || position >= len(s.state.events) || s.state.events[position].Sequence != sequence {
		return domainerrors.ErrInvariantViolated
	}
	at := publishedAt.UTC()
	s.state.events[position].PublishedAt = &at
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.idSeq, 1)
	return fmt.Sprintf("escrow-%d", value), nil
}

type unit struct {
	base           *state
	campaigns      map[int64]entities.Campaign
	requests       map[requestKey]entities.DisbursementRequest
	contributors   map[memberKey]time.Time
	votes          map[voteKey]time.Time
	balances       map[string]decimal.Decimal
	events         []entities.Event
	idempotency    map[string]ports.IdempotencyRecord
	nextCampaignID int64
	nextSequence   int64
}

func newUnit(base *state) *unit {
	return &unit{
		base:           base,
		campaigns:      make(map[int64]entities.Campaign),
		requests:       make(map[requestKey]entities.DisbursementRequest),
		contributors:   make(map[memberKey]time.Time),
		votes:          make(map[voteKey]time.Time),
		balances:       make(map[string]decimal.Decimal),
		idempotency:    make(map[string]ports.IdempotencyRecord),
		nextCampaignID: base.nextCampaignID,
		nextSequence:   base.nextSequence,
	}
}

func (u *unit) commit() {
	for id, campaign := range u.campaigns {
		u.base.campaigns[id] = campaign
	}
	for key, request := range u.requests {
		u.base.requests[key] = request
	}
	for key, joinedAt := range u.contributors {
		u.base.contributors[key] = joinedAt
	}
	for key, votedAt := range u.votes {
		u.base.votes[key] = votedAt
	}
	for key, balance := range u.balances {
		u.base.balances[key] = balance
	}
	for key, record := range u.idempotency {
		u.base.idempotency[key] = record
	}
	u.base.events = append(u.base.events, u.events...)
	u.base.nextCampaignID = u.nextCampaignID
	u.base.nextSequence = u.nextSequence
}

func (u *unit) CountCampaigns(context.Context) (int, error) {
	return int(u.nextCampaignID), nil
}

func (u *unit) GetCampaign(_ context.Context, campaignID int64) (entities.Campaign, error) {
	if campaign, ok := u.campaigns[campaignID]; ok {
		return campaign, nil
	}
	if campaign, ok := u.base.campaigns[campaignID]; ok {
		return campaign, nil
	}
	return entities.Campaign{}, domainerrors.ErrCampaignNotFound
}

func (u *unit) ListCampaigns(ctx context.Context, offset int, limit int) ([]entities.Campaign, error) {
	items := make([]entities.Campaign, 0, limit)
	for id := int64(offset); id < u.nextCampaignID && len(items) < limit; id++ {
		campaign, err := u.GetCampaign(ctx, id)
		if err != nil {
			return nil, domainerrors.ErrInvariantViolated
		}
		items = append(items, campaign)
	}
	return items, nil
}

func (u *unit) GetRequest(_ context.Context, campaignID int64, index int) (entities.DisbursementRequest, error) {
	key := requestKey{campaignID: campaignID, index: index}
	if request, ok := u.requests[key]; ok {
		return request, nil
	}
	if request, ok := u.base.requests[key]; ok {
		return request, nil
	}
	return entities.DisbursementRequest{}, domainerrors.ErrRequestNotFound
}

func (u *unit) ListRequests(ctx context.Context, campaignID int64, offset int, limit int) ([]entities.DisbursementRequest, error) {
	campaign, err := u.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	items := make([]entities.DisbursementRequest, 0, limit)
	for index := offset; index < campaign.RequestCount && len(items) < limit; index++ {
		request, err := u.GetRequest(ctx, campaignID, index)
		if err != nil {
			return nil, domainerrors.ErrInvariantViolated
		}
		items = append(items, request)
	}
	return items, nil
}

func (u *unit) IsContributor(_ context.Context, campaignID int64, identity valueobjects.Identity) (bool, error) {
	key := memberKey{campaignID: campaignID, identity: identity}
	if _, ok := u.contributors[key]; ok {
		return true, nil
	}
	_, ok := u.base.contributors[key]
	return ok, nil
}

func (u *unit) HasVoted(_ context.Context, campaignID int64, index int, voter valueobjects.Identity) (bool, error) {
	key := voteKey{campaignID: campaignID, index: index, voter: voter}
	if _, ok := u.votes[key]; ok {
		return true, nil
	}
	_, ok := u.base.votes[key]
	return ok, nil
}

func (u *unit) Balance(_ context.Context, account entities.AccountRef) (decimal.Decimal, error) {
	key := account.Key()
	if balance, ok := u.balances[key]; ok {
		return balance, nil
	}
	if balance, ok := u.base.balances[key]; ok {
		return balance, nil
	}
	return decimal.Zero, nil
}

func (u *unit) ListEvents(_ context.Context, filter ports.EventFilter) ([]entities.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Event, 0)
	for _, source := range [][]entities.Event{u.base.events, u.events} {
		for _, event := range source {
			if len(items) == limit {
				return items, nil
			}
			if matchesFilter(event, filter) {
				items = append(items, event)
			}
		}
	}
	return items, nil
}

func (u *unit) NextCampaignID(context.Context) (int64, error) {
	id := u.nextCampaignID
	u.nextCampaignID++
	return id, nil
}

func (u *unit) CreateCampaign(_ context.Context, campaign entities.Campaign) error {
	if _, ok := u.base.campaigns[campaign.CampaignID]; ok {
		return domainerrors.ErrInvariantViolated
	}
	if _, ok := u.campaigns[campaign.CampaignID]; ok {
		return domainerrors.ErrInvariantViolated
	}
	u.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (u *unit) UpdateCampaign(ctx context.Context, campaign entities.Campaign) error {
	if _, err := u.GetCampaign(ctx, campaign.CampaignID); err != nil {
		return err
	}
	u.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (u *unit) AddContributor(ctx context.Context, campaignID int64, identity valueobjects.Identity, joinedAt time.Time) (bool, error) {
	exists, err := u.IsContributor(ctx, campaignID, identity)
	if err != nil || exists {
		return false, err
	}
	u.contributors[memberKey{campaignID: campaignID, identity: identity}] = joinedAt.UTC()
	return true, nil
}

func (u *unit) CreateRequest(ctx context.Context, request entities.DisbursementRequest) error {
	if _, err := u.GetRequest(ctx, request.CampaignID, request.RequestIndex); err == nil {
		return domainerrors.ErrInvariantViolated
	}
	u.requests[requestKey{campaignID: request.CampaignID, index: request.RequestIndex}] = request
	return nil
}

func (u *unit) UpdateRequest(ctx context.Context, request entities.DisbursementRequest) error {
	if _, err := u.GetRequest(ctx, request.CampaignID, request.RequestIndex); err != nil {
		return err
	}
	u.requests[requestKey{campaignID: request.CampaignID, index: request.RequestIndex}] = request
	return nil
}

func (u *unit) RecordVote(ctx context.Context, campaignID int64, index int, voter valueobjects.Identity, votedAt time.Time) error {
	voted, err := u.HasVoted(ctx, campaignID, index, voter)
	if err != nil {
		return err
	}
	if voted {
		return domainerrors.ErrAlreadyVoted
	}
	u.votes[voteKey{campaignID: campaignID, index: index, voter: voter}] = votedAt.UTC()
	return nil
}

func (u *unit) SetBalance(_ context.Context, account entities.AccountRef, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return domainerrors.ErrInvariantViolated
	}
	u.balances[account.Key()] = balance
	return nil
}

func (u *unit) AppendEvent(_ context.Context, event entities.Event) (entities.Event, error) {
	event.Sequence = u.nextSequence
	event.PublishedAt = nil
	u.nextSequence++
	u.events = append(u.events, event)
	return event, nil
}

func (u *unit) GetIdempotency(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	record, ok := u.idempotency[key]
	if !ok {
		record, ok = u.base.idempotency[key]
	}
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

// PutIdempotency overwrites; callers have already checked the key with GetIdempotency in the same unit.
func (u *unit) PutIdempotency(_ context.Context, record ports.IdempotencyRecord) error {
	u.idempotency[record.Key] = record
	return nil
}

func matchesFilter(event entities.Event, filter ports.EventFilter) bool {
	if event.Sequence <= filter.AfterSequence {
		return false
	}
	if filter.CampaignID != nil && event.CampaignID != *filter.CampaignID {
		return false
	}
	if filter.EventType != "" && event.EventType != filter.EventType {
		return false
	}
	if !filter.Actor.IsZero() && event.Actor != filter.Actor {
		return false
	}
	return true
}
