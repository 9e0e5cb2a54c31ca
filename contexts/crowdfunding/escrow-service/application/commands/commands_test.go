package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"crystalgive/contexts/crowdfunding/escrow-service/adapters/memory"
	"crystalgive/contexts/crowdfunding/escrow-service/application/commands"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

const (
	owner     = "0x1000000000000000000000000000000000000001"
	donorA    = "0x2000000000000000000000000000000000000002"
	donorB    = "0x3000000000000000000000000000000000000003"
	donorC    = "0x4000000000000000000000000000000000000004"
	recipient = "0x5000000000000000000000000000000000000005"
	stranger  = "0x6000000000000000000000000000000000000006"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type recordingMetrics struct {
	rejected map[string]int
}

func (m *recordingMetrics) CampaignCreated()                       {}
func (m *recordingMetrics) DonationAccepted(decimal.Decimal, bool) {}
func (m *recordingMetrics) RequestCreated()                        {}
func (m *recordingMetrics) VoteRecorded()                          {}
func (m *recordingMetrics) RequestFinalized(decimal.Decimal)       {}
func (m *recordingMetrics) OperationRejected(operation string, _ error) {
	m.rejected[operation]++
}

type harness struct {
	store    *memory.Store
	metrics  *recordingMetrics
	campaign commands.CreateCampaignUseCase
	donate   commands.DonateUseCase
	request  commands.CreateRequestUseCase
	approve  commands.ApproveRequestUseCase
	finalize commands.FinalizeRequestUseCase
}

func newHarness() harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore(logger)
	clock := fixedClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	metrics := &recordingMetrics{rejected: map[string]int{}}
	return harness{
		store:    store,
		metrics:  metrics,
		campaign: commands.CreateCampaignUseCase{Units: store, Clock: clock, IDGenerator: store, Metrics: metrics, Logger: logger},
		donate:   commands.DonateUseCase{Units: store, Clock: clock, IDGenerator: store, Metrics: metrics, Logger: logger},
		request:  commands.CreateRequestUseCase{Units: store, Clock: clock, IDGenerator: store, Metrics: metrics, Logger: logger},
		approve:  commands.ApproveRequestUseCase{Units: store, Clock: clock, IDGenerator: store, Metrics: metrics, Logger: logger},
		finalize: commands.FinalizeRequestUseCase{Units: store, Clock: clock, IDGenerator: store, Metrics: metrics, Logger: logger},
	}
}

func amount(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

func (h harness) mustCampaign(t *testing.T, target int64) int64 {
	t.Helper()
	result, err := h.campaign.Execute(context.Background(), commands.CreateCampaignCommand{
		Caller: owner,
		Title:  "community garden",
		Target: amount(target),
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return result.Campaign.CampaignID
}

func (h harness) mustDonate(t *testing.T, campaignID int64, donor string, value int64) commands.DonateResult {
	t.Helper()
	result, err := h.donate.Execute(context.Background(), commands.DonateCommand{
		Caller:     donor,
		CampaignID: campaignID,
		Amount:     amount(value),
	})
	if err != nil {
		t.Fatalf("donate %d from %s: %v", value, donor, err)
	}
	return result
}

func (h harness) mustRequest(t *testing.T, campaignID int64, value int64) int {
	t.Helper()
	result, err := h.request.Execute(context.Background(), commands.CreateRequestCommand{
		Caller:      owner,
		CampaignID:  campaignID,
		Description: "seeds and soil",
		Value:       amount(value),
		Recipient:   recipient,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return result.Request.RequestIndex
}

func (h harness) mustApprove(t *testing.T, campaignID int64, index int, voter string) commands.ApproveRequestResult {
	t.Helper()
	result, err := h.approve.Execute(context.Background(), commands.ApproveRequestCommand{
		Caller:       voter,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if err != nil {
		t.Fatalf("approve by %s: %v", voter, err)
	}
	return result
}

func (h harness) eventCount(t *testing.T) int {
	t.Helper()
	events, err := h.store.ListEvents(context.Background(), ports.EventFilter{Limit: 1000})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return len(events)
}

func TestCreateCampaignAssignsSequentialIDs(t *testing.T) {
	h := newHarness()
	for want := int64(0); want < 3; want++ {
		if got := h.mustCampaign(t, 10); got != want {
			t.Fatalf("expected campaign id %d, got %d", want, got)
		}
	}

	campaign, err := h.store.GetCampaign(context.Background(), 1)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if campaign.Owner != valueobjects.MustIdentity(owner) || !campaign.Collected.IsZero() || campaign.ApproversCount != 0 {
		t.Fatalf("unexpected initial campaign state: %+v", campaign)
	}
}

func TestCreateCampaignRejectsNonPositiveTarget(t *testing.T) {
	h := newHarness()
	for _, target := range []decimal.Decimal{decimal.Zero, amount(-3)} {
		_, err := h.campaign.Execute(context.Background(), commands.CreateCampaignCommand{Caller: owner, Target: target})
		if !errors.Is(err, domainerrors.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for target %s, got %v", target, err)
		}
	}
	count, _ := h.store.CountCampaigns(context.Background())
	if count != 0 {
		t.Fatalf("expected no campaigns, got %d", count)
	}
}

func TestDonationApprovalAndFinalizationScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	campaignID := h.mustCampaign(t, 10)

	h.mustDonate(t, campaignID, donorA, 2)
	second := h.mustDonate(t, campaignID, donorB, 3)
	if !second.Campaign.Collected.Equal(amount(5)) || second.Campaign.ApproversCount != 2 {
		t.Fatalf("expected collected 5 and 2 approvers, got %s and %d",
			second.Campaign.Collected, second.Campaign.ApproversCount)
	}

	index := h.mustRequest(t, campaignID, 1)
	if index != 0 {
		t.Fatalf("expected first request index 0, got %d", index)
	}
	first := h.mustApprove(t, campaignID, index, donorA)
	if first.QuorumReached {
		t.Fatalf("1 of 2 approvals must not reach quorum")
	}
	both := h.mustApprove(t, campaignID, index, donorB)
	if both.Request.ApprovalCount != 2 || !both.QuorumReached {
		t.Fatalf("expected 2 approvals with quorum, got %+v", both)
	}

	result, err := h.finalize.Execute(ctx, commands.FinalizeRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: index})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !result.Request.Complete {
		t.Fatalf("expected request to be complete")
	}
	if !result.RecipientBalance.Equal(amount(1)) || !result.EscrowBalance.Equal(amount(4)) {
		t.Fatalf("expected recipient 1 and escrow 4, got %s and %s", result.RecipientBalance, result.EscrowBalance)
	}

	_, err = h.finalize.Execute(ctx, commands.FinalizeRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: index})
	if !errors.Is(err, domainerrors.ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized on repeat, got %v", err)
	}

	campaign, err := h.store.GetCampaign(ctx, campaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if !campaign.Collected.Equal(amount(5)) {
		t.Fatalf("collected must not shrink on payout, got %s", campaign.Collected)
	}
}

func TestDonationEventsCarrySequenceAndOperation(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 2)
	h.mustDonate(t, campaignID, donorA, 4)

	events, err := h.store.ListEvents(context.Background(), ports.EventFilter{EventType: entities.EventTypeDonationReceived})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 donation events, got %d", len(events))
	}
	for i, event := range events {
		if event.Operation != entities.OperationDonate || event.CampaignID != campaignID {
			t.Fatalf("unexpected event %d: %+v", i, event)
		}
		if i > 0 && event.Sequence <= events[i-1].Sequence {
			t.Fatalf("sequence must strictly increase: %d then %d", events[i-1].Sequence, event.Sequence)
		}
	}
	if !events[1].Amount.Equal(amount(4)) || events[1].Actor != valueobjects.MustIdentity(donorA) {
		t.Fatalf("unexpected second donation event: %+v", events[1])
	}

	campaign, _ := h.store.GetCampaign(context.Background(), campaignID)
	if campaign.ApproversCount != 1 {
		t.Fatalf("repeat donor must be counted once, got %d", campaign.ApproversCount)
	}
}

func TestLateContributorRaisesQuorum(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 5)
	index := h.mustRequest(t, campaignID, 1)

	vote := h.mustApprove(t, campaignID, index, donorA)
	if !vote.QuorumReached {
		t.Fatalf("1 of 1 approvals should reach quorum")
	}

	h.mustDonate(t, campaignID, donorC, 1)
	_, err := h.finalize.Execute(context.Background(), commands.FinalizeRequestCommand{
		Caller:       owner,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet after late contributor, got %v", err)
	}

	request, _ := h.store.GetRequest(context.Background(), campaignID, index)
	if request.Complete {
		t.Fatalf("request must stay pending after quorum failure")
	}
}

func TestRoleChecksRejectWrongCaller(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 3)
	index := h.mustRequest(t, campaignID, 1)
	h.mustApprove(t, campaignID, index, donorA)
	before := h.eventCount(t)

	_, err := h.request.Execute(ctx, commands.CreateRequestCommand{
		Caller:     donorA,
		CampaignID: campaignID,
		Value:      amount(1),
		Recipient:  recipient,
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner createRequest, got %v", err)
	}

	_, err = h.finalize.Execute(ctx, commands.FinalizeRequestCommand{Caller: donorA, CampaignID: campaignID, RequestIndex: index})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner finalize, got %v", err)
	}

	_, err = h.approve.Execute(ctx, commands.ApproveRequestCommand{Caller: stranger, CampaignID: campaignID, RequestIndex: index})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-contributor approve, got %v", err)
	}

	_, err = h.approve.Execute(ctx, commands.ApproveRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: index})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("owner without a donation is not a contributor, got %v", err)
	}

	_, err = h.donate.Execute(ctx, commands.DonateCommand{Caller: "", CampaignID: campaignID, Amount: amount(1)})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for missing caller, got %v", err)
	}

	if after := h.eventCount(t); after != before {
		t.Fatalf("rejected operations must not append events: %d -> %d", before, after)
	}
	if h.metrics.rejected[entities.OperationApproveRequest] != 2 {
		t.Fatalf("expected 2 approve rejections recorded, got %d", h.metrics.rejected[entities.OperationApproveRequest])
	}
}

func TestApproveRejectsRepeatVote(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 3)
	h.mustDonate(t, campaignID, donorB, 3)
	index := h.mustRequest(t, campaignID, 1)
	h.mustApprove(t, campaignID, index, donorA)

	_, err := h.approve.Execute(context.Background(), commands.ApproveRequestCommand{
		Caller:       donorA,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	request, _ := h.store.GetRequest(context.Background(), campaignID, index)
	if request.ApprovalCount != 1 {
		t.Fatalf("approval count must stay 1, got %d", request.ApprovalCount)
	}
}

func TestApproveAfterFinalizeFails(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 3)
	h.mustDonate(t, campaignID, donorB, 3)
	h.mustDonate(t, campaignID, donorC, 3)
	index := h.mustRequest(t, campaignID, 2)
	h.mustApprove(t, campaignID, index, donorA)
	h.mustApprove(t, campaignID, index, donorB)

	if _, err := h.finalize.Execute(context.Background(), commands.FinalizeRequestCommand{
		Caller:       owner,
		CampaignID:   campaignID,
		RequestIndex: index,
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := h.approve.Execute(context.Background(), commands.ApproveRequestCommand{
		Caller:       donorC,
		CampaignID:   campaignID,
		RequestIndex: index,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestFinalizeShortfallRollsBackComplete(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	campaignID := h.mustCampaign(t, 10)
	h.mustDonate(t, campaignID, donorA, 5)
	first := h.mustRequest(t, campaignID, 4)
	second := h.mustRequest(t, campaignID, 4)
	h.mustApprove(t, campaignID, first, donorA)
	h.mustApprove(t, campaignID, second, donorA)

	if _, err := h.finalize.Execute(ctx, commands.FinalizeRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: first}); err != nil {
		t.Fatalf("finalize first: %v", err)
	}
	before := h.eventCount(t)

	_, err := h.finalize.Execute(ctx, commands.FinalizeRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: second})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	request, _ := h.store.GetRequest(ctx, campaignID, second)
	if request.Complete || request.FinalizedAt != nil {
		t.Fatalf("complete flag must be rolled back: %+v", request)
	}
	escrow, _ := h.store.Balance(ctx, entities.EscrowAccount(campaignID))
	if !escrow.Equal(amount(1)) {
		t.Fatalf("expected escrow 1 after failed finalize, got %s", escrow)
	}
	payout, _ := h.store.Balance(ctx, entities.PayoutAccount(valueobjects.MustIdentity(recipient)))
	if !payout.Equal(amount(4)) {
		t.Fatalf("expected recipient balance 4, got %s", payout)
	}
	if after := h.eventCount(t); after != before {
		t.Fatalf("failed finalize must not append events: %d -> %d", before, after)
	}
}

func TestFinalizeUnknownRequest(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 10)

	_, err := h.finalize.Execute(context.Background(), commands.FinalizeRequestCommand{Caller: owner, CampaignID: campaignID, RequestIndex: 0})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing request, got %v", err)
	}
	_, err = h.finalize.Execute(context.Background(), commands.FinalizeRequestCommand{Caller: owner, CampaignID: 42, RequestIndex: 0})
	if !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestDonateChecksCampaignBeforeAmount(t *testing.T) {
	h := newHarness()
	_, err := h.donate.Execute(context.Background(), commands.DonateCommand{Caller: donorA, CampaignID: 7, Amount: decimal.Zero})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	campaignID := h.mustCampaign(t, 10)
	_, err = h.donate.Execute(context.Background(), commands.DonateCommand{Caller: donorA, CampaignID: campaignID, Amount: decimal.Zero})
	if !errors.Is(err, domainerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	member, _ := h.store.IsContributor(context.Background(), campaignID, valueobjects.MustIdentity(donorA))
	if member {
		t.Fatalf("rejected donation must not admit a contributor")
	}
}

func TestDonationsPastTargetAreAccepted(t *testing.T) {
	h := newHarness()
	campaignID := h.mustCampaign(t, 2)
	result := h.mustDonate(t, campaignID, donorA, 5)
	if !result.Campaign.Collected.Equal(amount(5)) || !result.EscrowBalance.Equal(amount(5)) {
		t.Fatalf("expected collected and escrow 5, got %s and %s", result.Campaign.Collected, result.EscrowBalance)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	campaignID := h.mustCampaign(t, 10)

	cases := []struct {
		name string
		cmd  commands.CreateRequestCommand
		want error
	}{
		{
			name: "missing campaign",
			cmd:  commands.CreateRequestCommand{Caller: owner, CampaignID: 9, Value: amount(1), Recipient: recipient},
			want: domainerrors.ErrCampaignNotFound,
		},
		{
			name: "zero value",
			cmd:  commands.CreateRequestCommand{Caller: owner, CampaignID: campaignID, Value: decimal.Zero, Recipient: recipient},
			want: domainerrors.ErrInvalidRequestValue,
		},
		{
			name: "bad recipient",
			cmd:  commands.CreateRequestCommand{Caller: owner, CampaignID: campaignID, Value: amount(1), Recipient: "not-an-address"},
			want: domainerrors.ErrInvalidRecipient,
		},
		{
			name: "zero address recipient",
			cmd: commands.CreateRequestCommand{
				Caller:     owner,
				CampaignID: campaignID,
				Value:      amount(1),
				Recipient:  "0x0000000000000000000000000000000000000000",
			},
			want: domainerrors.ErrInvalidRecipient,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.request.Execute(ctx, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	result, err := h.request.Execute(ctx, commands.CreateRequestCommand{
		Caller:     owner,
		CampaignID: campaignID,
		Value:      amount(50),
		Recipient:  recipient,
	})
	if err != nil {
		t.Fatalf("requests may exceed the current escrow: %v", err)
	}
	if result.Request.ProofRef != entities.ProofRefNotAvailable || result.Request.Complete || result.Request.ApprovalCount != 0 {
		t.Fatalf("unexpected new request: %+v", result.Request)
	}
}

func TestDonateIdempotencyReplayAndConflict(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	campaignID := h.mustCampaign(t, 10)

	cmd := commands.DonateCommand{Caller: donorA, CampaignID: campaignID, Amount: amount(3), IdempotencyKey: "donation-1"}
	first, err := h.donate.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("first donation: %v", err)
	}
	replay, err := h.donate.Execute(ctx, cmd)
	if err != nil {
		t.Fatalf("replayed donation: %v", err)
	}
	if !replay.Replayed || replay.Sequence != first.Sequence {
		t.Fatalf("expected replay of sequence %d, got %+v", first.Sequence, replay)
	}
	if !replay.Campaign.Collected.Equal(amount(3)) {
		t.Fatalf("replay must not double count, collected=%s", replay.Campaign.Collected)
	}

	cmd.Amount = amount(4)
	_, err = h.donate.Execute(ctx, cmd)
	if !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) || !errors.Is(err, domainerrors.ErrInvalidArgument) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}

	other := commands.DonateCommand{Caller: donorB, CampaignID: campaignID, Amount: amount(4), IdempotencyKey: "donation-1"}
	if _, err := h.donate.Execute(ctx, other); err != nil {
		t.Fatalf("keys are scoped per caller: %v", err)
	}
}

func TestCreateCampaignIdempotencyReplay(t *testing.T) {
	h := newHarness()
	cmd := commands.CreateCampaignCommand{Caller: owner, Title: "library", Target: amount(8), IdempotencyKey: "open-library"}

	first, err := h.campaign.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := h.campaign.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed || second.Campaign.CampaignID != first.Campaign.CampaignID {
		t.Fatalf("expected replay of campaign %d, got %+v", first.Campaign.CampaignID, second)
	}
	count, _ := h.store.CountCampaigns(context.Background())
	if count != 1 {
		t.Fatalf("expected 1 campaign, got %d", count)
	}
}
