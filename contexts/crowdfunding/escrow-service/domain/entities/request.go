package entities

import (
	"strings"
	"time"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"

	"github.com/shopspring/decimal"
)

const ProofRefNotAvailable = "N/A"

type RequestState string

const (
	RequestStateProposed  RequestState = "proposed"
	RequestStateFinalized RequestState = "finalized"
)

// DisbursementRequest is an owner-proposed withdrawal from a campaign escrow.
// Complete flips to true once and ApprovalCount is frozen from then on.
type DisbursementRequest struct {
	CampaignID    int64
	RequestIndex  int
	Description   string
	Value         decimal.Decimal
	Recipient     valueobjects.Identity
	ProofRef      string
	Complete      bool
	ApprovalCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinalizedAt   *time.Time
}

func NewDisbursementRequest(
	campaignID int64,
	index int,
	description string,
	value decimal.Decimal,
	recipient valueobjects.Identity,
	proofRef string,
	now time.Time,
) (DisbursementRequest, error) {
	if !value.IsPositive() {
		return DisbursementRequest{}, domainerrors.ErrInvalidRequestValue
	}
	if recipient.IsZero() {
		return DisbursementRequest{}, domainerrors.ErrInvalidRecipient
	}
	if index < 0 {
		return DisbursementRequest{}, domainerrors.ErrInvariantViolated
	}
	return DisbursementRequest{
		CampaignID:   campaignID,
		RequestIndex: index,
		Description:  description,
		Value:        value,
		Recipient:    recipient,
		ProofRef:     NormalizeProofRef(proofRef),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

func (r DisbursementRequest) State() RequestState {
	if r.Complete {
		return RequestStateFinalized
	}
	return RequestStateProposed
}

// RecordApproval counts one more distinct approving contributor.
func (r *DisbursementRequest) RecordApproval(now time.Time) error {
	if r.Complete {
		return domainerrors.ErrAlreadyFinalized
	}
	r.ApprovalCount++
	r.UpdatedAt = now.UTC()
	return nil
}

// MarkComplete is the terminal transition. It runs before any value moves.
func (r *DisbursementRequest) MarkComplete(now time.Time) error {
	if r.Complete {
		return domainerrors.ErrAlreadyFinalized
	}
	finalizedAt := now.UTC()
	r.Complete = true
	r.FinalizedAt = &finalizedAt
	r.UpdatedAt = finalizedAt
	return nil
}

func NormalizeProofRef(proofRef string) string {
	value := strings.TrimSpace(proofRef)
	if value == "" {
		return ProofRefNotAvailable
	}
	return value
}
