package http

import "time"

// Amounts travel as decimal strings so no precision is lost in JSON.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateCampaignRequest struct {
	Title  string `json:"title"`
	Target string `json:"target"`
}

type CampaignResponse struct {
	CampaignID     int64     `json:"campaign_id"`
	Owner          string    `json:"owner"`
	Title          string    `json:"title"`
	Target         string    `json:"target"`
	Collected      string    `json:"collected"`
	ApproversCount int       `json:"approvers_count"`
	RequestCount   int       `json:"request_count"`
	EscrowBalance  string    `json:"escrow_balance,omitempty"`
	Disbursed      string    `json:"disbursed,omitempty"`
	Spendable      string    `json:"spendable,omitempty"`
	FundedRatio    string    `json:"funded_ratio"`
	CreatedAt      time.Time `json:"created_at"`
	Replayed       bool      `json:"replayed,omitempty"`
}

type ListCampaignsResponse struct {
	Items  []CampaignResponse `json:"items"`
	Total  int                `json:"total"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

type DonateRequest struct {
	Amount string `json:"amount"`
}

type DonationResponse struct {
	CampaignID     int64  `json:"campaign_id"`
	Contributor    string `json:"contributor"`
	Amount         string `json:"amount"`
	Collected      string `json:"collected"`
	ApproversCount int    `json:"approvers_count"`
	EscrowBalance  string `json:"escrow_balance"`
	Sequence       int64  `json:"sequence"`
	NewContributor bool   `json:"new_contributor"`
	Replayed       bool   `json:"replayed"`
}

type CreateDisbursementRequest struct {
	Description string `json:"description"`
	Value       string `json:"value"`
	Recipient   string `json:"recipient"`
	ProofRef    string `json:"proof_ref"`
}

type DisbursementRequestResponse struct {
	CampaignID     int64      `json:"campaign_id"`
	RequestIndex   int        `json:"request_index"`
	Description    string     `json:"description"`
	Value          string     `json:"value"`
	Recipient      string     `json:"recipient"`
	ProofRef       string     `json:"proof_ref"`
	ProofCID       string     `json:"proof_cid,omitempty"`
	State          string     `json:"state"`
	Complete       bool       `json:"complete"`
	ApprovalCount  int        `json:"approval_count"`
	ApproversCount int        `json:"approvers_count,omitempty"`
	QuorumReached  bool       `json:"quorum_reached"`
	CreatedAt      time.Time  `json:"created_at"`
	FinalizedAt    *time.Time `json:"finalized_at,omitempty"`
	Replayed       bool       `json:"replayed,omitempty"`
}

type ListDisbursementRequestsResponse struct {
	CampaignID int64                         `json:"campaign_id"`
	Items      []DisbursementRequestResponse `json:"items"`
	Total      int                           `json:"total"`
}

type ApprovalResponse struct {
	CampaignID     int64 `json:"campaign_id"`
	RequestIndex   int   `json:"request_index"`
	ApprovalCount  int   `json:"approval_count"`
	ApproversCount int   `json:"approvers_count"`
	QuorumReached  bool  `json:"quorum_reached"`
}

type FinalizeResponse struct {
	Request          DisbursementRequestResponse `json:"request"`
	EscrowBalance    string                      `json:"escrow_balance"`
	RecipientBalance string                      `json:"recipient_balance"`
}

type MembershipResponse struct {
	CampaignID    int64  `json:"campaign_id"`
	Identity      string `json:"identity"`
	IsContributor bool   `json:"is_contributor"`
	RequestIndex  *int   `json:"request_index,omitempty"`
	HasVoted      *bool  `json:"has_voted,omitempty"`
}

type BalanceResponse struct {
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

type EventResponse struct {
	Sequence     int64     `json:"sequence"`
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Operation    string    `json:"operation"`
	CampaignID   int64     `json:"campaign_id"`
	RequestIndex *int      `json:"request_index,omitempty"`
	Actor        string    `json:"actor"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       string    `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
	Published    bool      `json:"published"`
}

type ListEventsResponse struct {
	Items        []EventResponse `json:"items"`
	LastSequence int64           `json:"last_sequence"`
}

type ListEventsRequest struct {
	CampaignID    *int64
	Actor         string
	EventType     string
	AfterSequence int64
	Limit         int
}
