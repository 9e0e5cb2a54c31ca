package metricsadapter

import (
	"errors"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var rejectionReasons = []struct {
	kind   error
	reason string
}{
	{domainerrors.ErrInvalidArgument, "invalid_argument"},
	{domainerrors.ErrNotFound, "not_found"},
	{domainerrors.ErrUnauthorized, "unauthorized"},
	{domainerrors.ErrAlreadyVoted, "already_voted"},
	{domainerrors.ErrAlreadyFinalized, "already_finalized"},
	{domainerrors.ErrQuorumNotMet, "quorum_not_met"},
	{domainerrors.ErrInsufficientFunds, "insufficient_funds"},
}

// Prometheus records escrow activity on a caller supplied registry.
type Prometheus struct {
	campaignsCreated  prometheus.Counter
	donations         prometheus.Counter
	donatedAmount     prometheus.Counter
	contributors      prometheus.Counter
	requestsCreated   prometheus.Counter
	votes             prometheus.Counter
	requestsFinalized prometheus.Counter
	disbursedAmount   prometheus.Counter
	rejections        *prometheus.CounterVec
}

func NewPrometheus(registry prometheus.Registerer) *Prometheus {
	factory := promauto.With(registry)
	return &Prometheus{
		campaignsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_campaigns_created_total",
			Help: "campaigns created",
		}),
		donations: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_donations_total",
			Help: "accepted donations",
		}),
		donatedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_donated_amount_total",
			Help: "sum of accepted donation amounts",
		}),
		contributors: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_contributors_total",
			Help: "contributors admitted across all campaigns",
		}),
		requestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_requests_created_total",
			Help: "disbursement requests created",
		}),
		votes: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_votes_total",
			Help: "approvals recorded",
		}),
		requestsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_requests_finalized_total",
			Help: "disbursement requests finalized",
		}),
		disbursedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "crystalgive_disbursed_amount_total",
			Help: "sum of value released to recipients",
		}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crystalgive_operation_rejections_total",
			Help: "rejected escrow operations by reason",
		}, []string{"operation", "reason"}),
	}
}

func (m *Prometheus) CampaignCreated() {
	m.campaignsCreated.Inc()
}

func (m *Prometheus) DonationAccepted(amount decimal.Decimal, newContributor bool) {
	m.donations.Inc()
	m.donatedAmount.Add(amount.InexactFloat64())
	if newContributor {
		m.contributors.Inc()
	}
}

func (m *Prometheus) RequestCreated() {
	m.requestsCreated.Inc()
}

func (m *Prometheus) VoteRecorded() {
	m.votes.Inc()
}

func (m *Prometheus) RequestFinalized(value decimal.Decimal) {
	m.requestsFinalized.Inc()
	m.disbursedAmount.Add(value.InexactFloat64())
}

func (m *Prometheus) OperationRejected(operation string, err error) {
	m.rejections.WithLabelValues(operation, RejectionReason(err)).Inc()
}

// RejectionReason maps an error onto a low-cardinality label value.
func RejectionReason(err error) string {
	for _, candidate := range rejectionReasons {
		if errors.Is(err, candidate.kind) {
			return candidate.reason
		}
	}
	return "internal"
}

var _ ports.Metrics = (*Prometheus)(nil)
