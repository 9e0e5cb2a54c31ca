package application

import (
	"crystalgive/contexts/crowdfunding/escrow-service/ports"

	"github.com/shopspring/decimal"
)

func ResolveMetrics(metrics ports.Metrics) ports.Metrics {
	if metrics != nil {
		return metrics
	}
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) CampaignCreated()                       {}
func (noopMetrics) DonationAccepted(decimal.Decimal, bool) {}
func (noopMetrics) RequestCreated()                        {}
func (noopMetrics) VoteRecorded()                          {}
func (noopMetrics) RequestFinalized(decimal.Decimal)       {}
func (noopMetrics) OperationRejected(string, error)        {}
