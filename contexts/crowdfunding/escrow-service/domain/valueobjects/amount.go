package valueobjects

import (
	"strings"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a decimal string. Sign rules belong to the operation that
// consumes the amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, domainerrors.ErrInvalidAmount
	}
	return value, nil
}
