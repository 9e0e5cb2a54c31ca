package queries

import (
	"log/slog"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func resolvePage(offset int, limit int) (int, int, error) {
	if offset < 0 || limit < 0 {
		return 0, 0, domainerrors.ErrInvalidListFilter
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit, nil
}

func logQueryFailure(logger *slog.Logger, event string, err error, attrs ...any) {
	args := append([]any{
		"event", event,
		"module", application.ModuleName,
		"layer", "application",
		"error", err.Error(),
	}, attrs...)
	logger.Error("query failed", args...)
}
