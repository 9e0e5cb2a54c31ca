package queries

import (
	"context"
	"log/slog"
	"strings"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

var knownEventTypes = map[string]struct{}{
	entities.EventTypeCampaignCreated:  {},
	entities.EventTypeDonationReceived: {},
	entities.EventTypeRequestCreated:   {},
	entities.EventTypeRequestApproved:  {},
	entities.EventTypeRequestFinalized: {},
}

// ListEventsQuery reads the event log. Indexers page with AfterSequence set to
// the last sequence they processed.
type ListEventsQuery struct {
	CampaignID    *int64
	Actor         string
	EventType     string
	AfterSequence int64
	Limit         int
}

type ListEventsResult struct {
	Items        []entities.Event
	LastSequence int64
}

type ListEventsUseCase struct {
	Reader ports.Reader
	Logger *slog.Logger
}

func (u ListEventsUseCase) Execute(ctx context.Context, query ListEventsQuery) (ListEventsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if query.AfterSequence < 0 {
		return ListEventsResult{}, domainerrors.ErrInvalidListFilter
	}
	_, limit, err := resolvePage(0, query.Limit)
	if err != nil {
		return ListEventsResult{}, err
	}

	filter := ports.EventFilter{
		CampaignID:    query.CampaignID,
		EventType:     strings.TrimSpace(query.EventType),
		AfterSequence: query.AfterSequence,
		Limit:         limit,
	}
	if filter.EventType != "" {
		if _, ok := knownEventTypes[filter.EventType]; !ok {
			return ListEventsResult{}, domainerrors.ErrInvalidListFilter
		}
	}
	if strings.TrimSpace(query.Actor) != "" {
		actor, err := valueobjects.ParseIdentity(query.Actor)
		if err != nil {
			return ListEventsResult{}, domainerrors.ErrInvalidListFilter
		}
		filter.Actor = actor
	}

	events, err := u.Reader.ListEvents(ctx, filter)
	if err != nil {
		logQueryFailure(logger, "list_events_failed", err)
		return ListEventsResult{}, err
	}
	last := query.AfterSequence
	if len(events) > 0 {
		last = events[len(events)-1].Sequence
	}
	return ListEventsResult{Items: events, LastSequence: last}, nil
}
