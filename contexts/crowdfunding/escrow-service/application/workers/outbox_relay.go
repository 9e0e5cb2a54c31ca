package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/entities"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

const (
	DefaultTopic  = "crowdfunding.events"
	sourceService = "escrow-service"
)

// OutboxRelay publishes committed event log entries in sequence order and
// marks each as published. It never touches escrow state.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	pending, err := r.Outbox.ListUnpublishedEvents(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "escrow_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	sent := 0
	for _, event := range pending {
		envelope, err := BuildEnvelope(event)
		if err != nil {
			logger.Error("outbox envelope encode failed",
				"event", "escrow_outbox_encode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"sequence", event.Sequence,
				"error", err.Error(),
			)
			return sent, err
		}
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "escrow_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"sequence", event.Sequence,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return sent, err
		}
		if err := r.Outbox.MarkEventPublished(ctx, event.Sequence, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "escrow_outbox_mark_published_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"sequence", event.Sequence,
				"error", err.Error(),
			)
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "escrow_outbox_relay_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"sent_count", sent,
			"last_sequence", pending[len(pending)-1].Sequence,
		)
	}
	return sent, nil
}

// Run polls until ctx is cancelled.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type eventData struct {
	Sequence     int64  `json:"sequence"`
	Operation    string `json:"operation"`
	CampaignID   int64  `json:"campaign_id"`
	RequestIndex *int   `json:"request_index,omitempty"`
	Actor        string `json:"actor,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Amount       string `json:"amount,omitempty"`
}

// BuildEnvelope maps a log entry onto the canonical envelope, partitioned by
// campaign so consumers see a campaign's events in order.
func BuildEnvelope(event entities.Event) (ports.EventEnvelope, error) {
	data := eventData{
		Sequence:     event.Sequence,
		Operation:    event.Operation,
		CampaignID:   event.CampaignID,
		RequestIndex: event.RequestIndex,
		Actor:        event.Actor.String(),
		Counterparty: event.Counterparty.String(),
	}
	if !event.Amount.IsZero() {
		data.Amount = event.Amount.String()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: "campaign_id",
		PartitionKey:     strconv.FormatInt(event.CampaignID, 10),
		Data:             payload,
	}, nil
}
