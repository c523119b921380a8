package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/metrics"
	"github.com/worldclock/apiserver/internal/mq"
	"github.com/worldclock/apiserver/types"
)

// Type names the kind of change carried by an Event.
type Type string

const (
	TimezoneCreated Type = "timezone.created"
	TimezoneUpdated Type = "timezone.updated"
	TimezoneDeleted Type = "timezone.deleted"
)

// Event describes a committed change to a timezone record.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OwnerID    int       `json:"owner_id"`
	TimezoneID int       `json:"timezone_id"`
	Name       string    `json:"name"`
	Timezone   string    `json:"timezone"`
	Offset     string    `json:"offset"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event of type t for tz stamped with at.
func NewEvent(t Type, tz types.Timezone, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OwnerID:    tz.OwnerID,
		TimezoneID: tz.ID,
		Name:       tz.Name,
		Timezone:   tz.Timezone,
		Offset:     tz.Offset,
		OccurredAt: at.UTC(),
	}
}

// Decode parses an event from a broker message.
func Decode(msg mq.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return ev, nil
}

// Publisher emits timezone events on a single channel. Publishing is best
// effort: failures are logged and counted but never returned.
type Publisher struct {
	backend mq.Backend
	channel string
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPublisher constructs a Publisher. A nil backend drops every event.
func NewPublisher(backend mq.Backend, channel string, log logger.Logger, m *metrics.Metrics) *Publisher {
	if backend == nil {
		backend = mq.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		backend: backend,
		channel: channel,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Publish sends an event of type t for tz.
func (p *Publisher) Publish(ctx context.Context, t Type, tz types.Timezone) {
	if p == nil {
		return
	}
	ev := NewEvent(t, tz, p.now())
	data, err := json.Marshal(ev)
	if err != nil {
		p.fail(ev, err)
		return
	}

	attrs := map[string]string{
		mq.AttrContentType: "application/json",
		mq.AttrRoutingKey:  string(t),
		mq.AttrOrderingKey: strconv.Itoa(tz.OwnerID),
		"event_type":       string(t),
	}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		p.fail(ev, err)
		return
	}
	p.metrics.ObservePublish(nil)
}

func (p *Publisher) fail(ev Event, err error) {
	p.metrics.ObservePublish(err)
	p.log.Warn("failed to publish timezone event",
		"event_id", ev.ID,
		"type", ev.Type,
		"timezone_id", ev.TimezoneID,
		"error", err,
	)
}

// Watch subscribes to channel and hands every decoded event to fn until ctx
// is done. Undecodable messages are logged and acknowledged.
func Watch(ctx context.Context, backend mq.Backend, channel string, log logger.Logger, fn func(Event)) error {
	if log == nil {
		log = logger.Nop()
	}
	return backend.Subscribe(ctx, channel, func(_ context.Context, msg mq.Message) error {
		ev, err := Decode(msg)
		if err != nil {
			log.Warn("skipping malformed event", "message_id", msg.ID, "error", err)
			return nil
		}
		fn(ev)
		return nil
	})
}
