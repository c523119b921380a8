package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/worldclock/apiserver/config"
	"github.com/worldclock/apiserver/internal/citylookup"
	"github.com/worldclock/apiserver/internal/mq"
	"github.com/worldclock/apiserver/internal/storage"
)

// Event backend names accepted in EVENTS_BACKEND.
const (
	EventsNone     = "none"
	EventsRabbitMQ = "rabbitmq"
	EventsPubSub   = "pubsub"
)

// LoadCities reads the city table from the configured source.
func LoadCities(ctx context.Context, cfg config.Config) (*citylookup.Table, error) {
	opts := citylookup.Options{
		Source:    cfg.Cities.Source,
		Path:      cfg.Cities.Path,
		ObjectKey: cfg.Cities.ObjectKey,
	}

	source := strings.ToLower(strings.TrimSpace(cfg.Cities.Source))
	if source == citylookup.SourceMinio || source == citylookup.SourceGCS {
		objects, err := NewObjectStorage(ctx, cfg, source)
		if err != nil {
			return nil, err
		}
		opts.Objects = objects
	}

	return citylookup.Open(ctx, opts)
}

// NewObjectStorage connects to the named object store backend.
func NewObjectStorage(ctx context.Context, cfg config.Config, backend string) (*storage.Storage, error) {
	switch backend {
	case citylookup.SourceMinio:
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return storage.NewStorage(client), nil
	case citylookup.SourceGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown object storage backend %q", backend)
	}
}

// NewEventsBackend connects to the configured broker.
func NewEventsBackend(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Events.Backend)) {
	case "", EventsNone:
		return mq.New(mq.Noop{}), nil
	case EventsRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case EventsPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}
