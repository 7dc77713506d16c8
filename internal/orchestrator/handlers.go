package orchestrator

import (
	"context"
	"errors"

	"github.com/feral-file/ff-marketplace-mirror/internal/metadata"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/pinata"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/stats"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

// Handlers are the job processors wired into an orchestrator. Nil handlers are not registered.
type Handlers struct {
	Metadata metadata.Fetcher
	Pinner   pinata.Pinner
	Stats    stats.Updater
	Webhooks webhook.Deliverer
}

// RegisterHandlers registers a handler for every job type the mirror produces
func RegisterHandlers(o Orchestrator, h Handlers) {
	if h.Metadata != nil {
		o.Register(schema.JobTypeMetadataFetch, MetadataFetchHandler(h.Metadata))
	}
	if h.Pinner != nil {
		o.Register(schema.JobTypeMetadataPin, MetadataPinHandler(h.Pinner))
	}
	if h.Stats != nil {
		o.Register(schema.JobTypeStatsUpdate, StatsUpdateHandler(h.Stats))
	}
	if h.Webhooks != nil {
		o.Register(schema.JobTypeWebhookDeliver, WebhookDeliverHandler(h.Webhooks))
	}
}

// MetadataFetchHandler decodes METADATA_FETCH payloads. The fetcher is told when the job has
// no attempts left so it does not leave the token PENDING.
func MetadataFetchHandler(f metadata.Fetcher) Handler {
	return HandlerFunc(func(ctx context.Context, job *schema.Job) error {
		payload, err := queue.DecodePayload[queue.MetadataFetchPayload](job)
		if err != nil {
			return err
		}
		if payload.ContractAddress == "" || payload.TokenID == "" {
			return errors.New("metadata fetch payload missing contract or token")
		}
		return f.Fetch(ctx, payload, job.Attempts >= job.MaxAttempts)
	})
}

// MetadataPinHandler decodes METADATA_PIN payloads
func MetadataPinHandler(p pinata.Pinner) Handler {
	return HandlerFunc(func(ctx context.Context, job *schema.Job) error {
		payload, err := queue.DecodePayload[queue.MetadataPinPayload](job)
		if err != nil {
			return err
		}
		return p.PinByHash(ctx, payload.CID)
	})
}

// StatsUpdateHandler decodes STATS_UPDATE payloads
func StatsUpdateHandler(u stats.Updater) Handler {
	return HandlerFunc(func(ctx context.Context, job *schema.Job) error {
		payload, err := queue.DecodePayload[queue.StatsUpdatePayload](job)
		if err != nil {
			return err
		}
		if payload.ContractAddress == "" {
			return errors.New("stats update payload missing contract")
		}
		return u.Update(ctx, payload.Chain, payload.ContractAddress)
	})
}

// WebhookDeliverHandler decodes WEBHOOK_DELIVER payloads
func WebhookDeliverHandler(d webhook.Deliverer) Handler {
	return HandlerFunc(func(ctx context.Context, job *schema.Job) error {
		payload, err := queue.DecodePayload[queue.WebhookDeliverPayload](job)
		if err != nil {
			return err
		}
		if payload.DeliveryID == "" {
			return errors.New("webhook payload missing delivery id")
		}
		return d.Deliver(ctx, payload.DeliveryID)
	})
}
